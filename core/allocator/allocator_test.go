package allocator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargeguard/core/events"
	"github.com/kilianp07/chargeguard/core/model"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

func fleet() []model.StationConfig {
	return []model.StationConfig{
		{ID: "IST-001", Location: "Istanbul"},
		{ID: "ANK-002", Location: "Ankara"},
	}
}

// checkInvariants asserts that occupancy matches the active sessions and
// that no identity holds two sessions.
func checkInvariants(t *testing.T, a *Allocator) {
	t.Helper()
	perStation := map[string]int{}
	perUser := map[string]int{}
	for _, s := range a.Sessions() {
		perStation[s.StationID]++
		perUser[s.UserID]++
	}
	for _, st := range a.Stations() {
		if st.Occupied {
			assert.Equal(t, 1, perStation[st.ID], "occupied station %s must have exactly one session", st.ID)
		} else {
			assert.Zero(t, perStation[st.ID], "free station %s must have no session", st.ID)
		}
	}
	for u, n := range perUser {
		assert.LessOrEqual(t, n, 1, "user %s holds %d sessions", u, n)
	}
}

func TestRequestCharge_Success(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	a := New(fleet(), WithClock(func() time.Time { return start }))

	res := a.RequestCharge("RFID-1", "IST-001")
	require.True(t, res.Success)
	require.NotNil(t, res.Session)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.NoError(t, res.Err())
	assert.Equal(t, "RFID-1", res.Session.UserID)
	assert.Equal(t, "IST-001", res.Session.StationID)
	assert.Equal(t, start, res.Session.StartTime)
	assert.NotEmpty(t, res.Session.ID)
	assert.Contains(t, res.Message, "Istanbul")

	occupied, total := a.Occupancy()
	assert.Equal(t, 1, occupied)
	assert.Equal(t, 2, total)
	checkInvariants(t, a)
}

func TestRequestCharge_StationNotFound(t *testing.T) {
	a := New(fleet())
	res := a.RequestCharge("RFID-1", "IZM-003")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonStationNotFound, res.Reason)
	assert.True(t, errors.Is(res.Err(), ErrStationNotFound))
	assert.Nil(t, res.Session)
	assert.Empty(t, a.Sessions())
	occupied, _ := a.Occupancy()
	assert.Zero(t, occupied)
}

func TestRequestCharge_StationBusy(t *testing.T) {
	a := New(fleet())
	require.True(t, a.RequestCharge("RFID-1", "IST-001").Success)

	res := a.RequestCharge("RFID-2", "IST-001")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonStationBusy, res.Reason)
	assert.True(t, errors.Is(res.Err(), ErrStationBusy))
	assert.Len(t, a.Sessions(), 1)
	_, held := a.ActiveSessionFor("RFID-2")
	assert.False(t, held)
	checkInvariants(t, a)
}

func TestRequestCharge_BusyTakesPrecedenceOverConflict(t *testing.T) {
	a := New(fleet())
	require.True(t, a.RequestCharge("RFID-1", "IST-001").Success)
	require.True(t, a.RequestCharge("RFID-2", "ANK-002").Success)

	// The clone targets a station that is already taken.
	res := a.RequestCharge("RFID-1", "ANK-002")
	assert.Equal(t, ReasonStationBusy, res.Reason)

	// Same identity on its own station is also busy, not a conflict.
	res = a.RequestCharge("RFID-1", "IST-001")
	assert.Equal(t, ReasonStationBusy, res.Reason)
	checkInvariants(t, a)
}

func TestRequestCharge_IdentityConflict(t *testing.T) {
	a := New(fleet())
	first := a.RequestCharge("RFID-AHMET-12345", "IST-001")
	require.True(t, first.Success)

	res := a.RequestCharge("RFID-AHMET-12345", "ANK-002")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonIdentityConflict, res.Reason)
	assert.True(t, errors.Is(res.Err(), ErrIdentityConflict))
	require.NotNil(t, res.Conflict)
	assert.Equal(t, first.Session.ID, res.Conflict.ID)
	for _, want := range []string{"RFID-AHMET-12345", "IST-001", "Istanbul", "ANK-002", "Ankara"} {
		assert.Contains(t, res.Message, want)
	}

	stations := a.Stations()
	require.Len(t, stations, 2)
	assert.False(t, stations[0].Occupied, "ANK-002 must stay free")
	assert.True(t, stations[1].Occupied, "IST-001 must stay occupied")
	s, ok := a.ActiveSessionFor("RFID-AHMET-12345")
	require.True(t, ok)
	assert.Equal(t, "IST-001", s.StationID)
	checkInvariants(t, a)
}

func TestRequestCharge_InvalidIdentity(t *testing.T) {
	a := New(fleet())
	for _, id := range []string{"", "   "} {
		res := a.RequestCharge(id, "IST-001")
		assert.Equal(t, ReasonInvalidIdentity, res.Reason)
		assert.True(t, errors.Is(res.Err(), ErrInvalidIdentity))
	}
	assert.Empty(t, a.Sessions())
}

func TestCloningWalkthrough(t *testing.T) {
	a := New([]model.StationConfig{{ID: "A", Location: "North"}, {ID: "B", Location: "South"}})

	r1 := a.RequestCharge("user1", "A")
	require.True(t, r1.Success)
	assert.True(t, a.Stations()[0].Occupied)

	r2 := a.RequestCharge("user1", "B")
	assert.Equal(t, ReasonIdentityConflict, r2.Reason)
	assert.False(t, a.Stations()[1].Occupied)

	assert.True(t, a.StopCharge(r1.Session.ID))
	assert.False(t, a.Stations()[0].Occupied)

	r3 := a.RequestCharge("user1", "B")
	require.True(t, r3.Success)
	assert.True(t, a.Stations()[1].Occupied)
	checkInvariants(t, a)
}

func TestStopCharge_Unknown(t *testing.T) {
	a := New(fleet())
	require.True(t, a.RequestCharge("RFID-1", "IST-001").Success)
	before := a.Sessions()

	assert.False(t, a.StopCharge("does-not-exist"))
	assert.False(t, a.StopCharge(""))
	assert.Equal(t, before, a.Sessions())
	occupied, _ := a.Occupancy()
	assert.Equal(t, 1, occupied)
}

func TestStopCharge_Twice(t *testing.T) {
	a := New(fleet())
	res := a.RequestCharge("RFID-1", "IST-001")
	require.True(t, res.Success)
	assert.True(t, a.StopCharge(res.Session.ID))
	assert.False(t, a.StopCharge(res.Session.ID))
	_, ok := a.Session(res.Session.ID)
	assert.False(t, ok)
	checkInvariants(t, a)
}

func TestSessionIDsDistinct(t *testing.T) {
	var stations []model.StationConfig
	for i := 0; i < 50; i++ {
		stations = append(stations, model.StationConfig{ID: fmt.Sprintf("S-%02d", i)})
	}
	a := New(stations)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		res := a.RequestCharge(fmt.Sprintf("user-%d", i), fmt.Sprintf("S-%02d", i))
		require.True(t, res.Success)
		assert.False(t, seen[res.Session.ID], "duplicate id %s", res.Session.ID)
		seen[res.Session.ID] = true
	}
}

func TestSessionIDCollisionRegenerates(t *testing.T) {
	ids := []string{"same", "same", "other"}
	i := 0
	gen := func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	a := New(fleet(), WithIDGenerator(gen))
	r1 := a.RequestCharge("u1", "IST-001")
	r2 := a.RequestCharge("u2", "ANK-002")
	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.Equal(t, "same", r1.Session.ID)
	assert.Equal(t, "other", r2.Session.ID)
}

func TestRejectionIsIdempotent(t *testing.T) {
	a := New(fleet())
	require.True(t, a.RequestCharge("RFID-1", "IST-001").Success)
	snapshot := a.Sessions()
	stations := a.Stations()

	for i := 0; i < 3; i++ {
		assert.Equal(t, ReasonStationNotFound, a.RequestCharge("RFID-1", "nope").Reason)
		assert.Equal(t, ReasonStationBusy, a.RequestCharge("RFID-2", "IST-001").Reason)
		assert.Equal(t, ReasonIdentityConflict, a.RequestCharge("RFID-1", "ANK-002").Reason)
	}
	assert.Equal(t, snapshot, a.Sessions())
	assert.Equal(t, stations, a.Stations())
}

func TestDuplicateStationLastWins(t *testing.T) {
	a := New([]model.StationConfig{
		{ID: "IST-001", Location: "Old"},
		{ID: "IST-001", Location: "New"},
	})
	stations := a.Stations()
	require.Len(t, stations, 1)
	assert.Equal(t, "New", stations[0].Location)
}

func TestConcurrentRequestsSameStation(t *testing.T) {
	a := New(fleet())
	const n = 64
	var wg sync.WaitGroup
	results := make([]AdmissionResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.RequestCharge(fmt.Sprintf("user-%d", i), "IST-001")
		}(i)
	}
	wg.Wait()
	admitted := 0
	for _, r := range results {
		if r.Success {
			admitted++
		} else {
			assert.Equal(t, ReasonStationBusy, r.Reason)
		}
	}
	assert.Equal(t, 1, admitted)
	checkInvariants(t, a)
}

func TestConcurrentRequestsSameIdentity(t *testing.T) {
	var stations []model.StationConfig
	for i := 0; i < 32; i++ {
		stations = append(stations, model.StationConfig{ID: fmt.Sprintf("S-%02d", i)})
	}
	a := New(stations)
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < len(stations); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if a.RequestCharge("clone", fmt.Sprintf("S-%02d", i)).Success {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
	checkInvariants(t, a)
}

func TestConcurrentStopAndRequest(t *testing.T) {
	a := New(fleet())
	res := a.RequestCharge("u1", "IST-001")
	require.True(t, res.Success)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.StopCharge(res.Session.ID)
	}()
	go func() {
		defer wg.Done()
		a.RequestCharge("u2", "IST-001")
	}()
	wg.Wait()
	checkInvariants(t, a)
}

func TestEventsPublished(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe()
	a := New(fleet(), WithEventBus(bus))

	r := a.RequestCharge("u1", "IST-001")
	require.True(t, r.Success)
	a.RequestCharge("u1", "ANK-002")
	a.StopCharge(r.Session.ID)

	started, ok := (<-sub).(events.SessionStarted)
	require.True(t, ok)
	assert.Equal(t, "Istanbul", started.Location)

	rej, ok := (<-sub).(events.AdmissionRejected)
	require.True(t, ok)
	assert.Equal(t, "identity_conflict", rej.Reason)
	require.NotNil(t, rej.Conflict)
	assert.Equal(t, r.Session.ID, rej.Conflict.ID)

	stopped, ok := (<-sub).(events.SessionStopped)
	require.True(t, ok)
	assert.Equal(t, r.Session.ID, stopped.Session.ID)
	assert.False(t, stopped.EndTime.IsZero())
}

func TestParseReason(t *testing.T) {
	for _, r := range []Reason{ReasonNone, ReasonInvalidIdentity, ReasonStationNotFound, ReasonStationBusy, ReasonIdentityConflict} {
		got, err := ParseReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseReason("bogus")
	assert.Error(t, err)
	assert.Equal(t, "reason(42)", Reason(42).String())
}

func TestSnapshot_ConsistentUnderChurn(t *testing.T) {
	a := New(fleet())
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i, st := range []string{"IST-001", "ANK-002"} {
		wg.Add(1)
		go func(user, station string) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if r := a.RequestCharge(user, station); r.Success {
					a.StopCharge(r.Session.ID)
				}
			}
		}(fmt.Sprintf("RFID-%d", i), st)
	}

	for i := 0; i < 500; i++ {
		snap := a.Snapshot()
		require.Equal(t, 2, snap.Total)
		require.Len(t, snap.Stations, 2)
		require.Equal(t, len(snap.Sessions), snap.Occupied)
		occupied := map[string]bool{}
		for _, st := range snap.Stations {
			occupied[st.ID] = st.Occupied
		}
		for _, s := range snap.Sessions {
			require.True(t, occupied[s.StationID], "session %s on free station %s", s.ID, s.StationID)
		}
	}
	close(stop)
	wg.Wait()
}

func TestSnapshot_Ordering(t *testing.T) {
	a := New(fleet())
	require.True(t, a.RequestCharge("RFID-1", "IST-001").Success)
	snap := a.Snapshot()
	assert.Equal(t, "ANK-002", snap.Stations[0].ID)
	assert.Equal(t, "IST-001", snap.Stations[1].ID)
	assert.Equal(t, 1, snap.Occupied)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "RFID-1", snap.Sessions[0].UserID)
}
