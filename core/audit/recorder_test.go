package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/core/model"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

func TestRecorder(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "sessions.log"))
	require.NoError(t, err)
	bus := eventbus.New()
	alloc := allocator.New([]model.StationConfig{
		{ID: "IST-001", Location: "Istanbul"},
		{ID: "ANK-002", Location: "Ankara"},
	}, allocator.WithEventBus(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartRecorder(ctx, bus, store, nil)

	r1 := alloc.RequestCharge("RFID-AHMET-12345", "IST-001")
	require.True(t, r1.Success)
	alloc.RequestCharge("RFID-AHMET-12345", "ANK-002")
	alloc.StopCharge(r1.Session.ID)

	require.Eventually(t, func() bool {
		out, err := store.Query(context.Background(), Query{})
		return err == nil && len(out) == 3
	}, 2*time.Second, 10*time.Millisecond)

	bus.Close()
	<-done

	conflicts, err := store.Query(context.Background(), Query{Reason: "identity_conflict"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, KindRejected, c.Kind)
	assert.Equal(t, "ANK-002", c.StationID)
	assert.Equal(t, "IST-001", c.ConflictStationID)
	assert.Equal(t, r1.Session.ID, c.ConflictSessionID)
	assert.Contains(t, c.Message, "Istanbul")

	stopped, err := store.Query(context.Background(), Query{Kind: KindStopped})
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	assert.Equal(t, "Istanbul", stopped[0].Location)
}

func TestRecorder_LosslessOnSmallBus(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "sessions.log"))
	require.NoError(t, err)
	bus := eventbus.NewWithBuffer(1)
	alloc := allocator.New([]model.StationConfig{{ID: "IST-001"}}, allocator.WithEventBus(bus))

	ctx, cancel := context.WithCancel(context.Background())
	done := StartRecorder(ctx, bus, store, nil)

	const pairs = 100
	for i := 0; i < pairs; i++ {
		r := alloc.RequestCharge("RFID-1", "IST-001")
		require.True(t, r.Success)
		alloc.StopCharge(r.Session.ID)
	}
	cancel()
	<-done

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, out, 2*pairs)
	assert.Zero(t, bus.Dropped())
}

func TestFromEvent_Unknown(t *testing.T) {
	_, ok := FromEvent("not an event")
	assert.False(t, ok)
}
