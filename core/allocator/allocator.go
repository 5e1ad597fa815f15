// Package allocator binds charging sessions to stations and refuses a second
// concurrent session for the same user identity, which is reported as a
// suspected identity-cloning anomaly.
package allocator

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargeguard/core/events"
	"github.com/kilianp07/chargeguard/core/logger"
	"github.com/kilianp07/chargeguard/core/model"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// Allocator owns the station states and the active sessions. All state is
// guarded by a single mutex so that an admission decision is evaluated and
// committed atomically.
type Allocator struct {
	mu       sync.Mutex
	stations map[string]*model.Station
	sessions map[string]model.Session
	byUser   map[string]string // user id -> active session id

	log   logger.Logger
	bus   eventbus.EventBus
	now   func() time.Time
	newID func() string
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger used for admission and release messages.
func WithLogger(l logger.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithEventBus publishes session events on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(a *Allocator) { a.bus = bus }
}

// WithClock overrides the time source for session start and stop times.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *Allocator) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// New creates an Allocator for the configured stations. When the same id is
// configured more than once the last entry wins.
func New(stations []model.StationConfig, opts ...Option) *Allocator {
	a := &Allocator{
		stations: make(map[string]*model.Station, len(stations)),
		sessions: make(map[string]model.Session),
		byUser:   make(map[string]string),
		log:      logger.NopLogger{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	for _, sc := range stations {
		if prev, ok := a.stations[sc.ID]; ok {
			a.log.Warnf("station %s configured twice, location %q replaced by %q", sc.ID, prev.Location, sc.Location)
		}
		a.stations[sc.ID] = &model.Station{ID: sc.ID, Location: sc.Location}
	}
	return a
}

// RequestCharge admits a new session for userID on stationID. Checks run in
// order and stop at the first failure: blank identity, unknown station, busy
// station, then an active session already held by the identity. State is
// only mutated on success.
func (a *Allocator) RequestCharge(userID, stationID string) AdmissionResult {
	res, ev := a.admit(userID, stationID)
	switch {
	case res.Success:
		a.log.Infof("%s", res.Message)
	case res.Reason == ReasonIdentityConflict:
		a.log.Warnf("%s", res.Message)
	default:
		a.log.Debugf("charge request rejected (%s): %s", res.Reason, res.Message)
	}
	a.publish(ev)
	return res
}

func (a *Allocator) admit(userID, stationID string) (AdmissionResult, eventbus.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.TrimSpace(userID) == "" {
		return a.reject(userID, stationID, rejected(ReasonInvalidIdentity, "user identity must not be empty"))
	}
	station, ok := a.stations[stationID]
	if !ok {
		return a.reject(userID, stationID, rejected(ReasonStationNotFound, "station %q not found", stationID))
	}
	if station.Occupied {
		return a.reject(userID, stationID, rejected(ReasonStationBusy, "station %q is busy", stationID))
	}
	if sid, ok := a.byUser[userID]; ok {
		existing := a.sessions[sid]
		res := rejected(ReasonIdentityConflict,
			"anomaly detected: identity %q already holds an active session at station %q (location: %s); "+
				"new request from station %q (location: %s) blocked on suspected identity cloning",
			userID, existing.StationID, a.locationLocked(existing.StationID), station.ID, station.Location)
		res.Conflict = &existing
		return a.reject(userID, stationID, res)
	}

	id := a.newID()
	for {
		if _, taken := a.sessions[id]; !taken {
			break
		}
		id = a.newID()
	}
	sess := model.Session{ID: id, UserID: userID, StationID: station.ID, StartTime: a.now()}
	station.Occupied = true
	a.sessions[id] = sess
	a.byUser[userID] = id

	out := sess
	res := AdmissionResult{
		Success: true,
		Message: fmt.Sprintf("charging started for %q at station %q (location: %s)", userID, station.ID, station.Location),
		Session: &out,
	}
	return res, events.SessionStarted{Session: sess, Location: station.Location}
}

func (a *Allocator) reject(userID, stationID string, res AdmissionResult) (AdmissionResult, eventbus.Event) {
	ev := events.AdmissionRejected{
		UserID:    userID,
		StationID: stationID,
		Reason:    res.Reason.String(),
		Message:   res.Message,
		Time:      a.now(),
	}
	if res.Conflict != nil {
		c := *res.Conflict
		ev.Conflict = &c
	}
	return res, ev
}

// StopCharge releases the session with the given id. It reports whether a
// session was actually stopped; an unknown id is a no-op.
func (a *Allocator) StopCharge(sessionID string) bool {
	a.mu.Lock()
	sess, ok := a.sessions[sessionID]
	if !ok {
		a.mu.Unlock()
		a.log.Debugf("stop ignored, no active session %s", sessionID)
		return false
	}
	location := ""
	if st, ok := a.stations[sess.StationID]; ok {
		st.Occupied = false
		location = st.Location
	}
	delete(a.sessions, sessionID)
	if a.byUser[sess.UserID] == sessionID {
		delete(a.byUser, sess.UserID)
	}
	end := a.now()
	a.mu.Unlock()

	a.log.Infof("session %s of %q at station %q stopped", sess.ID, sess.UserID, sess.StationID)
	a.publish(events.SessionStopped{Session: sess, Location: location, EndTime: end, Duration: sess.Duration(end)})
	return true
}

// Snapshot is a consistent view of the fleet taken under a single lock.
type Snapshot struct {
	Stations []model.Station
	Sessions []model.Session
	Occupied int
	Total    int
}

// Snapshot returns stations, active sessions and occupancy as they were at
// one instant. Stations are sorted by id, sessions by start time.
func (a *Allocator) Snapshot() Snapshot {
	a.mu.Lock()
	snap := Snapshot{
		Stations: a.stationsLocked(),
		Sessions: a.sessionsLocked(),
		Total:    len(a.stations),
	}
	a.mu.Unlock()
	for _, st := range snap.Stations {
		if st.Occupied {
			snap.Occupied++
		}
	}
	sortStations(snap.Stations)
	sortSessions(snap.Sessions)
	return snap
}

// Stations returns a snapshot of all stations sorted by id.
func (a *Allocator) Stations() []model.Station {
	a.mu.Lock()
	out := a.stationsLocked()
	a.mu.Unlock()
	sortStations(out)
	return out
}

// Sessions returns a snapshot of the active sessions ordered by start time.
func (a *Allocator) Sessions() []model.Session {
	a.mu.Lock()
	out := a.sessionsLocked()
	a.mu.Unlock()
	sortSessions(out)
	return out
}

func (a *Allocator) stationsLocked() []model.Station {
	out := make([]model.Station, 0, len(a.stations))
	for _, st := range a.stations {
		out = append(out, *st)
	}
	return out
}

func (a *Allocator) sessionsLocked() []model.Session {
	out := make([]model.Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	return out
}

func sortStations(s []model.Station) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}

func sortSessions(s []model.Session) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].StartTime.Equal(s[j].StartTime) {
			return s[i].ID < s[j].ID
		}
		return s[i].StartTime.Before(s[j].StartTime)
	})
}

// Session looks up an active session by id.
func (a *Allocator) Session(id string) (model.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	return s, ok
}

// ActiveSessionFor returns the active session held by userID, if any.
func (a *Allocator) ActiveSessionFor(userID string) (model.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byUser[userID]
	if !ok {
		return model.Session{}, false
	}
	return a.sessions[id], true
}

// Occupancy returns the number of occupied stations and the fleet size.
func (a *Allocator) Occupancy() (occupied, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, st := range a.stations {
		if st.Occupied {
			occupied++
		}
	}
	return occupied, len(a.stations)
}

func (a *Allocator) locationLocked(stationID string) string {
	if st, ok := a.stations[stationID]; ok {
		return st.Location
	}
	return "unknown"
}

func (a *Allocator) publish(ev eventbus.Event) {
	if a.bus != nil && ev != nil {
		a.bus.Publish(ev)
	}
}
