// Package stations exposes read-only views of the allocator over HTTP.
package stations

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/core/model"
)

// Source is the read side of the allocator.
type Source interface {
	Snapshot() allocator.Snapshot
	Sessions() []model.Session
	ActiveSessionFor(userID string) (model.Session, bool)
}

// StationStatus is one entry of GET /api/stations.
type StationStatus struct {
	ID       string         `json:"id"`
	Location string         `json:"location"`
	Occupied bool           `json:"occupied"`
	Session  *SessionStatus `json:"session,omitempty"`
}

// SessionStatus describes an active session.
type SessionStatus struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StationID string    `json:"station_id"`
	StartTime time.Time `json:"start_time"`
	ElapsedS  float64   `json:"elapsed_s"`
}

// Overview is returned by GET /api/stations.
type Overview struct {
	Occupied int             `json:"occupied"`
	Total    int             `json:"total"`
	Stations []StationStatus `json:"stations"`
}

func toStatus(s model.Session, now time.Time) SessionStatus {
	return SessionStatus{
		ID:        s.ID,
		UserID:    s.UserID,
		StationID: s.StationID,
		StartTime: s.StartTime,
		ElapsedS:  s.Duration(now).Seconds(),
	}
}

// NewStationsHandler serves GET /api/stations: every station with its
// occupancy and the session bound to it.
func NewStationsHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		now := time.Now().UTC()
		snap := src.Snapshot()
		byStation := make(map[string]model.Session, len(snap.Sessions))
		for _, s := range snap.Sessions {
			byStation[s.StationID] = s
		}
		out := Overview{Occupied: snap.Occupied, Total: snap.Total, Stations: []StationStatus{}}
		for _, st := range snap.Stations {
			entry := StationStatus{ID: st.ID, Location: st.Location, Occupied: st.Occupied}
			if s, ok := byStation[st.ID]; ok {
				ss := toStatus(s, now)
				entry.Session = &ss
			}
			out.Stations = append(out.Stations, entry)
		}
		writeJSON(w, out)
	})
}

// NewSessionsHandler serves GET /api/sessions. With ?user_id= it returns the
// identity's active session, or 404 when it holds none.
func NewSessionsHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		now := time.Now().UTC()
		if user := r.URL.Query().Get("user_id"); user != "" {
			s, ok := src.ActiveSessionFor(user)
			if !ok {
				http.Error(w, "no active session", http.StatusNotFound)
				return
			}
			writeJSON(w, toStatus(s, now))
			return
		}
		sessions := src.Sessions()
		out := make([]SessionStatus, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, toStatus(s, now))
		}
		writeJSON(w, out)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
