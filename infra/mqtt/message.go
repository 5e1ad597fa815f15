package mqtt

import (
	"github.com/kilianp07/chargeguard/core/events"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// Message kinds, used as the second topic level.
const (
	KindStarted  = "started"
	KindStopped  = "stopped"
	KindRejected = "rejected"
	KindAnomaly  = "anomaly"
)

// Message is the JSON payload published for a session event.
type Message struct {
	Kind            string  `json:"kind"`
	SessionID       string  `json:"session_id,omitempty"`
	UserID          string  `json:"user_id"`
	StationID       string  `json:"station_id"`
	Location        string  `json:"location,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Message         string  `json:"message,omitempty"`
	ActiveStationID string  `json:"active_station_id,omitempty"`
	ActiveSessionID string  `json:"active_session_id,omitempty"`
	DurationS       float64 `json:"duration_s,omitempty"`
	Timestamp       int64   `json:"timestamp"`
}

// Topic returns "<prefix>/<kind>/<station>".
func (m Message) Topic(prefix string) string {
	return prefix + "/" + m.Kind + "/" + m.StationID
}

// MessageFromEvent maps a session event to its payload. Identity conflicts
// are published with KindAnomaly rather than KindRejected.
func MessageFromEvent(ev eventbus.Event) (Message, bool) {
	switch e := ev.(type) {
	case events.SessionStarted:
		return Message{
			Kind:      KindStarted,
			SessionID: e.Session.ID,
			UserID:    e.Session.UserID,
			StationID: e.Session.StationID,
			Location:  e.Location,
			Timestamp: e.Session.StartTime.UnixMilli(),
		}, true
	case events.SessionStopped:
		return Message{
			Kind:      KindStopped,
			SessionID: e.Session.ID,
			UserID:    e.Session.UserID,
			StationID: e.Session.StationID,
			Location:  e.Location,
			DurationS: e.Duration.Seconds(),
			Timestamp: e.EndTime.UnixMilli(),
		}, true
	case events.AdmissionRejected:
		m := Message{
			Kind:      KindRejected,
			UserID:    e.UserID,
			StationID: e.StationID,
			Reason:    e.Reason,
			Message:   e.Message,
			Timestamp: e.Time.UnixMilli(),
		}
		if e.Conflict != nil {
			m.Kind = KindAnomaly
			m.ActiveStationID = e.Conflict.StationID
			m.ActiveSessionID = e.Conflict.ID
		}
		return m, true
	}
	return Message{}, false
}
