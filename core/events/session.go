package events

import (
	"time"

	"github.com/kilianp07/chargeguard/core/model"
)

// SessionStarted is published when a charge request is admitted.
type SessionStarted struct {
	Session  model.Session
	Location string
}

// SessionStopped is published when an active session is released.
type SessionStopped struct {
	Session  model.Session
	Location string
	EndTime  time.Time
	Duration time.Duration
}

// AdmissionRejected is published when a charge request is refused. Reason
// holds the reject code (e.g. "station_busy"). For identity conflicts
// Conflict carries the session already held by the identity.
type AdmissionRejected struct {
	UserID    string
	StationID string
	Reason    string
	Message   string
	Conflict  *model.Session
	Time      time.Time
}
