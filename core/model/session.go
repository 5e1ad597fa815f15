package model

import "time"

// Session is one user's active use of one station.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StationID string    `json:"station_id"`
	StartTime time.Time `json:"start_time"`
}

// Duration returns how long the session has been running at t.
func (s Session) Duration(t time.Time) time.Duration {
	if s.StartTime.IsZero() || t.Before(s.StartTime) {
		return 0
	}
	return t.Sub(s.StartTime)
}
