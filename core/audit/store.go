// Package audit keeps a durable trail of admission decisions and session
// releases. The allocator state itself is never restored from it; the trail
// exists for forensic review of identity-cloning anomalies and reporting.
package audit

import (
	"context"
	"time"
)

// Kind classifies an audit record.
type Kind string

const (
	KindAdmitted Kind = "admitted"
	KindRejected Kind = "rejected"
	KindStopped  Kind = "stopped"
)

// Record captures one admission decision or session release.
type Record struct {
	Timestamp         time.Time `json:"timestamp"`
	Kind              Kind      `json:"kind"`
	UserID            string    `json:"user_id"`
	StationID         string    `json:"station_id"`
	Location          string    `json:"location,omitempty"`
	SessionID         string    `json:"session_id,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	Message           string    `json:"message,omitempty"`
	ConflictSessionID string    `json:"conflict_session_id,omitempty"`
	ConflictStationID string    `json:"conflict_station_id,omitempty"`
	DurationSeconds   float64   `json:"duration_s,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	Kind      Kind
	UserID    string
	StationID string
	Reason    string
}

// Match reports whether r satisfies every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	if q.StationID != "" && r.StationID != q.StationID && r.ConflictStationID != q.StationID {
		return false
	}
	if q.Reason != "" && r.Reason != q.Reason {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
