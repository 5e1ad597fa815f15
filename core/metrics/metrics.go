package metrics

import "time"

// AdmissionEvent describes the outcome of one charge request. Reason is
// "none" for admitted requests.
type AdmissionEvent struct {
	UserID    string
	StationID string
	Location  string
	SessionID string
	Admitted  bool
	Reason    string
	Time      time.Time
}

// MetricsSink records admission outcomes for observability purposes.
type MetricsSink interface {
	RecordAdmission(ev AdmissionEvent) error
}

// ReleaseEvent describes a stopped session.
type ReleaseEvent struct {
	SessionID string
	UserID    string
	StationID string
	Location  string
	Duration  time.Duration
	Time      time.Time
}

// ReleaseRecorder records stopped sessions.
type ReleaseRecorder interface {
	RecordRelease(ev ReleaseEvent) error
}

// OccupancyEvent is a snapshot of fleet usage.
type OccupancyEvent struct {
	Occupied int
	Total    int
	Time     time.Time
}

// OccupancyRecorder records fleet occupancy snapshots.
type OccupancyRecorder interface {
	RecordOccupancy(ev OccupancyEvent) error
}

// DroppedEvent reports session events the bus failed to deliver to a
// subscriber since the previous report.
type DroppedEvent struct {
	Count uint64
	Total uint64
	Time  time.Time
}

// DropRecorder records undelivered bus events.
type DropRecorder interface {
	RecordDropped(ev DroppedEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAdmission(AdmissionEvent) error { return nil }
func (NopSink) RecordRelease(ReleaseEvent) error     { return nil }
func (NopSink) RecordOccupancy(OccupancyEvent) error { return nil }
func (NopSink) RecordDropped(DroppedEvent) error     { return nil }
