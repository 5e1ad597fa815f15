package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAdmission forwards the event to all sinks. Every sink is tried; the
// returned error joins the individual failures.
func (m *MultiSink) RecordAdmission(ev AdmissionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordAdmission(ev))
	}
	return errors.Join(errs...)
}

// RecordRelease forwards to sinks implementing ReleaseRecorder.
func (m *MultiSink) RecordRelease(ev ReleaseEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ReleaseRecorder); ok {
			errs = append(errs, rec.RecordRelease(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordOccupancy forwards to sinks implementing OccupancyRecorder.
func (m *MultiSink) RecordOccupancy(ev OccupancyEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(OccupancyRecorder); ok {
			errs = append(errs, rec.RecordOccupancy(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordDropped forwards to sinks implementing DropRecorder.
func (m *MultiSink) RecordDropped(ev DroppedEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DropRecorder); ok {
			errs = append(errs, rec.RecordDropped(ev))
		}
	}
	return errors.Join(errs...)
}
