package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/chargeguard/core/events"
	coremetrics "github.com/kilianp07/chargeguard/core/metrics"
	"github.com/kilianp07/chargeguard/infra/logger"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// OccupancySource reports current fleet usage. It is implemented by the allocator.
type OccupancySource interface {
	Occupancy() (occupied, total int)
}

// StartEventCollector subscribes to the event bus and records metrics for
// session events. After each event an occupancy snapshot is recorded when
// src is set and the sink supports it. It stops when the context is canceled
// or the bus is closed; the returned channel is closed on exit. Events already
// buffered at cancellation are still recorded.
//
// When the bus counts dropped deliveries, new drops are logged as a warning
// and reported to sinks implementing DropRecorder.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, src OccupancySource, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	occ, recordOcc := sink.(coremetrics.OccupancyRecorder)
	snapshot := func(t time.Time) {
		if src == nil || !recordOcc {
			return
		}
		o, n := src.Occupancy()
		if err := occ.RecordOccupancy(coremetrics.OccupancyEvent{Occupied: o, Total: n, Time: t}); err != nil {
			log.Errorf("occupancy metrics error: %v", err)
		}
	}
	drops := newDropTracker(bus, sink, log)
	handle := func(ev eventbus.Event) {
		if err := record(sink, ev); err != nil {
			log.Errorf("metrics error: %v", err)
		}
		now := time.Now()
		snapshot(now)
		drops.check(now)
	}
	snapshot(time.Now())
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer func() { drops.check(time.Now()) }()
		for {
			select {
			case <-ctx.Done():
				eventbus.Drain(sub, handle)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				handle(ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.SessionStarted:
		return sink.RecordAdmission(coremetrics.AdmissionEvent{
			UserID:    e.Session.UserID,
			StationID: e.Session.StationID,
			Location:  e.Location,
			SessionID: e.Session.ID,
			Admitted:  true,
			Reason:    "none",
			Time:      e.Session.StartTime,
		})
	case events.AdmissionRejected:
		return sink.RecordAdmission(coremetrics.AdmissionEvent{
			UserID:    e.UserID,
			StationID: e.StationID,
			Reason:    e.Reason,
			Time:      e.Time,
		})
	case events.SessionStopped:
		if r, ok := sink.(coremetrics.ReleaseRecorder); ok {
			return r.RecordRelease(coremetrics.ReleaseEvent{
				SessionID: e.Session.ID,
				UserID:    e.Session.UserID,
				StationID: e.Session.StationID,
				Location:  e.Location,
				Duration:  e.Duration,
				Time:      e.EndTime,
			})
		}
	}
	return nil
}

type dropTracker struct {
	src  eventbus.DropCounter
	rec  coremetrics.DropRecorder
	log  logger.Logger
	seen uint64
}

func newDropTracker(bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) *dropTracker {
	t := &dropTracker{log: log}
	t.src, _ = bus.(eventbus.DropCounter)
	t.rec, _ = sink.(coremetrics.DropRecorder)
	if t.src != nil {
		t.seen = t.src.Dropped()
	}
	return t
}

// check reports drops that happened since the previous call.
func (t *dropTracker) check(now time.Time) {
	if t.src == nil {
		return
	}
	total := t.src.Dropped()
	if total <= t.seen {
		return
	}
	n := total - t.seen
	t.seen = total
	t.log.Warnf("event bus dropped %d events (%d total)", n, total)
	if t.rec == nil {
		return
	}
	if err := t.rec.RecordDropped(coremetrics.DroppedEvent{Count: n, Total: total, Time: now}); err != nil {
		t.log.Errorf("dropped events metrics error: %v", err)
	}
}
