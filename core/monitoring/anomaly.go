package monitoring

import (
	"context"

	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/core/events"
	"github.com/kilianp07/chargeguard/core/logger"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// AnomalyTags builds the tags attached to an identity conflict report.
func AnomalyTags(e events.AdmissionRejected) map[string]string {
	tags := map[string]string{
		"anomaly":    "identity_cloning",
		"user_id":    e.UserID,
		"station_id": e.StationID,
	}
	if e.Conflict != nil {
		tags["active_station_id"] = e.Conflict.StationID
		tags["active_session_id"] = e.Conflict.ID
	}
	return tags
}

// StartAnomalyReporter forwards identity conflicts published on bus to m.
// Other rejections are ignored. Conflicts already buffered when ctx is
// canceled are still reported. The returned channel is closed once the
// reporter exits on ctx cancellation or bus close.
func StartAnomalyReporter(ctx context.Context, bus eventbus.EventBus, m Monitor, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || m == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	report := func(ev eventbus.Event) {
		e, ok := ev.(events.AdmissionRejected)
		if !ok || e.Reason != allocator.ReasonIdentityConflict.String() {
			return
		}
		log.Debugw("reporting identity conflict", map[string]any{
			"user_id":    e.UserID,
			"station_id": e.StationID,
		})
		m.CaptureAnomaly(e.Message, AnomalyTags(e))
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				eventbus.Drain(sub, report)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				report(ev)
			}
		}
	}()
	return done
}
