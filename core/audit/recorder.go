package audit

import (
	"context"
	"time"

	"github.com/kilianp07/chargeguard/core/events"
	"github.com/kilianp07/chargeguard/core/logger"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// FromEvent converts a session event into a Record. ok is false for events
// that are not audited.
func FromEvent(ev eventbus.Event) (Record, bool) {
	switch e := ev.(type) {
	case events.SessionStarted:
		return Record{
			Timestamp: e.Session.StartTime,
			Kind:      KindAdmitted,
			UserID:    e.Session.UserID,
			StationID: e.Session.StationID,
			Location:  e.Location,
			SessionID: e.Session.ID,
		}, true
	case events.AdmissionRejected:
		r := Record{
			Timestamp: e.Time,
			Kind:      KindRejected,
			UserID:    e.UserID,
			StationID: e.StationID,
			Reason:    e.Reason,
			Message:   e.Message,
		}
		if e.Conflict != nil {
			r.ConflictSessionID = e.Conflict.ID
			r.ConflictStationID = e.Conflict.StationID
		}
		return r, true
	case events.SessionStopped:
		return Record{
			Timestamp:       e.EndTime,
			Kind:            KindStopped,
			UserID:          e.Session.UserID,
			StationID:       e.Session.StationID,
			Location:        e.Location,
			SessionID:       e.Session.ID,
			DurationSeconds: e.Duration.Seconds(),
		}, true
	}
	return Record{}, false
}

// RecorderBuffer is the subscription capacity used by StartRecorder.
const RecorderBuffer = 1024

// StartRecorder appends every session event published on bus to store until
// ctx is canceled or the bus is closed. When the bus supports it the
// subscription is lossless: publishers wait once RecorderBuffer events are
// pending. Events already delivered when ctx is canceled are still written.
// The returned channel is closed on exit.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	var sub <-chan eventbus.Event
	if bs, ok := bus.(eventbus.BlockingSubscriber); ok {
		sub = bs.SubscribeBlocking(RecorderBuffer)
	} else {
		sub = bus.Subscribe()
	}
	write := func(ev eventbus.Event) {
		rec, ok := FromEvent(ev)
		if !ok {
			return
		}
		actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Append(actx, rec); err != nil {
			log.Errorf("audit append %s: %v", rec.Kind, err)
		}
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				eventbus.Drain(sub, write)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				write(ev)
			}
		}
	}()
	return done
}
