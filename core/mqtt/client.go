package mqtt

import "github.com/kilianp07/chargeguard/internal/eventbus"

// Publisher forwards session events to an MQTT broker.
type Publisher interface {
	// PublishEvent encodes a session event and publishes it. Events that are
	// not session events are ignored.
	PublishEvent(ev eventbus.Event) error
	Close()
}
