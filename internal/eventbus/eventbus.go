package eventbus

// Event represents an arbitrary event passed on the bus. Consumers switch on
// the concrete type (see core/events).
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// BlockingSubscriber is implemented by buses that offer lossless
// subscriptions (see TypedBus.SubscribeBlocking).
type BlockingSubscriber interface {
	SubscribeBlocking(size int) <-chan Event
}

// DropCounter reports how many deliveries a bus skipped.
type DropCounter interface {
	Dropped() uint64
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

// NewWithBuffer creates a Bus whose subscribers buffer up to size events.
func NewWithBuffer(size int) *Bus { return NewTypedWithBuffer[Event](size) }

var (
	_ EventBus           = (*Bus)(nil)
	_ BlockingSubscriber = (*Bus)(nil)
	_ DropCounter        = (*Bus)(nil)
)
