package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber[T any] struct {
	ch       chan T
	blocking bool
	quit     chan struct{}
	once     sync.Once
}

func (s *subscriber[T]) stop() { s.once.Do(func() { close(s.quit) }) }

// TypedBus is a type-safe publish/subscribe bus for events of type T.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    []*subscriber[T]
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

// NewTyped creates a new TypedBus with DefaultBuffer capacity per subscriber.
func NewTyped[T any]() *TypedBus[T] { return NewTypedWithBuffer[T](DefaultBuffer) }

// NewTypedWithBuffer creates a TypedBus whose subscribers buffer up to size events.
func NewTypedWithBuffer[T any](size int) *TypedBus[T] {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &TypedBus[T]{buffer: size}
}

// Publish sends the event to all subscribers. Delivery to regular
// subscribers is non-blocking: a full buffer misses the event and Dropped is
// incremented. Blocking subscribers make Publish wait for buffer space until
// they unsubscribe or the bus is closed.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.blocking {
			select {
			case s.ch <- e:
			case <-s.quit:
				b.dropped.Add(1)
			}
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber and returns its channel.
func (b *TypedBus[T]) Subscribe() <-chan T {
	return b.subscribe(b.buffer, false)
}

// SubscribeBlocking registers a subscriber that never misses an event: when
// its buffer of size events is full, publishers wait for the consumer.
func (b *TypedBus[T]) SubscribeBlocking(size int) <-chan T {
	if size <= 0 {
		size = b.buffer
	}
	return b.subscribe(size, true)
}

func (b *TypedBus[T]) subscribe(size int, blocking bool) <-chan T {
	s := &subscriber[T]{ch: make(chan T, size), blocking: blocking, quit: make(chan struct{})}
	b.mu.Lock()
	if b.closed {
		close(s.ch)
	} else {
		b.subs = append(b.subs, s)
	}
	b.mu.Unlock()
	return s.ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	// release publishers blocked on this subscriber before taking the write lock
	b.mu.RLock()
	var target *subscriber[T]
	for _, s := range b.subs {
		if s.ch == sub {
			target = s
			break
		}
	}
	b.mu.RUnlock()
	if target == nil {
		return
	}
	target.stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes the bus and all subscriber channels.
func (b *TypedBus[T]) Close() {
	b.mu.RLock()
	for _, s := range b.subs {
		s.stop()
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

// Drain hands every event already buffered in ch to fn without waiting for
// new ones. It returns when ch is empty or closed.
func Drain[T any](ch <-chan T, fn func(T)) {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			fn(e)
		default:
			return
		}
	}
}
