package pubsub

import "sync"

// Broadcaster fans values out to any number of independent subscribers.
// Each subscriber owns a ring channel, so delivery order within one
// subscription matches publish order and a stalled subscriber only loses
// its own oldest values.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[int]*RingChannel[T]
	nextID   int
	capacity int
	closed   bool
}

// NewBroadcaster creates a broadcaster whose subscriptions buffer up to
// capacity values each.
func NewBroadcaster[T any](capacity int) *Broadcaster[T] {
	if capacity <= 0 {
		capacity = 16
	}
	return &Broadcaster[T]{
		subs:     make(map[int]*RingChannel[T]),
		capacity: capacity,
	}
}

// Publish delivers v to every current subscriber. It never blocks.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, rc := range b.subs {
		rc.Send(v)
	}
}

// Subscribe registers a new consumer. The returned cancel function detaches
// the subscription and closes its channel; it is safe to call more than
// once. A subscription on a closed broadcaster is returned already closed.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc := NewRingChannel[T](b.capacity)
	if b.closed {
		rc.Close()
		return rc.C(), func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = rc

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				rc.Close()
			}
		})
	}
	return rc.C(), cancel
}

// Close detaches and closes all subscriptions. Publish becomes a no-op.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, rc := range b.subs {
		delete(b.subs, id)
		rc.Close()
	}
}
