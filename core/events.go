package core

import (
	"sync"
)

// EventBus fans published events out to independent subscribers.
//
// Publish never blocks: each subscriber owns an unbounded FIFO mailbox that a
// dedicated goroutine drains into the subscriber's channel. A slow subscriber
// only grows its own mailbox; it never stalls the publisher or other
// subscribers. Each subscriber receives events in the order they were
// published.
type EventBus[E any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[E]]struct{}
	closed bool
}

// NewEventBus creates an open bus with no subscribers.
func NewEventBus[E any]() *EventBus[E] {
	return &EventBus[E]{subs: make(map[*Subscription[E]]struct{})}
}

// Publish enqueues e for every current subscriber. Events published after
// Close are dropped.
func (b *EventBus[E]) Publish(e E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for s := range b.subs {
		s.mailbox.Push(e)
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed bus returns a
// subscription whose channel is already closed.
func (b *EventBus[E]) Subscribe() *Subscription[E] {
	s := &Subscription[E]{
		bus:     b,
		mailbox: NewFIFOQueue[E](),
		wake:    make(chan struct{}, 1),
		out:     make(chan E),
		done:    make(chan struct{}),
		drain:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Subscribers returns the number of open subscriptions.
func (b *EventBus[E]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops accepting events. Subscribers still receive everything that was
// published before Close, after which their channels are closed.
func (b *EventBus[E]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription[E]]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.drainOnce.Do(func() { close(s.drain) })
	}
}

func (b *EventBus[E]) remove(s *Subscription[E]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// mailboxBatch bounds how many events the pump takes from a mailbox per lock hold.
const mailboxBatch = 64

// Subscription is one subscriber's view of an EventBus.
type Subscription[E any] struct {
	bus     *EventBus[E]
	mailbox *FIFOQueue[E]
	wake    chan struct{}
	out     chan E

	done      chan struct{}
	closeOnce sync.Once
	drain     chan struct{}
	drainOnce sync.Once
}

// C returns the channel events are delivered on. It is closed after Close, or
// after the bus is closed and every pending event was delivered.
func (s *Subscription[E]) C() <-chan E {
	return s.out
}

// Pending returns the number of events waiting in the mailbox.
func (s *Subscription[E]) Pending() int {
	return s.mailbox.Len()
}

// Close unsubscribes and discards undelivered events.
func (s *Subscription[E]) Close() {
	s.closeOnce.Do(func() {
		s.bus.remove(s)
		close(s.done)
	})
}

func (s *Subscription[E]) pump() {
	defer close(s.out)
	defer s.mailbox.Clear()

	for {
		for batch := s.mailbox.PopUpTo(mailboxBatch); len(batch) > 0; batch = s.mailbox.PopUpTo(mailboxBatch) {
			for _, e := range batch {
				select {
				case s.out <- e:
				case <-s.done:
					return
				}
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		case <-s.drain:
			if s.mailbox.IsEmpty() {
				return
			}
		}
	}
}
