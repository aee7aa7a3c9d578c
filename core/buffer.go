package core

import (
	"context"
	"sync"
	"time"
)

const defaultBufferName = "buffer"

// BoundedBuffer is a FIFO ring buffer with blocking Put and Get.
//
// Producers wait for "not full" and consumers wait for "not empty" on one shared
// condition, so every state change wakes all waiters. Waking a single waiter
// could pick one whose predicate is still false while another that could
// proceed stays asleep.
type BoundedBuffer[T any] struct {
	mu      sync.Mutex
	changed *Cond

	items []T
	head  int
	tail  int
	count int

	puts int64
	gets int64

	name    string
	logger  Logger
	metrics Metrics
}

// NewBoundedBuffer creates a buffer holding at most capacity items.
func NewBoundedBuffer[T any](capacity int) (*BoundedBuffer[T], error) {
	if capacity < 1 {
		return nil, invalid("capacity", "must be >= 1, got %d", capacity)
	}
	b := &BoundedBuffer[T]{
		items:   make([]T, capacity),
		name:    defaultBufferName,
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	b.changed = NewCond(&b.mu)
	return b, nil
}

// SetName sets the name used in logs and metrics.
func (b *BoundedBuffer[T]) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
}

// SetLogger sets the logger.
func (b *BoundedBuffer[T]) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = loggerOrNoOp(logger)
}

// SetMetrics sets the metrics sink.
func (b *BoundedBuffer[T]) SetMetrics(metrics Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = metricsOrNil(metrics)
}

// Put appends item, blocking while the buffer is full.
// If ctx is done first the buffer is left untouched and an error wrapping
// ErrCanceled is returned.
func (b *BoundedBuffer[T]) Put(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var waitStart time.Time
	for b.count == len(b.items) {
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		if err := b.changed.Wait(ctx); err != nil {
			b.metrics.RecordCancellation(b.name, "put")
			b.logger.Debug("put canceled", F("buffer", b.name), F("size", b.count))
			return err
		}
	}
	if !waitStart.IsZero() {
		b.metrics.RecordWait(b.name, "put", time.Since(waitStart))
	}

	b.putLocked(item)
	return nil
}

// TryPut appends item if there is room and reports whether it did.
func (b *BoundedBuffer[T]) TryPut(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == len(b.items) {
		return false
	}
	b.putLocked(item)
	return true
}

// Get removes and returns the oldest item, blocking while the buffer is empty.
// If ctx is done first the buffer is left untouched and an error wrapping
// ErrCanceled is returned.
func (b *BoundedBuffer[T]) Get(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var waitStart time.Time
	for b.count == 0 {
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		if err := b.changed.Wait(ctx); err != nil {
			b.metrics.RecordCancellation(b.name, "get")
			b.logger.Debug("get canceled", F("buffer", b.name))
			var zero T
			return zero, err
		}
	}
	if !waitStart.IsZero() {
		b.metrics.RecordWait(b.name, "get", time.Since(waitStart))
	}

	return b.getLocked(), nil
}

// TryGet removes and returns the oldest item if there is one.
func (b *BoundedBuffer[T]) TryGet() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.getLocked(), true
}

func (b *BoundedBuffer[T]) putLocked(item T) {
	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.puts++
	b.metrics.RecordOccupancy(b.name, b.count)
	b.changed.Broadcast()
}

func (b *BoundedBuffer[T]) getLocked() T {
	item := b.items[b.head]
	var zero T
	b.items[b.head] = zero // drop the reference
	b.head = (b.head + 1) % len(b.items)
	b.count--
	b.gets++
	b.metrics.RecordOccupancy(b.name, b.count)
	b.changed.Broadcast()
	return item
}

// IsEmpty reports whether the buffer currently holds no items.
func (b *BoundedBuffer[T]) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count == 0
}

// IsFull reports whether the buffer is at capacity.
func (b *BoundedBuffer[T]) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count == len(b.items)
}

// Size returns the number of stored items.
func (b *BoundedBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the capacity.
func (b *BoundedBuffer[T]) Cap() int {
	return len(b.items)
}

// Contents returns a copy of the stored items, oldest first.
func (b *BoundedBuffer[T]) Contents() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, 0, b.count)
	for i := range b.count {
		out = append(out, b.items[(b.head+i)%len(b.items)])
	}
	return out
}

// Stats returns a snapshot of the buffer state.
func (b *BoundedBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Name:     b.name,
		Capacity: len(b.items),
		Size:     b.count,
		Waiting:  b.changed.Waiters(),
		Puts:     b.puts,
		Gets:     b.gets,
	}
}
