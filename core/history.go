package core

import (
	"sync"
)

const defaultHistoryCapacity = 100

// history is a fixed-size ring of the most recent records.
type history[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	count int
}

func newHistory[T any](capacity int) *history[T] {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &history[T]{items: make([]T, capacity)}
}

func (h *history[T]) Add(record T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything retained.
func (h *history[T]) Recent(limit int) []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]T, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}
