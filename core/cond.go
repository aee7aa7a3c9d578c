package core

import (
	"context"
	"sync"
)

// Cond is a condition variable whose Wait can be abandoned through a context.
//
// It follows the sync.Cond contract: L must be held when calling Wait, Signal
// and Broadcast, and Wait must be called in a loop that re-checks the predicate:
//
//	mu.Lock()
//	for !condition {
//	    if err := cond.Wait(ctx); err != nil {
//	        mu.Unlock()
//	        return err
//	    }
//	}
//	// ... use shared state ...
//	mu.Unlock()
//
// Waiters are woken in arrival order. A waiter that is canceled after it had
// already been signalled hands the signal on to the next waiter.
type Cond struct {
	L sync.Locker

	waiters []chan struct{}
}

// NewCond returns a new Cond bound to l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l}
}

// Wait atomically unlocks c.L and suspends the caller until Signal or
// Broadcast wakes it or ctx is done. c.L is locked again before Wait returns,
// in both cases. A nil return means the caller was woken; a non-nil return
// wraps ErrCanceled.
func (c *Cond) Wait(ctx context.Context) error {
	signalled, err := c.wait(ctx)
	if err != nil && signalled {
		// Signalled concurrently with the cancellation.
		c.Signal()
	}
	return err
}

// wait is Wait without the hand-off: a canceled waiter reports whether it had
// already been dequeued by Signal or Broadcast, and the caller decides where
// that wakeup goes.
func (c *Cond) wait(ctx context.Context) (signalled bool, err error) {
	if ctx.Err() != nil {
		return false, canceled(ctx)
	}

	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	c.L.Unlock()

	select {
	case <-ch:
		c.L.Lock()
		return true, nil
	case <-ctx.Done():
		c.L.Lock()
		return !c.remove(ch), canceled(ctx)
	}
}

// Signal wakes the longest-waiting goroutine, if there is one.
func (c *Cond) Signal() {
	if len(c.waiters) == 0 {
		return
	}
	ch := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	if len(c.waiters) == 0 {
		c.waiters = nil
	}
	close(ch)
}

// Broadcast wakes all waiting goroutines.
func (c *Cond) Broadcast() {
	waiters := c.waiters
	c.waiters = nil
	for _, ch := range waiters {
		close(ch)
	}
}

// Waiters returns the number of goroutines currently blocked in Wait.
func (c *Cond) Waiters() int {
	return len(c.waiters)
}

func (c *Cond) remove(ch chan struct{}) bool {
	for i, w := range c.waiters {
		if w == ch {
			copy(c.waiters[i:], c.waiters[i+1:])
			c.waiters[len(c.waiters)-1] = nil
			c.waiters = c.waiters[:len(c.waiters)-1]
			return true
		}
	}
	return false
}
