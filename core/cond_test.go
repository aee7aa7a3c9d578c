package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestCond_SignalWakesInArrivalOrder verifies FIFO wakeups
// Given: Three goroutines waiting on a Cond, queued one after another
// When: Signal is called three times
// Then: They wake in the order they started waiting
func TestCond_SignalWakesInArrivalOrder(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	c := NewCond(&mu)
	woke := make(chan int, 3)

	for i := range 3 {
		go func() {
			mu.Lock()
			defer mu.Unlock()
			if err := c.Wait(context.Background()); err == nil {
				woke <- i
			}
		}()
		waitFor(t, time.Second, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return c.Waiters() == i+1
		})
	}

	// Act & Assert
	for want := range 3 {
		mu.Lock()
		c.Signal()
		mu.Unlock()
		if got := receive(t, woke, time.Second); got != want {
			t.Errorf("woke %d, want %d", got, want)
		}
	}
}

func TestCond_BroadcastWakesAll(t *testing.T) {
	var mu sync.Mutex
	c := NewCond(&mu)
	var wg sync.WaitGroup

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			_ = c.Wait(context.Background())
		}()
	}
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.Waiters() == 5
	})

	mu.Lock()
	c.Broadcast()
	mu.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	receive(t, done, time.Second)
}

// TestCond_WaitCanceled verifies a canceled wait returns with the lock held
// Given: A goroutine waiting on a Cond
// When: Its context is canceled
// Then: Wait returns ErrCanceled wrapping the cause, the waiter is removed and the lock is held
func TestCond_WaitCanceled(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	c := NewCond(&mu)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	go func() {
		mu.Lock()
		err := c.Wait(ctx)
		// Must hold the lock here; TryLock would succeed otherwise.
		if mu.TryLock() {
			mu.Unlock()
			result <- errors.New("lock not held after Wait")
			return
		}
		mu.Unlock()
		result <- err
	}()
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.Waiters() == 1
	})

	// Act
	cancel()
	err := receive(t, result, time.Second)

	// Assert
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() = %v, want ErrCanceled wrapping context.Canceled", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if c.Waiters() != 0 {
		t.Errorf("Waiters() = %d, want 0", c.Waiters())
	}
}

func TestCond_WaitOnDoneContext(t *testing.T) {
	var mu sync.Mutex
	c := NewCond(&mu)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	mu.Lock()
	defer mu.Unlock()
	err := c.Wait(ctx)

	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want ErrCanceled wrapping DeadlineExceeded", err)
	}
	if c.Waiters() != 0 {
		t.Errorf("Waiters() = %d, want 0", c.Waiters())
	}
}

// TestCond_CanceledSignalIsForwarded verifies a signal is not lost
// Given: Two waiters, the first of which is signalled and canceled at the same time
// When: The first waiter observes its cancellation
// Then: The second waiter still wakes
func TestCond_CanceledSignalIsForwarded(t *testing.T) {
	// Arrange
	var mu sync.Mutex
	c := NewCond(&mu)
	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	second := make(chan error, 1)

	go func() {
		mu.Lock()
		defer mu.Unlock()
		first <- c.Wait(ctx1)
	}()
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.Waiters() == 1
	})
	go func() {
		mu.Lock()
		defer mu.Unlock()
		second <- c.Wait(context.Background())
	}()
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return c.Waiters() == 2
	})

	// Act: signal and cancel while holding the lock, so the first waiter
	// sees both ready when it runs.
	mu.Lock()
	c.Signal()
	cancel1()
	mu.Unlock()

	// Assert: whichever way the first waiter resolved, nobody is stranded.
	err1 := receive(t, first, time.Second)
	if err1 != nil {
		if err := receive(t, second, time.Second); err != nil {
			t.Fatalf("second Wait() = %v, want nil", err)
		}
		return
	}
	// The first waiter consumed the signal; wake the second normally.
	mu.Lock()
	c.Signal()
	mu.Unlock()
	if err := receive(t, second, time.Second); err != nil {
		t.Fatalf("second Wait() = %v, want nil", err)
	}
}

// TestCond_WaitReportsConsumedSignal verifies a canceled waiter tells whether it held a wakeup
// Given: A waiter canceled without a signal, and a waiter signalled and canceled together
// When: Each returns from wait
// Then: Only the signalled one reports that it was dequeued
func TestCond_WaitReportsConsumedSignal(t *testing.T) {
	type outcome struct {
		signalled bool
		err       error
	}
	var mu sync.Mutex
	c := NewCond(&mu)
	start := func(ctx context.Context) <-chan outcome {
		out := make(chan outcome, 1)
		go func() {
			mu.Lock()
			defer mu.Unlock()
			signalled, err := c.wait(ctx)
			out <- outcome{signalled, err}
		}()
		waitFor(t, time.Second, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return c.Waiters() == 1
		})
		return out
	}

	// Canceled while still queued.
	ctx, cancel := context.WithCancel(context.Background())
	result := start(ctx)
	cancel()
	if got := receive(t, result, time.Second); got.signalled || !errors.Is(got.err, ErrCanceled) {
		t.Errorf("unsignalled cancel = %+v, want signalled=false and ErrCanceled", got)
	}

	// Signalled and canceled under one lock hold: either branch may win,
	// but the waiter was dequeued in both.
	ctx, cancel = context.WithCancel(context.Background())
	result = start(ctx)
	mu.Lock()
	c.Signal()
	cancel()
	mu.Unlock()
	if got := receive(t, result, time.Second); !got.signalled {
		t.Errorf("signalled cancel = %+v, want signalled=true", got)
	}
}
