package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewForkManager_Validation(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := NewForkManager(n); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewForkManager(%d) = %v, want ErrInvalidConfig", n, err)
		}
	}
}

func TestForkManager_Neighbours(t *testing.T) {
	m, _ := NewForkManager(5)

	tests := []struct{ id, left, right int }{
		{0, 4, 1},
		{2, 1, 3},
		{4, 3, 0},
	}
	for _, tt := range tests {
		if got := m.Left(tt.id); got != tt.left {
			t.Errorf("Left(%d) = %d, want %d", tt.id, got, tt.left)
		}
		if got := m.Right(tt.id); got != tt.right {
			t.Errorf("Right(%d) = %d, want %d", tt.id, got, tt.right)
		}
	}
}

// TestForkManager_ReleaseWakesOneWaiter verifies signal-one semantics
// Given: Fork 2 held and two goroutines waiting for it
// When: The fork is released once
// Then: Exactly one waiter gets it; the other keeps waiting until the next release
func TestForkManager_ReleaseWakesOneWaiter(t *testing.T) {
	// Arrange
	m, _ := NewForkManager(5)
	ctx := context.Background()
	if err := m.Acquire(ctx, 2); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan int, 2)
	for i := range 2 {
		go func() {
			if m.Acquire(ctx, 2) == nil {
				acquired <- i
			}
		}()
		waitFor(t, time.Second, func() bool { return m.Waiting(2) == i+1 })
	}

	// Act
	m.Release(2)

	// Assert
	if first := receive(t, acquired, time.Second); first != 0 {
		t.Errorf("first waiter = %d, want 0", first)
	}
	assertBlocked(t, acquired, 30*time.Millisecond)
	if m.State(2) != ForkHeld {
		t.Errorf("fork 2 = %v, want held", m.State(2))
	}

	m.Release(2)
	if second := receive(t, acquired, time.Second); second != 1 {
		t.Errorf("second waiter = %d, want 1", second)
	}
}

func TestForkManager_ForksAreIndependent(t *testing.T) {
	m, _ := NewForkManager(3)
	ctx := context.Background()

	m.Acquire(ctx, 0)
	if !m.TryAcquire(1) {
		t.Fatal("TryAcquire(1) = false while only fork 0 is held")
	}
	if m.TryAcquire(0) {
		t.Fatal("TryAcquire(0) = true while fork 0 is held")
	}

	want := ForkStats{
		Name:    "forks",
		Forks:   3,
		Held:    2,
		States:  []ForkState{ForkHeld, ForkHeld, ForkFree},
		Waiting: []int{0, 0, 0},
	}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

// TestForkManager_AcquirePairCancelReleasesFirst verifies no partial acquisition
// Given: Fork 1 held by someone else
// When: AcquirePair(0, 1) is canceled while waiting for fork 1
// Then: Fork 0 is free again
func TestForkManager_AcquirePairCancelReleasesFirst(t *testing.T) {
	// Arrange
	m, _ := NewForkManager(3)
	m.Acquire(context.Background(), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	err := m.AcquirePair(ctx, 0, 1)

	// Assert
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("AcquirePair() = %v, want ErrCanceled", err)
	}
	if m.State(0) != ForkFree {
		t.Errorf("fork 0 = %v, want free", m.State(0))
	}
	if m.Waiting(1) != 0 {
		t.Errorf("Waiting(1) = %d, want 0", m.Waiting(1))
	}
}

func TestForkManager_Panics(t *testing.T) {
	m, _ := NewForkManager(3)
	assertPanics(t, "release free fork", func() { m.Release(0) })
	assertPanics(t, "index out of range", func() { m.State(3) })
	assertPanics(t, "negative index", func() { m.Acquire(context.Background(), -1) })
}
