package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultBridgeName = "bridge"

// Direction is the lane an actor uses to enter the bridge.
type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the other lane.
func (d Direction) Opposite() Direction {
	if d == Left {
		return Right
	}
	return Left
}

func (d Direction) valid() bool {
	return d == Left || d == Right
}

// BridgeArbiter admits one actor at a time onto a single-lane bridge that is
// entered from either side.
//
// Waiters are kept per direction. When the occupant leaves, one waiter of the
// same direction is woken if there is any, otherwise one of the opposite
// direction. The favoured direction keeps the bridge only while its queue is
// non-empty, so the other side is served as soon as it drains.
type BridgeArbiter struct {
	mu       sync.Mutex
	occupied bool
	occupant Direction
	waiting  [2]*Cond

	crossings [2]int64

	name    string
	logger  Logger
	metrics Metrics
}

// NewBridgeArbiter creates a free bridge.
func NewBridgeArbiter() *BridgeArbiter {
	b := &BridgeArbiter{
		name:    defaultBridgeName,
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	b.waiting[Left] = NewCond(&b.mu)
	b.waiting[Right] = NewCond(&b.mu)
	return b
}

// SetName sets the name used in logs and metrics.
func (b *BridgeArbiter) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
}

// SetLogger sets the logger.
func (b *BridgeArbiter) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = loggerOrNoOp(logger)
}

// SetMetrics sets the metrics sink.
func (b *BridgeArbiter) SetMetrics(metrics Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = metricsOrNil(metrics)
}

// Enter blocks until the bridge is free and then occupies it from dir.
func (b *BridgeArbiter) Enter(ctx context.Context, dir Direction) error {
	if !dir.valid() {
		panic(fmt.Sprintf("bridge: invalid direction %d", int(dir)))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	op := "enter_" + dir.String()
	var waitStart time.Time
	for b.occupied {
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		signalled, err := b.waiting[dir].wait(ctx)
		if err != nil {
			if signalled && !b.occupied {
				// Leave picked this waiter; pass its turn on under the same policy.
				b.wakeNextLocked(dir)
			}
			b.metrics.RecordCancellation(b.name, op)
			b.logger.Debug("enter canceled", F("bridge", b.name), F("direction", dir))
			return err
		}
	}
	if !waitStart.IsZero() {
		b.metrics.RecordWait(b.name, op, time.Since(waitStart))
	}

	b.occupied = true
	b.occupant = dir
	b.crossings[dir]++
	b.metrics.RecordOccupancy(b.name, 1)
	return nil
}

// EnterLeft enters the bridge from the left lane.
func (b *BridgeArbiter) EnterLeft(ctx context.Context) error {
	return b.Enter(ctx, Left)
}

// EnterRight enters the bridge from the right lane.
func (b *BridgeArbiter) EnterRight(ctx context.Context) error {
	return b.Enter(ctx, Right)
}

// Leave frees the bridge for an occupant that entered from dir and wakes the
// next waiter. dir is the lane the car entered from, not the side it exits on.
// It panics if the bridge is free or was entered from the other lane.
func (b *BridgeArbiter) Leave(dir Direction) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.occupied {
		panic("bridge: leave of free bridge")
	}
	if b.occupant != dir {
		panic(fmt.Sprintf("bridge: leave %s but occupant entered %s", dir, b.occupant))
	}

	b.occupied = false
	b.metrics.RecordOccupancy(b.name, 0)
	b.wakeNextLocked(dir)
}

// wakeNextLocked wakes one waiter, preferring the lane that just vacated.
func (b *BridgeArbiter) wakeNextLocked(dir Direction) {
	if b.waiting[dir].Waiters() > 0 {
		b.waiting[dir].Signal()
	} else {
		b.waiting[dir.Opposite()].Signal()
	}
}

// LeaveLeft is the exit of an actor that called EnterLeft.
func (b *BridgeArbiter) LeaveLeft() {
	b.Leave(Left)
}

// LeaveRight is the exit of an actor that called EnterRight.
func (b *BridgeArbiter) LeaveRight() {
	b.Leave(Right)
}

// Occupied reports whether an actor is on the bridge.
func (b *BridgeArbiter) Occupied() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.occupied
}

// Waiting returns the number of actors blocked entering from dir.
func (b *BridgeArbiter) Waiting(dir Direction) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting[dir].Waiters()
}

// Stats returns a snapshot of the bridge state.
func (b *BridgeArbiter) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BridgeStats{
		Name:           b.name,
		Occupied:       b.occupied,
		WaitingLeft:    b.waiting[Left].Waiters(),
		WaitingRight:   b.waiting[Right].Waiters(),
		CrossingsLeft:  b.crossings[Left],
		CrossingsRight: b.crossings[Right],
	}
	if b.occupied {
		s.Occupant = b.occupant.String()
	}
	return s
}
