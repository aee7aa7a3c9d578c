package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultForksName = "forks"

// ForkState is the state of one fork slot.
type ForkState int

const (
	ForkFree ForkState = iota
	ForkHeld
)

func (s ForkState) String() string {
	switch s {
	case ForkFree:
		return "free"
	case ForkHeld:
		return "held"
	default:
		return fmt.Sprintf("ForkState(%d)", int(s))
	}
}

type fork struct {
	state ForkState
	freed *Cond
}

// ForkManager guards N forks laid out in a ring. Every fork has its own wait
// set but all of them share one mutex, so a release signals exactly one
// waiter of that fork: waiters of different forks never compete.
type ForkManager struct {
	mu    sync.Mutex
	forks []fork
	held  int

	name    string
	logger  Logger
	metrics Metrics
}

// NewForkManager creates n free forks. n must be at least 2.
func NewForkManager(n int) (*ForkManager, error) {
	if n < 2 {
		return nil, invalid("forks", "must be >= 2, got %d", n)
	}
	m := &ForkManager{
		forks:   make([]fork, n),
		name:    defaultForksName,
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	for i := range m.forks {
		m.forks[i].freed = NewCond(&m.mu)
	}
	return m, nil
}

// SetName sets the name used in logs and metrics.
func (m *ForkManager) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// SetLogger sets the logger.
func (m *ForkManager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = loggerOrNoOp(logger)
}

// SetMetrics sets the metrics sink.
func (m *ForkManager) SetMetrics(metrics Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metricsOrNil(metrics)
}

// Len returns the number of forks.
func (m *ForkManager) Len() int {
	return len(m.forks)
}

// Left returns the index counter-clockwise of i.
func (m *ForkManager) Left(i int) int {
	return (i - 1 + len(m.forks)) % len(m.forks)
}

// Right returns the index clockwise of i.
func (m *ForkManager) Right(i int) int {
	return (i + 1) % len(m.forks)
}

func (m *ForkManager) check(i int) {
	if i < 0 || i >= len(m.forks) {
		panic(fmt.Sprintf("forks: index %d out of range [0,%d)", i, len(m.forks)))
	}
}

// Acquire blocks until fork i is free and then takes it.
func (m *ForkManager) Acquire(ctx context.Context, i int) error {
	m.check(i)

	m.mu.Lock()
	defer m.mu.Unlock()

	f := &m.forks[i]
	var waitStart time.Time
	for f.state == ForkHeld {
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		if err := f.freed.Wait(ctx); err != nil {
			m.metrics.RecordCancellation(m.name, "acquire")
			m.logger.Debug("acquire canceled", F("forks", m.name), F("fork", i))
			return err
		}
	}
	if !waitStart.IsZero() {
		m.metrics.RecordWait(m.name, "acquire", time.Since(waitStart))
	}

	f.state = ForkHeld
	m.held++
	m.metrics.RecordOccupancy(m.name, m.held)
	return nil
}

// TryAcquire takes fork i if it is free and reports whether it did.
func (m *ForkManager) TryAcquire(i int) bool {
	m.check(i)

	m.mu.Lock()
	defer m.mu.Unlock()

	f := &m.forks[i]
	if f.state == ForkHeld {
		return false
	}
	f.state = ForkHeld
	m.held++
	m.metrics.RecordOccupancy(m.name, m.held)
	return true
}

// Release frees fork i and wakes one of its waiters. It panics if the fork is
// not held.
func (m *ForkManager) Release(i int) {
	m.check(i)

	m.mu.Lock()
	defer m.mu.Unlock()

	f := &m.forks[i]
	if f.state != ForkHeld {
		panic(fmt.Sprintf("forks: release of free fork %d", i))
	}
	f.state = ForkFree
	m.held--
	m.metrics.RecordOccupancy(m.name, m.held)
	f.freed.Signal()
}

// AcquirePair takes first and then second. If ctx is done after first was
// taken, first is released again before the error is returned, so the caller
// never observes a partial acquisition.
func (m *ForkManager) AcquirePair(ctx context.Context, first, second int) error {
	if err := m.Acquire(ctx, first); err != nil {
		return err
	}
	if err := m.Acquire(ctx, second); err != nil {
		m.Release(first)
		return err
	}
	return nil
}

// State returns the state of fork i.
func (m *ForkManager) State(i int) ForkState {
	m.check(i)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forks[i].state
}

// Waiting returns the number of actors blocked acquiring fork i.
func (m *ForkManager) Waiting(i int) int {
	m.check(i)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forks[i].freed.Waiters()
}

// Stats returns a snapshot of all forks.
func (m *ForkManager) Stats() ForkStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := ForkStats{
		Name:    m.name,
		Forks:   len(m.forks),
		Held:    m.held,
		States:  make([]ForkState, len(m.forks)),
		Waiting: make([]int, len(m.forks)),
	}
	for i := range m.forks {
		s.States[i] = m.forks[i].state
		s.Waiting[i] = m.forks[i].freed.Waiters()
	}
	return s
}
