package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTableName = "table"

// PhilosopherState is the state of one philosopher.
type PhilosopherState int

const (
	Thinking PhilosopherState = iota
	Hungry
	Eating
)

func (s PhilosopherState) String() string {
	switch s {
	case Thinking:
		return "thinking"
	case Hungry:
		return "hungry"
	case Eating:
		return "eating"
	default:
		return fmt.Sprintf("PhilosopherState(%d)", int(s))
	}
}

// StateEvent records one philosopher transition. Seq increases by one per
// transition across the whole table.
type StateEvent struct {
	RunID       uuid.UUID
	Philosopher int
	State       PhilosopherState
	Seq         uint64
	At          time.Time
}

// Table seats N philosophers around N forks and owns their shared state.
//
// The philosopher state array is guarded by the table's own mutex; fork state
// lives in the ForkManager behind its own mutex. The table never holds its
// mutex while calling into the ForkManager.
type Table struct {
	mu         sync.Mutex
	states     []PhilosopherState
	held       []int
	meals      []int64
	seq        uint64
	violations int64

	cfg          TableConfig
	forks        *ForkManager
	philosophers []*Philosopher
	bus          *EventBus[StateEvent]
	history      *history[StateEvent]
	runID        uuid.UUID

	name    string
	logger  Logger
	metrics Metrics
}

// NewTable validates cfg and seats cfg.Philosophers philosophers, all Thinking.
func NewTable(cfg TableConfig) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	forks, err := NewForkManager(cfg.Philosophers)
	if err != nil {
		return nil, err
	}

	n := cfg.Philosophers
	t := &Table{
		states:  make([]PhilosopherState, n),
		held:    make([]int, n),
		meals:   make([]int64, n),
		cfg:     cfg,
		forks:   forks,
		bus:     NewEventBus[StateEvent](),
		history: newHistory[StateEvent](cfg.HistorySize),
		runID:   uuid.New(),
		name:    defaultTableName,
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	t.philosophers = make([]*Philosopher, n)
	for id := range n {
		t.philosophers[id] = &Philosopher{
			id:    id,
			table: t,
			rng:   NewRand(cfg.Seed, uint64(id)),
		}
	}
	return t, nil
}

// SetName sets the name used in logs and metrics.
func (t *Table) SetName(name string) {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
	t.forks.SetName(name + "_forks")
}

// SetLogger sets the logger used by the table, its forks and philosophers.
func (t *Table) SetLogger(logger Logger) {
	t.mu.Lock()
	t.logger = loggerOrNoOp(logger)
	t.mu.Unlock()
	t.forks.SetLogger(logger)
}

// SetMetrics sets the metrics sink used by the table and its forks.
func (t *Table) SetMetrics(metrics Metrics) {
	t.mu.Lock()
	t.metrics = metricsOrNil(metrics)
	t.mu.Unlock()
	t.forks.SetMetrics(metrics)
}

// RunID identifies this table in events and logs.
func (t *Table) RunID() uuid.UUID {
	return t.runID
}

// Len returns the number of philosophers.
func (t *Table) Len() int {
	return len(t.philosophers)
}

// Left returns the id of the philosopher to the left of id.
func (t *Table) Left(id int) int {
	return t.forks.Left(id)
}

// Right returns the id of the philosopher to the right of id.
func (t *Table) Right(id int) int {
	return t.forks.Right(id)
}

// Forks exposes the fork manager, mainly for inspection.
func (t *Table) Forks() *ForkManager {
	return t.forks
}

// Philosopher returns the philosopher seated at id.
func (t *Table) Philosopher(id int) *Philosopher {
	return t.philosophers[id]
}

// Philosophers returns every philosopher, ordered by id.
func (t *Table) Philosophers() []*Philosopher {
	out := make([]*Philosopher, len(t.philosophers))
	copy(out, t.philosophers)
	return out
}

// State returns the current state of philosopher id.
func (t *Table) State(id int) PhilosopherState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// States returns a consistent snapshot of every philosopher's state.
func (t *Table) States() []PhilosopherState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PhilosopherState, len(t.states))
	copy(out, t.states)
	return out
}

// Meals returns how many times philosopher id has eaten.
func (t *Table) Meals(id int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meals[id]
}

// Subscribe returns a subscription to state transitions.
func (t *Table) Subscribe() *Subscription[StateEvent] {
	return t.bus.Subscribe()
}

// Recent returns up to limit of the latest transitions, newest first.
func (t *Table) Recent(limit int) []StateEvent {
	return t.history.Recent(limit)
}

// Deadlocked reports whether every philosopher is hungry while holding exactly
// one fork. Each of them then waits for a fork held by a neighbour that will
// not let go before eating: a circular wait that cannot resolve.
func (t *Table) Deadlocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.states {
		if t.states[id] != Hungry || t.held[id] != 1 {
			return false
		}
	}
	return true
}

// Close closes the event stream. Call it after every philosopher has stopped;
// subscribers receive the remaining events and then see their channel closed.
func (t *Table) Close() {
	t.bus.Close()
}

// Stats returns a snapshot of the table.
func (t *Table) Stats() TableStats {
	t.mu.Lock()
	s := TableStats{
		Name:         t.name,
		Philosophers: len(t.states),
		Order:        t.cfg.Order.String(),
		Transitions:  t.seq,
		Violations:   t.violations,
		Meals:        make([]int64, len(t.meals)),
	}
	copy(s.Meals, t.meals)
	for id, st := range t.states {
		switch st {
		case Thinking:
			s.Thinking++
		case Hungry:
			s.Hungry++
		case Eating:
			s.Eating++
		}
		if st != Hungry || t.held[id] != 1 {
			continue
		}
		s.HoldingOne++
	}
	s.Deadlocked = s.HoldingOne == len(t.states)
	t.mu.Unlock()

	s.HeldForks = t.forks.Stats().Held
	return s
}

// setState publishes the transition while the new state is installed, so an
// observer never sees an event for a state that is not current yet.
func (t *Table) setState(id int, state PhilosopherState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == Eating {
		if t.states[t.Left(id)] == Eating || t.states[t.Right(id)] == Eating {
			t.violations++
			t.logger.Error("neighbour already eating",
				F("table", t.name), F("philosopher", id), F("states", fmt.Sprint(t.states)))
		}
		t.meals[id]++
	}

	t.states[id] = state
	t.seq++
	e := StateEvent{
		RunID:       t.runID,
		Philosopher: id,
		State:       state,
		Seq:         t.seq,
		At:          time.Now(),
	}
	t.history.Add(e)
	t.bus.Publish(e)
	t.metrics.RecordTransition(t.name, state.String())
	t.logger.Debug("philosopher transition",
		F("table", t.name), F("philosopher", id), F("state", state), F("seq", t.seq))
}

func (t *Table) noteHeld(id int, delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[id] += delta
}

// Philosopher is one actor at the table.
//
//	THINKING --think--> HUNGRY --first fork, pause, second fork--> EATING --eat--> THINKING
type Philosopher struct {
	id    int
	table *Table
	rng   *rand.Rand
}

// ID returns the seat index.
func (p *Philosopher) ID() int {
	return p.id
}

func (p *Philosopher) String() string {
	return fmt.Sprintf("philosopher-%d", p.id)
}

// LeftNeighbour returns the id of the philosopher to the left.
func (p *Philosopher) LeftNeighbour() int {
	return p.table.Left(p.id)
}

// RightNeighbour returns the id of the philosopher to the right.
func (p *Philosopher) RightNeighbour() int {
	return p.table.Right(p.id)
}

// State returns the philosopher's current state.
func (p *Philosopher) State() PhilosopherState {
	return p.table.State(p.id)
}

// Forks returns the fork indices in the order this philosopher acquires them.
func (p *Philosopher) Forks() (first, second int) {
	own, right := p.id, p.table.Right(p.id)
	if p.table.cfg.Order == OrderAsymmetric && p.id == p.table.Len()-1 {
		return right, own
	}
	return own, right
}

// Run dines until ctx is done or the configured number of meals was eaten.
// It returns nil after the last meal and a cancellation error otherwise; in
// both cases the philosopher holds no fork when Run returns.
func (p *Philosopher) Run(ctx context.Context) error {
	t := p.table
	t.logger.Debug("philosopher seated", F("table", t.name), F("philosopher", p.id))
	t.setState(p.id, Thinking)

	for meal := 0; t.cfg.Rounds == 0 || meal < t.cfg.Rounds; meal++ {
		if err := sleep(ctx, t.cfg.Think.Pick(p.rng)); err != nil {
			return err
		}
		if err := p.takeForks(ctx); err != nil {
			return err
		}
		if err := p.eat(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Philosopher) takeForks(ctx context.Context) error {
	t := p.table
	t.setState(p.id, Hungry)

	first, second := p.Forks()
	if err := t.forks.Acquire(ctx, first); err != nil {
		return err
	}
	t.noteHeld(p.id, 1)

	if err := sleep(ctx, t.cfg.PickupPause); err != nil {
		p.release(first)
		return err
	}

	if err := t.forks.Acquire(ctx, second); err != nil {
		p.release(first)
		return err
	}
	t.noteHeld(p.id, 1)
	return nil
}

// eat holds both forks for the eating time. The philosopher is back to
// Thinking before either fork is released, so a neighbour can never start
// eating while this philosopher still shows as Eating.
func (p *Philosopher) eat(ctx context.Context) error {
	t := p.table
	t.setState(p.id, Eating)
	err := sleep(ctx, t.cfg.Eat.Pick(p.rng))
	t.setState(p.id, Thinking)
	p.putForks()
	return err
}

func (p *Philosopher) putForks() {
	first, second := p.Forks()
	p.release(first)
	p.release(second)
}

// release lowers the held count before the fork becomes visible as free, so
// the count never exceeds what the philosopher really holds.
func (p *Philosopher) release(fork int) {
	p.table.noteHeld(p.id, -1)
	p.table.forks.Release(fork)
}
