package core

import "time"

// BufferStats represents runtime observability state for a bounded buffer.
type BufferStats struct {
	Name     string
	Capacity int
	Size     int
	Waiting  int
	Puts     int64
	Gets     int64
}

// BridgeStats represents runtime observability state for a bridge arbiter.
type BridgeStats struct {
	Name           string
	Occupied       bool
	Occupant       string
	WaitingLeft    int
	WaitingRight   int
	CrossingsLeft  int64
	CrossingsRight int64
}

// ForkStats represents runtime observability state for a fork manager.
type ForkStats struct {
	Name    string
	Forks   int
	Held    int
	States  []ForkState
	Waiting []int
}

// TableStats represents runtime observability state for a philosopher table.
type TableStats struct {
	Name         string
	Philosophers int
	Order        string
	Transitions  uint64
	Violations   int64
	Meals        []int64
	Thinking     int
	Hungry       int
	Eating       int
	HoldingOne   int
	Deadlocked   bool
	HeldForks    int
}

// LightStats represents runtime observability state for a traffic light.
type LightStats struct {
	Name    string
	Red     bool
	Waiting int
	Passed  int64
}

// ActorRecord captures one finished actor.
type ActorRecord struct {
	Name       string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Err        error
	Panicked   bool
}

// HostStats represents runtime observability state for an actor host.
type HostStats struct {
	ID       string
	Actors   int
	Active   int
	Finished int
	Failed   int
	Running  bool
}
