package monitors

import "github.com/Swind/go-monitors/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the monitors package for most use cases.

// BoundedBuffer is a fixed-capacity FIFO shared by producers and consumers
type BoundedBuffer[T any] = core.BoundedBuffer[T]

// BridgeArbiter grants a single-lane bridge to one car at a time
type BridgeArbiter = core.BridgeArbiter

// ForkManager guards the forks of the dining philosophers
type ForkManager = core.ForkManager

// Table seats the dining philosophers
type Table = core.Table

// Philosopher is one actor at a Table
type Philosopher = core.Philosopher

// TrafficLight holds cars while red
type TrafficLight = core.TrafficLight

// Direction is the side a car enters the bridge from
type Direction = core.Direction

// PhilosopherState is Thinking, Hungry or Eating
type PhilosopherState = core.PhilosopherState

// StateEvent is one observed philosopher transition
type StateEvent = core.StateEvent

// AcquireOrder selects how philosophers pick up forks
type AcquireOrder = core.AcquireOrder

// Config holds the parameters of every demonstration
type Config = core.Config

// Direction, state and order constants
const (
	Left  = core.Left
	Right = core.Right

	Thinking = core.Thinking
	Hungry   = core.Hungry
	Eating   = core.Eating

	OrderOwnFirst   = core.OrderOwnFirst
	OrderAsymmetric = core.OrderAsymmetric
)

// Errors shared by all monitors
var (
	ErrCanceled      = core.ErrCanceled
	ErrInvalidConfig = core.ErrInvalidConfig
)

// NewBoundedBuffer creates an empty buffer holding at most capacity items.
func NewBoundedBuffer[T any](capacity int) (*BoundedBuffer[T], error) {
	return core.NewBoundedBuffer[T](capacity)
}

// NewBridgeArbiter creates a free bridge.
func NewBridgeArbiter() *BridgeArbiter {
	return core.NewBridgeArbiter()
}

// NewForkManager creates n free forks.
func NewForkManager(n int) (*ForkManager, error) {
	return core.NewForkManager(n)
}

// NewTable seats cfg.Philosophers philosophers.
func NewTable(cfg core.TableConfig) (*Table, error) {
	return core.NewTable(cfg)
}

// NewTrafficLight creates a red light.
func NewTrafficLight() *TrafficLight {
	return core.NewTrafficLight()
}

// DefaultConfig returns the classroom defaults.
var DefaultConfig = core.DefaultConfig

// IsCanceled reports whether err is a cancellation outcome.
var IsCanceled = core.IsCanceled
