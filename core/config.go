package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayRange bounds a random delay. Zero bounds mean "no delay".
type DelayRange struct {
	Min time.Duration `toml:"min"`
	Max time.Duration `toml:"max"`
}

// Fixed returns a range that always yields d.
func Fixed(d time.Duration) DelayRange {
	return DelayRange{Min: d, Max: d}
}

// Between returns a range yielding delays in [min, max].
func Between(min, max time.Duration) DelayRange {
	return DelayRange{Min: min, Max: max}
}

// Pick draws a delay uniformly from [Min, Max].
func (r DelayRange) Pick(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int64N(int64(r.Max-r.Min)+1))
}

func (r DelayRange) validate(field string) error {
	if r.Min < 0 {
		return invalid(field, "min must be >= 0, got %v", r.Min)
	}
	if r.Max < r.Min {
		return invalid(field, "max %v is below min %v", r.Max, r.Min)
	}
	return nil
}

// NewRand returns a PCG-backed generator for one actor. The same (seed, stream)
// pair always yields the same sequence; seed 0 picks a time-based seed.
func NewRand(seed uint64, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, stream))
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return canceled(ctx)
	}
}

// AcquireOrder selects the order in which a philosopher picks up its forks.
type AcquireOrder int

const (
	// OrderOwnFirst takes the philosopher's own fork and then its right
	// neighbour's. Every philosopher uses the same order around a ring, which
	// allows a circular wait: the table can deadlock.
	OrderOwnFirst AcquireOrder = iota

	// OrderAsymmetric is OrderOwnFirst except that the highest-indexed
	// philosopher takes its right neighbour's fork (fork 0) first. This breaks
	// the cycle.
	OrderAsymmetric
)

func (o AcquireOrder) String() string {
	switch o {
	case OrderOwnFirst:
		return "own-first"
	case OrderAsymmetric:
		return "asymmetric"
	default:
		return fmt.Sprintf("AcquireOrder(%d)", int(o))
	}
}

// ParseAcquireOrder parses the String form of an AcquireOrder.
func ParseAcquireOrder(s string) (AcquireOrder, error) {
	switch s {
	case "own-first", "":
		return OrderOwnFirst, nil
	case "asymmetric":
		return OrderAsymmetric, nil
	default:
		return 0, invalid("order", "unknown acquire order %q", s)
	}
}

func (o AcquireOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *AcquireOrder) UnmarshalText(text []byte) error {
	v, err := ParseAcquireOrder(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// BufferConfig configures the producer/consumer demonstration.
type BufferConfig struct {
	Capacity  int        `toml:"capacity"`
	Producers int        `toml:"producers"`
	Consumers int        `toml:"consumers"`
	Produce   DelayRange `toml:"produce"`
	Consume   DelayRange `toml:"consume"`
	Seed      uint64     `toml:"seed"`
}

func (c BufferConfig) Validate() error {
	var errs []error
	if c.Capacity < 1 {
		errs = append(errs, invalid("buffer.capacity", "must be >= 1, got %d", c.Capacity))
	}
	if c.Producers < 1 {
		errs = append(errs, invalid("buffer.producers", "must be >= 1, got %d", c.Producers))
	}
	if c.Consumers < 1 {
		errs = append(errs, invalid("buffer.consumers", "must be >= 1, got %d", c.Consumers))
	}
	errs = append(errs, c.Produce.validate("buffer.produce"), c.Consume.validate("buffer.consume"))
	return errors.Join(errs...)
}

// BridgeConfig configures the single-lane bridge demonstration.
type BridgeConfig struct {
	LeftCars  int        `toml:"left_cars"`
	RightCars int        `toml:"right_cars"`
	Cross     DelayRange `toml:"cross"`
	Arrive    DelayRange `toml:"arrive"`
	Trips     int        `toml:"trips"`
	Seed      uint64     `toml:"seed"`
}

func (c BridgeConfig) Validate() error {
	var errs []error
	if c.LeftCars < 0 {
		errs = append(errs, invalid("bridge.left_cars", "must be >= 0, got %d", c.LeftCars))
	}
	if c.RightCars < 0 {
		errs = append(errs, invalid("bridge.right_cars", "must be >= 0, got %d", c.RightCars))
	}
	if c.LeftCars+c.RightCars < 1 {
		errs = append(errs, invalid("bridge", "needs at least one car"))
	}
	if c.Trips < 0 {
		errs = append(errs, invalid("bridge.trips", "must be >= 0, got %d", c.Trips))
	}
	errs = append(errs, c.Cross.validate("bridge.cross"), c.Arrive.validate("bridge.arrive"))
	return errors.Join(errs...)
}

// TableConfig configures the dining philosophers.
type TableConfig struct {
	Philosophers int        `toml:"philosophers"`
	Think        DelayRange `toml:"think"`
	Eat          DelayRange `toml:"eat"`

	// PickupPause is slept between taking the first and the second fork.
	// A long pause makes the circular wait of OrderOwnFirst very likely.
	PickupPause time.Duration `toml:"pickup_pause"`

	Order AcquireOrder `toml:"order"`

	// Rounds is the number of meals after which a philosopher leaves the
	// table. Zero means dine until canceled.
	Rounds int `toml:"rounds"`

	Seed        uint64 `toml:"seed"`
	HistorySize int    `toml:"history_size"`
}

func (c TableConfig) Validate() error {
	var errs []error
	if c.Philosophers < 2 {
		errs = append(errs, invalid("table.philosophers", "must be >= 2, got %d", c.Philosophers))
	}
	if c.PickupPause < 0 {
		errs = append(errs, invalid("table.pickup_pause", "must be >= 0, got %v", c.PickupPause))
	}
	if c.Order != OrderOwnFirst && c.Order != OrderAsymmetric {
		errs = append(errs, invalid("table.order", "unknown acquire order %d", int(c.Order)))
	}
	if c.Rounds < 0 {
		errs = append(errs, invalid("table.rounds", "must be >= 0, got %d", c.Rounds))
	}
	errs = append(errs, c.Think.validate("table.think"), c.Eat.validate("table.eat"))
	return errors.Join(errs...)
}

// LightsConfig configures the traffic light demonstration.
type LightsConfig struct {
	Lights      int           `toml:"lights"`
	Cars        int           `toml:"cars"`
	Pass        DelayRange    `toml:"pass"`
	SwitchEvery time.Duration `toml:"switch_every"`
	Seed        uint64        `toml:"seed"`
}

func (c LightsConfig) Validate() error {
	var errs []error
	if c.Lights < 1 {
		errs = append(errs, invalid("lights.lights", "must be >= 1, got %d", c.Lights))
	}
	if c.Cars < 1 {
		errs = append(errs, invalid("lights.cars", "must be >= 1, got %d", c.Cars))
	}
	if c.SwitchEvery <= 0 {
		errs = append(errs, invalid("lights.switch_every", "must be > 0, got %v", c.SwitchEvery))
	}
	errs = append(errs, c.Pass.validate("lights.pass"))
	return errors.Join(errs...)
}

// Config holds the construction parameters of every demonstration.
type Config struct {
	Buffer BufferConfig `toml:"buffer"`
	Bridge BridgeConfig `toml:"bridge"`
	Table  TableConfig  `toml:"table"`
	Lights LightsConfig `toml:"lights"`
}

// DefaultConfig returns a 15-slot buffer with one producer and one consumer,
// three cars per side of the bridge, five philosophers using the own-first
// order with a half-second pickup pause, and four lights switching every second.
func DefaultConfig() Config {
	return Config{
		Buffer: BufferConfig{
			Capacity:  15,
			Producers: 1,
			Consumers: 1,
			Produce:   Between(0, 100*time.Millisecond),
			Consume:   Between(0, 500*time.Millisecond),
		},
		Bridge: BridgeConfig{
			LeftCars:  3,
			RightCars: 3,
			Cross:     Between(50*time.Millisecond, 200*time.Millisecond),
			Arrive:    Between(0, 500*time.Millisecond),
		},
		Table: TableConfig{
			Philosophers: 5,
			Think:        Between(0, 500*time.Millisecond),
			Eat:          Between(0, 500*time.Millisecond),
			PickupPause:  500 * time.Millisecond,
			Order:        OrderOwnFirst,
		},
		Lights: LightsConfig{
			Lights:      4,
			Cars:        3,
			Pass:        Between(0, 500*time.Millisecond),
			SwitchEvery: time.Second,
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	return errors.Join(
		c.Buffer.Validate(),
		c.Bridge.Validate(),
		c.Table.Validate(),
		c.Lights.Validate(),
	)
}
