package core

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
)

// Producer puts an increasing counter into a buffer, pausing a random delay
// after every item.
type Producer struct {
	name   string
	buf    *BoundedBuffer[int]
	delay  DelayRange
	limit  int
	rng    *rand.Rand
	logger Logger

	produced atomic.Int64
}

// NewProducer creates a producer. A limit of 0 produces until canceled.
func NewProducer(name string, buf *BoundedBuffer[int], delay DelayRange, limit int, rng *rand.Rand) *Producer {
	return &Producer{
		name:   name,
		buf:    buf,
		delay:  delay,
		limit:  limit,
		rng:    rng,
		logger: NewNoOpLogger(),
	}
}

// SetLogger sets the logger.
func (p *Producer) SetLogger(logger Logger) {
	p.logger = loggerOrNoOp(logger)
}

// Produced returns the number of items put so far.
func (p *Producer) Produced() int64 {
	return p.produced.Load()
}

func (p *Producer) Run(ctx context.Context) error {
	for count := 0; p.limit == 0 || count < p.limit; count++ {
		if err := p.buf.Put(ctx, count); err != nil {
			return err
		}
		p.produced.Add(1)
		p.logger.Debug("produced", F("producer", p.name), F("item", count))
		if err := sleep(ctx, p.delay.Pick(p.rng)); err != nil {
			return err
		}
	}
	return nil
}

// Consumer takes items out of a buffer, pausing a random delay after every
// item.
type Consumer struct {
	name   string
	buf    *BoundedBuffer[int]
	delay  DelayRange
	limit  int
	rng    *rand.Rand
	logger Logger

	consumed atomic.Int64
}

// NewConsumer creates a consumer. A limit of 0 consumes until canceled.
func NewConsumer(name string, buf *BoundedBuffer[int], delay DelayRange, limit int, rng *rand.Rand) *Consumer {
	return &Consumer{
		name:   name,
		buf:    buf,
		delay:  delay,
		limit:  limit,
		rng:    rng,
		logger: NewNoOpLogger(),
	}
}

// SetLogger sets the logger.
func (c *Consumer) SetLogger(logger Logger) {
	c.logger = loggerOrNoOp(logger)
}

// Consumed returns the number of items taken so far.
func (c *Consumer) Consumed() int64 {
	return c.consumed.Load()
}

func (c *Consumer) Run(ctx context.Context) error {
	for n := 0; c.limit == 0 || n < c.limit; n++ {
		item, err := c.buf.Get(ctx)
		if err != nil {
			return err
		}
		c.consumed.Add(1)
		c.logger.Debug("consumed", F("consumer", c.name), F("item", item))
		if err := sleep(ctx, c.delay.Pick(c.rng)); err != nil {
			return err
		}
	}
	return nil
}

// BridgeCar drives back and forth over a single-lane bridge. Every trip waits
// an arrival delay, enters from the car's current side, spends the crossing
// time on the bridge and leaves on the other side.
type BridgeCar struct {
	name   string
	bridge *BridgeArbiter
	side   Direction
	arrive DelayRange
	cross  DelayRange
	trips  int
	rng    *rand.Rand
	logger Logger

	crossed atomic.Int64
}

// NewBridgeCar creates a car starting on side. A trips value of 0 drives
// until canceled.
func NewBridgeCar(name string, bridge *BridgeArbiter, side Direction, cfg BridgeConfig, rng *rand.Rand) *BridgeCar {
	return &BridgeCar{
		name:   name,
		bridge: bridge,
		side:   side,
		arrive: cfg.Arrive,
		cross:  cfg.Cross,
		trips:  cfg.Trips,
		rng:    rng,
		logger: NewNoOpLogger(),
	}
}

// SetLogger sets the logger.
func (c *BridgeCar) SetLogger(logger Logger) {
	c.logger = loggerOrNoOp(logger)
}

// Crossed returns the number of completed crossings.
func (c *BridgeCar) Crossed() int64 {
	return c.crossed.Load()
}

func (c *BridgeCar) Run(ctx context.Context) error {
	for trip := 0; c.trips == 0 || trip < c.trips; trip++ {
		if err := sleep(ctx, c.arrive.Pick(c.rng)); err != nil {
			return err
		}
		if err := c.bridge.Enter(ctx, c.side); err != nil {
			return err
		}
		c.logger.Debug("on bridge", F("car", c.name), F("from", c.side))

		// The car is on the bridge; it always gets off before returning.
		err := sleep(ctx, c.cross.Pick(c.rng))
		c.bridge.Leave(c.side)
		if err != nil {
			return err
		}
		c.crossed.Add(1)
		c.side = c.side.Opposite()
	}
	return nil
}

// LightCar drives endlessly around a ring of traffic lights, passing each one
// in turn.
type LightCar struct {
	name   string
	lights []*TrafficLight
	pass   DelayRange
	rng    *rand.Rand
	logger Logger

	pos    atomic.Int64
	passed atomic.Int64
}

// NewLightCar creates a car waiting at the first light.
func NewLightCar(name string, lights []*TrafficLight, pass DelayRange, rng *rand.Rand) *LightCar {
	return &LightCar{
		name:   name,
		lights: lights,
		pass:   pass,
		rng:    rng,
		logger: NewNoOpLogger(),
	}
}

// SetLogger sets the logger.
func (c *LightCar) SetLogger(logger Logger) {
	c.logger = loggerOrNoOp(logger)
}

// Position returns the index of the light the car is at or heading to.
func (c *LightCar) Position() int {
	return int(c.pos.Load())
}

// Passed returns the number of lights passed.
func (c *LightCar) Passed() int64 {
	return c.passed.Load()
}

func (c *LightCar) Run(ctx context.Context) error {
	for {
		pos := c.Position()
		if err := c.lights[pos].PassBy(ctx); err != nil {
			return err
		}
		c.passed.Add(1)
		c.logger.Debug("passed light", F("car", c.name), F("light", pos))
		if err := sleep(ctx, c.pass.Pick(c.rng)); err != nil {
			return err
		}
		c.pos.Store(int64((pos + 1) % len(c.lights)))
	}
}

// LightSwitcher turns a ring of lights green one after the other: every
// interval the green light turns red and the next one turns green.
type LightSwitcher struct {
	lights []*TrafficLight
	cfg    LightsConfig
	logger Logger

	current int
}

// NewLightSwitcher creates a switcher for lights, which should all be red.
func NewLightSwitcher(lights []*TrafficLight, cfg LightsConfig) *LightSwitcher {
	return &LightSwitcher{
		lights:  lights,
		cfg:     cfg,
		logger:  NewNoOpLogger(),
		current: -1,
	}
}

// SetLogger sets the logger.
func (s *LightSwitcher) SetLogger(logger Logger) {
	s.logger = loggerOrNoOp(logger)
}

// Step turns the current green light red and the next light green.
func (s *LightSwitcher) Step() int {
	if s.current >= 0 {
		s.lights[s.current].SwitchToRed()
	}
	s.current = (s.current + 1) % len(s.lights)
	s.lights[s.current].SwitchToGreen()
	s.logger.Debug("light green", F("light", s.current))
	return s.current
}

func (s *LightSwitcher) Run(ctx context.Context) error {
	for {
		s.Step()
		if err := sleep(ctx, s.cfg.SwitchEvery); err != nil {
			return err
		}
	}
}
