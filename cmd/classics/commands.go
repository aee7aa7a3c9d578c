package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	monitors "github.com/Swind/go-monitors"
	"github.com/Swind/go-monitors/core"
)

func seedFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:  "seed",
		Usage: "random seed; 0 seeds from the clock",
	}
}

// BufferCommand runs producers and consumers around one bounded buffer.
func BufferCommand() *cli.Command {
	return &cli.Command{
		Name:    "buffer",
		Aliases: []string{"buf"},
		Usage:   "Producers and consumers sharing a bounded buffer",

		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity", Usage: "buffer capacity"},
			&cli.IntFlag{Name: "producers", Usage: "number of producers"},
			&cli.IntFlag{Name: "consumers", Usage: "number of consumers"},
			seedFlag(),
		},

		Action: BufferAction,
	}
}

func BufferAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	cfg := e.cfg.Buffer
	if c.IsSet("capacity") {
		cfg.Capacity = c.Int("capacity")
	}
	if c.IsSet("producers") {
		cfg.Producers = c.Int("producers")
	}
	if c.IsSet("consumers") {
		cfg.Consumers = c.Int("consumers")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	buf, err := monitors.NewBoundedBuffer[int](cfg.Capacity)
	if err != nil {
		return err
	}
	buf.SetLogger(e.logger)
	buf.SetMetrics(e.metrics)
	if e.poller != nil {
		e.poller.AddBuffer("buffer", buf)
	}

	host := monitors.NewActorHost("buffer")
	for i := range cfg.Producers {
		p := core.NewProducer(fmt.Sprintf("producer-%d", i), buf, cfg.Produce, 0, core.NewRand(cfg.Seed, uint64(i)))
		p.SetLogger(e.logger)
		if err := host.Add(fmt.Sprintf("producer-%d", i), p); err != nil {
			return err
		}
	}
	for i := range cfg.Consumers {
		stream := uint64(cfg.Producers + i)
		cons := core.NewConsumer(fmt.Sprintf("consumer-%d", i), buf, cfg.Consume, 0, core.NewRand(cfg.Seed, stream))
		cons.SetLogger(e.logger)
		if err := host.Add(fmt.Sprintf("consumer-%d", i), cons); err != nil {
			return err
		}
	}

	return e.run(c, host, func() error {
		items := buf.Contents()
		fmt.Fprintf(c.App.Writer, "%2d/%d %v\n", len(items), buf.Cap(), items)
		return nil
	})
}

// BridgeCommand runs cars over a single-lane bridge.
func BridgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "Cars sharing a single-lane bridge",

		Flags: []cli.Flag{
			&cli.IntFlag{Name: "left", Usage: "cars starting on the left"},
			&cli.IntFlag{Name: "right", Usage: "cars starting on the right"},
			&cli.IntFlag{Name: "trips", Usage: "crossings per car; 0 drives until stopped"},
			seedFlag(),
		},

		Action: BridgeAction,
	}
}

func BridgeAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	cfg := e.cfg.Bridge
	if c.IsSet("left") {
		cfg.LeftCars = c.Int("left")
	}
	if c.IsSet("right") {
		cfg.RightCars = c.Int("right")
	}
	if c.IsSet("trips") {
		cfg.Trips = c.Int("trips")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	bridge := monitors.NewBridgeArbiter()
	bridge.SetLogger(e.logger)
	bridge.SetMetrics(e.metrics)
	if e.poller != nil {
		e.poller.AddBridge("bridge", bridge)
	}

	host := monitors.NewActorHost("bridge")
	sides := make([]monitors.Direction, 0, cfg.LeftCars+cfg.RightCars)
	for range cfg.LeftCars {
		sides = append(sides, monitors.Left)
	}
	for range cfg.RightCars {
		sides = append(sides, monitors.Right)
	}
	for n, side := range sides {
		name := fmt.Sprintf("car-%d", n)
		car := core.NewBridgeCar(name, bridge, side, cfg, core.NewRand(cfg.Seed, uint64(n)))
		car.SetLogger(e.logger)
		if err := host.Add(name, car); err != nil {
			return err
		}
	}

	return e.run(c, host, func() error {
		s := bridge.Stats()
		occupant := "-"
		if s.Occupied {
			occupant = s.Occupant
		}
		fmt.Fprintf(c.App.Writer, "on bridge: %-5s waiting: left=%d right=%d crossed: left=%d right=%d\n",
			occupant, s.WaitingLeft, s.WaitingRight, s.CrossingsLeft, s.CrossingsRight)
		return nil
	})
}

// PhilosophersCommand runs the dining philosophers.
func PhilosophersCommand() *cli.Command {
	return &cli.Command{
		Name:    "philosophers",
		Aliases: []string{"phil"},
		Usage:   "The dining philosophers",

		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "number of philosophers"},
			&cli.StringFlag{Name: "order", Usage: "fork order: own-first (can deadlock) or asymmetric"},
			&cli.IntFlag{Name: "rounds", Usage: "meals per philosopher; 0 dines until stopped"},
			&cli.DurationFlag{Name: "pickup-pause", Usage: "pause between the first and the second fork"},
			&cli.BoolFlag{Name: "keep-going", Usage: "keep running after a deadlock was detected"},
			seedFlag(),
		},

		Action: PhilosophersAction,
	}
}

func PhilosophersAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	cfg := e.cfg.Table
	if c.IsSet("count") {
		cfg.Philosophers = c.Int("count")
	}
	if c.IsSet("order") {
		if cfg.Order, err = core.ParseAcquireOrder(c.String("order")); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}
	if c.IsSet("rounds") {
		cfg.Rounds = c.Int("rounds")
	}
	if c.IsSet("pickup-pause") {
		cfg.PickupPause = c.Duration("pickup-pause")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}

	table, err := monitors.NewTable(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer table.Close()
	table.SetLogger(e.logger)
	table.SetMetrics(e.metrics)
	if e.poller != nil {
		e.poller.AddTable("table", table)
	}

	host := monitors.NewActorHost("table-" + table.RunID().String()[:8])
	for _, p := range table.Philosophers() {
		if err := host.Add(p.String(), p); err != nil {
			return err
		}
	}

	keepGoing := c.Bool("keep-going")
	reported := false
	return e.run(c, host, func() error {
		s := table.Stats()
		fmt.Fprintf(c.App.Writer, "%s meals=%v forks held=%d\n", stateLine(table.States()), s.Meals, s.HeldForks)
		if !s.Deadlocked || reported {
			return nil
		}
		reported = true
		e.logger.Warn("deadlock detected", core.F("order", s.Order), core.F("run", table.RunID()))
		if keepGoing {
			return nil
		}
		return cli.Exit("deadlock: every philosopher holds one fork and waits for the next", 3)
	})
}

func stateLine(states []monitors.PhilosopherState) string {
	var b strings.Builder
	for i, s := range states {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToUpper(s.String()[:1]))
	}
	return b.String()
}

// LightsCommand runs cars around a ring of traffic lights.
func LightsCommand() *cli.Command {
	return &cli.Command{
		Name:  "lights",
		Usage: "Cars driving around a ring of traffic lights",

		Flags: []cli.Flag{
			&cli.IntFlag{Name: "lights", Usage: "number of lights"},
			&cli.IntFlag{Name: "cars", Usage: "number of cars"},
			seedFlag(),
		},

		Action: LightsAction,
	}
}

func LightsAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	cfg := e.cfg.Lights
	if c.IsSet("lights") {
		cfg.Lights = c.Int("lights")
	}
	if c.IsSet("cars") {
		cfg.Cars = c.Int("cars")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	lights := make([]*monitors.TrafficLight, cfg.Lights)
	for i := range lights {
		lights[i] = monitors.NewTrafficLight()
		lights[i].SetName(fmt.Sprintf("light-%d", i))
		lights[i].SetLogger(e.logger)
		lights[i].SetMetrics(e.metrics)
		if e.poller != nil {
			e.poller.AddLight(fmt.Sprintf("light-%d", i), lights[i])
		}
	}

	host := monitors.NewActorHost("lights")
	switcher := core.NewLightSwitcher(lights, cfg)
	switcher.SetLogger(e.logger)
	if err := host.Add("switcher", switcher); err != nil {
		return err
	}
	cars := make([]*core.LightCar, cfg.Cars)
	for i := range cars {
		name := fmt.Sprintf("car-%d", i)
		cars[i] = core.NewLightCar(name, lights, cfg.Pass, core.NewRand(cfg.Seed, uint64(i)))
		cars[i].SetLogger(e.logger)
		if err := host.Add(name, cars[i]); err != nil {
			return err
		}
	}

	return e.run(c, host, func() error {
		var b strings.Builder
		for i, l := range lights {
			color := "G"
			if l.IsRed() {
				color = "R"
			}
			fmt.Fprintf(&b, "[%d %s %d]", i, color, l.Waiting())
		}
		for _, car := range cars {
			fmt.Fprintf(&b, " %d", car.Position())
		}
		fmt.Fprintln(c.App.Writer, b.String())
		return nil
	})
}
