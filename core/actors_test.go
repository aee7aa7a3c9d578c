package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestProducerConsumer_HandOff verifies the actors move every item through the buffer
// Given: A producer limited to 50 items and a consumer limited to 50 items
// When: Both run against a buffer of capacity 3
// Then: Both finish cleanly and the buffer ends empty
func TestProducerConsumer_HandOff(t *testing.T) {
	// Arrange
	buf, _ := NewBoundedBuffer[int](3)
	p := NewProducer("producer-0", buf, Between(0, 100*time.Microsecond), 50, NewRand(1, 0))
	c := NewConsumer("consumer-0", buf, Between(0, 100*time.Microsecond), 50, NewRand(1, 1))

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = p.Run(context.Background()) }()
	go func() { defer wg.Done(); errs[1] = c.Run(context.Background()) }()
	wg.Wait()

	// Assert
	for i, err := range errs {
		if err != nil {
			t.Errorf("actor %d returned %v", i, err)
		}
	}
	if p.Produced() != 50 || c.Consumed() != 50 {
		t.Errorf("produced %d, consumed %d, want 50 each", p.Produced(), c.Consumed())
	}
	if !buf.IsEmpty() {
		t.Errorf("buffer holds %v, want empty", buf.Contents())
	}
}

func TestProducer_StopsOnCancel(t *testing.T) {
	buf, _ := NewBoundedBuffer[int](2)
	p := NewProducer("producer-0", buf, DelayRange{}, 0, NewRand(1, 0))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)

	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("Run() = %v, want ErrCanceled", err)
	}
	if p.Produced() != 2 {
		t.Errorf("produced %d, want 2 (buffer capacity)", p.Produced())
	}
}

// TestBridgeCar_AlternatesSides verifies cars drive back and forth
// Given: One car starting left and one starting right, 4 trips each
// When: Both run
// Then: The bridge counts 4 crossings from each side and ends free
func TestBridgeCar_AlternatesSides(t *testing.T) {
	// Arrange
	b := NewBridgeArbiter()
	cfg := BridgeConfig{Cross: Fixed(100 * time.Microsecond), Trips: 4}
	cars := []*BridgeCar{
		NewBridgeCar("car-0", b, Left, cfg, NewRand(1, 0)),
		NewBridgeCar("car-1", b, Right, cfg, NewRand(1, 1)),
	}

	// Act
	var wg sync.WaitGroup
	for _, car := range cars {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := car.Run(context.Background()); err != nil {
				t.Errorf("Run() = %v", err)
			}
		}()
	}
	wg.Wait()

	// Assert
	s := b.Stats()
	if s.CrossingsLeft != 4 || s.CrossingsRight != 4 || s.Occupied {
		t.Errorf("stats = %+v, want 4 crossings per side and a free bridge", s)
	}
	for _, car := range cars {
		if car.Crossed() != 4 {
			t.Errorf("car crossed %d times, want 4", car.Crossed())
		}
	}
}

func TestBridgeCar_CancelOnBridgeLeaves(t *testing.T) {
	b := NewBridgeArbiter()
	car := NewBridgeCar("car-0", b, Left, BridgeConfig{Cross: Fixed(time.Hour)}, NewRand(1, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- car.Run(ctx) }()
	waitFor(t, time.Second, b.Occupied)
	cancel()

	if err := receive(t, done, time.Second); !errors.Is(err, ErrCanceled) {
		t.Fatalf("Run() = %v, want ErrCanceled", err)
	}
	if b.Occupied() {
		t.Error("canceled car left the bridge occupied")
	}
}

// TestLightSwitcher_OneGreenAtATime verifies the switcher walks the ring
// Given: Three red lights
// When: The switcher steps four times
// Then: Exactly one light is green each time, advancing and wrapping around
func TestLightSwitcher_OneGreenAtATime(t *testing.T) {
	lights := []*TrafficLight{NewTrafficLight(), NewTrafficLight(), NewTrafficLight()}
	s := NewLightSwitcher(lights, LightsConfig{SwitchEvery: time.Millisecond})

	for step, want := range []int{0, 1, 2, 0} {
		if got := s.Step(); got != want {
			t.Fatalf("step %d: green = %d, want %d", step, got, want)
		}
		for i, l := range lights {
			if l.IsRed() == (i == want) {
				t.Errorf("step %d: light %d red = %v", step, i, l.IsRed())
			}
		}
	}
}

func TestLightCar_DrivesAroundRing(t *testing.T) {
	lights := []*TrafficLight{NewTrafficLight(), NewTrafficLight()}
	for _, l := range lights {
		l.SwitchToGreen()
	}
	car := NewLightCar("car-0", lights, DelayRange{}, NewRand(1, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- car.Run(ctx) }()
	waitFor(t, time.Second, func() bool { return car.Passed() >= 5 })
	cancel()

	if err := receive(t, done, time.Second); !errors.Is(err, ErrCanceled) {
		t.Fatalf("Run() = %v, want ErrCanceled", err)
	}
	if pos := car.Position(); pos < 0 || pos >= len(lights) {
		t.Errorf("Position() = %d, out of range", pos)
	}
}
