package core

import (
	"context"
	"sync"
	"time"
)

const defaultLightName = "light"

// TrafficLight holds cars while it is red. Switching to green releases every
// waiting car at once, so it broadcasts.
type TrafficLight struct {
	mu     sync.Mutex
	red    bool
	green  *Cond
	passed int64

	name    string
	logger  Logger
	metrics Metrics
}

// NewTrafficLight creates a light that starts red.
func NewTrafficLight() *TrafficLight {
	l := &TrafficLight{
		red:     true,
		name:    defaultLightName,
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	l.green = NewCond(&l.mu)
	return l
}

// SetName sets the name used in logs and metrics.
func (l *TrafficLight) SetName(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.name = name
}

// SetLogger sets the logger.
func (l *TrafficLight) SetLogger(logger Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = loggerOrNoOp(logger)
}

// SetMetrics sets the metrics sink.
func (l *TrafficLight) SetMetrics(metrics Metrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = metricsOrNil(metrics)
}

// PassBy returns once the light is green, waiting while it is red.
func (l *TrafficLight) PassBy(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var waitStart time.Time
	for l.red {
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		if err := l.green.Wait(ctx); err != nil {
			l.metrics.RecordCancellation(l.name, "pass_by")
			l.logger.Debug("pass by canceled", F("light", l.name))
			return err
		}
	}
	if !waitStart.IsZero() {
		l.metrics.RecordWait(l.name, "pass_by", time.Since(waitStart))
	}
	l.passed++
	return nil
}

// SwitchToGreen lets every waiting car pass.
func (l *TrafficLight) SwitchToGreen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.red = false
	l.metrics.RecordTransition(l.name, "green")
	l.green.Broadcast()
}

// SwitchToRed stops cars arriving from now on.
func (l *TrafficLight) SwitchToRed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.red = true
	l.metrics.RecordTransition(l.name, "red")
}

// Toggle flips the light and returns true if it is now green.
func (l *TrafficLight) Toggle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.red = !l.red
	if l.red {
		l.metrics.RecordTransition(l.name, "red")
		return false
	}
	l.metrics.RecordTransition(l.name, "green")
	l.green.Broadcast()
	return true
}

// IsRed reports whether the light is red.
func (l *TrafficLight) IsRed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.red
}

// Waiting returns the number of cars held at the light.
func (l *TrafficLight) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.green.Waiters()
}

// Stats returns a snapshot of the light.
func (l *TrafficLight) Stats() LightStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LightStats{
		Name:    l.name,
		Red:     l.red,
		Waiting: l.green.Waiters(),
		Passed:  l.passed,
	}
}
