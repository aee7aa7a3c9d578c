package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// PanicHandler: Interface for handling actor panics
// =============================================================================

// PanicHandler is called when an actor panics while running.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when an actor panics.
	//
	// Parameters:
	// - ctx: The context the actor was running with
	// - hostID: The ID of the host that launched the actor
	// - actorName: The name the actor was registered under
	// - panicInfo: The panic value recovered from the actor
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, hostID string, actorName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs the panic and its stack trace at Error level.
// A nil Logger writes to stderr through NewDefaultLogger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, hostID string, actorName string, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger(zerolog.ErrorLevel)
	}
	logger.Error("actor panicked",
		F("host", hostID),
		F("actor", actorName),
		F("panic", fmt.Sprint(panicInfo)),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting monitor metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called with the monitor's lock held, so they must be
// non-blocking and fast.
type Metrics interface {
	// RecordWait records how long an operation was blocked before it proceeded.
	//
	// Parameters:
	// - component: The monitor's name (e.g. "buffer", "bridge")
	// - op: The operation that blocked (e.g. "put", "enter_left")
	// - duration: Time spent in condition waits
	RecordWait(component string, op string, duration time.Duration)

	// RecordCancellation records that a blocked operation was abandoned.
	RecordCancellation(component string, op string)

	// RecordTransition records an actor state change (e.g. philosopher -> eating).
	RecordTransition(component string, state string)

	// RecordOccupancy records the current fill level of a monitor
	// (buffer items, bridge occupants, held forks).
	RecordOccupancy(component string, n int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordWait is a no-op.
func (m *NilMetrics) RecordWait(component string, op string, duration time.Duration) {}

// RecordCancellation is a no-op.
func (m *NilMetrics) RecordCancellation(component string, op string) {}

// RecordTransition is a no-op.
func (m *NilMetrics) RecordTransition(component string, state string) {}

// RecordOccupancy is a no-op.
func (m *NilMetrics) RecordOccupancy(component string, n int) {}

func metricsOrNil(m Metrics) Metrics {
	if m == nil {
		return &NilMetrics{}
	}
	return m
}
