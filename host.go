package monitors

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Swind/go-monitors/core"
)

var (
	// ErrHostRunning is returned by Add once the host has been started.
	ErrHostRunning = errors.New("actor host already running")

	// ErrActorPanic wraps the value recovered from a panicking actor.
	ErrActorPanic = errors.New("actor panicked")

	// ErrStopTimeout is returned by StopGraceful when actors did not finish
	// on their own within the timeout.
	ErrStopTimeout = errors.New("graceful stop timed out")

	errHostStopped = errors.New("actor host stopped")
)

// Actor is a long-running participant: a producer, a car, a philosopher.
// Run must return promptly once ctx is done.
type Actor interface {
	Run(ctx context.Context) error
}

// ActorFunc adapts a function to Actor.
type ActorFunc func(ctx context.Context) error

func (f ActorFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedActor struct {
	name  string
	actor Actor
}

// ActorHost runs a set of actors, one goroutine each, and stops them together.
//
// If one actor fails, the others are canceled. Cancellation outcomes are the
// normal way for an actor to stop and are never reported as errors.
type ActorHost struct {
	id string

	mu           sync.Mutex
	actors       []namedActor
	running      bool
	cancel       context.CancelCauseFunc
	done         chan struct{}
	err          error
	active       int
	finished     int
	failed       int
	records      []core.ActorRecord
	logger       core.Logger
	panicHandler core.PanicHandler
}

// NewActorHost creates an empty host.
func NewActorHost(id string) *ActorHost {
	return &ActorHost{
		id:           id,
		logger:       core.NewNoOpLogger(),
		panicHandler: &core.DefaultPanicHandler{},
	}
}

// SetLogger sets the logger used for lifecycle messages. The default panic
// handler logs through it too.
func (h *ActorHost) SetLogger(logger core.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if logger == nil {
		h.logger = core.NewNoOpLogger()
		return
	}
	h.logger = logger
	if _, ok := h.panicHandler.(*core.DefaultPanicHandler); ok {
		h.panicHandler = &core.DefaultPanicHandler{Logger: logger}
	}
}

// SetPanicHandler sets the handler called when an actor panics.
func (h *ActorHost) SetPanicHandler(handler core.PanicHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if handler == nil {
		handler = &core.DefaultPanicHandler{}
	}
	h.panicHandler = handler
}

// Add registers an actor. Actors can only be added while the host is stopped.
func (h *ActorHost) Add(name string, actor Actor) error {
	if actor == nil {
		return fmt.Errorf("actor %q is nil", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHostRunning
	}
	for _, a := range h.actors {
		if a.name == name {
			return fmt.Errorf("actor %q already added", name)
		}
	}
	h.actors = append(h.actors, namedActor{name: name, actor: actor})
	return nil
}

// Start launches every registered actor. Starting a running host does nothing.
func (h *ActorHost) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return // Already running
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	h.cancel = cancel
	h.done = make(chan struct{})
	h.err = nil
	h.running = true
	h.active = len(h.actors)
	h.finished = 0
	h.failed = 0
	h.records = nil

	for _, a := range h.actors {
		g.Go(func() error {
			return h.runActor(gctx, a)
		})
	}

	done := h.done
	h.logger.Info("actor host started", core.F("host", h.id), core.F("actors", len(h.actors)))

	go func() {
		err := g.Wait()
		cancel(errHostStopped)

		h.mu.Lock()
		h.err = err
		h.running = false
		logger := h.logger
		h.mu.Unlock()

		if err != nil {
			logger.Error("actor host failed", core.F("host", h.id), core.F("error", err))
		} else {
			logger.Info("actor host stopped", core.F("host", h.id))
		}
		close(done)
	}()
}

func (h *ActorHost) runActor(ctx context.Context, a namedActor) (err error) {
	rec := core.ActorRecord{Name: a.name, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			h.mu.Lock()
			handler := h.panicHandler
			h.mu.Unlock()
			handler.HandlePanic(ctx, h.id, a.name, r, debug.Stack())

			rec.Panicked = true
			err = fmt.Errorf("%w: %s: %v", ErrActorPanic, a.name, r)
		}

		// Stopping because the host was stopped is not a failure.
		if err != nil && ctx.Err() != nil && core.IsCanceled(err) {
			err = nil
		}

		rec.FinishedAt = time.Now()
		rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
		rec.Err = err

		h.mu.Lock()
		h.active--
		h.finished++
		if err != nil {
			h.failed++
		}
		h.records = append(h.records, rec)
		logger := h.logger
		h.mu.Unlock()

		if err != nil {
			logger.Error("actor failed", core.F("host", h.id), core.F("actor", a.name), core.F("error", err))
		} else {
			logger.Debug("actor finished", core.F("host", h.id), core.F("actor", a.name))
		}
	}()

	return a.actor.Run(ctx)
}

// Wait blocks until every actor has returned and reports the first failure.
// It returns nil at once if the host was never started.
func (h *ActorHost) Wait() error {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Stop cancels every actor and waits for them to return.
func (h *ActorHost) Stop() error {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel(errHostStopped)
	}
	return h.Wait()
}

// StopGraceful gives the actors up to timeout to finish on their own and
// cancels whatever is still running afterwards.
func (h *ActorHost) StopGraceful(timeout time.Duration) error {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	if done == nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return h.Wait()
	case <-timer.C:
	}

	if err := h.Stop(); err != nil {
		return errors.Join(ErrStopTimeout, err)
	}
	return ErrStopTimeout
}

// ID returns the ID of the host
func (h *ActorHost) ID() string {
	return h.id
}

// IsRunning returns whether any actor is still running
func (h *ActorHost) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Records returns the finished actors, in the order they finished.
func (h *ActorHost) Records() []core.ActorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]core.ActorRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Stats returns a snapshot of the host.
func (h *ActorHost) Stats() core.HostStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return core.HostStats{
		ID:       h.id,
		Actors:   len(h.actors),
		Active:   h.active,
		Finished: h.finished,
		Failed:   h.failed,
		Running:  h.running,
	}
}
