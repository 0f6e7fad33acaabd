// Package lifespan sequences the startup and shutdown of process-wide
// resources.
//
// Events are registered in dependency order. Startup runs them one at a
// time in that order and stores each result in a shared State; Shutdown
// releases them in reverse so that later resources never outlive the
// earlier ones they depend on.
//
//	lc := lifespan.New(lifespan.WithLogger(logger))
//	lc.Register(events.Metrics("mlapi")).Register(events.WorkerPool(4))
//
//	if err := lc.Startup(ctx); err != nil { ... }
//	defer lc.Shutdown(ctx)
//
// A failed Startup does not roll back the events that already started.
// They stay in Events and are released by a later Shutdown call.
package lifespan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bjaus/mlapi/logging"
)

// Sentinel errors for lifespan transitions.
var (
	ErrNotIdle        = errors.New("lifespan: not idle")
	ErrDuplicateEvent = errors.New("lifespan: duplicate event name")
)

// Phase is the lifecycle position of a Lifespan.
type Phase int

const (
	Idle Phase = iota
	Starting
	Ready
	Stopping
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Option configures a Lifespan.
type Option func(*Lifespan)

// WithLogger sets the logger used for lifecycle progress.
func WithLogger(l *slog.Logger) Option {
	return func(lc *Lifespan) {
		lc.logger = l
	}
}

// WithOnReady adds a hook that receives the State once every event has
// started. It is how the State is published to the rest of the process.
func WithOnReady(fn func(*State)) Option {
	return func(lc *Lifespan) {
		lc.onReady = append(lc.onReady, fn)
	}
}

// WithVersion sets the application version reported when startup begins.
func WithVersion(v string) Option {
	return func(lc *Lifespan) {
		lc.version = v
	}
}

// Lifespan owns the registered events and the State they populate.
type Lifespan struct {
	mu        sync.Mutex
	factories []EventFactory
	events    []Event
	state     *State
	phase     Phase

	logger  *slog.Logger
	onReady []func(*State)
	version string
}

// New creates an idle Lifespan.
func New(opts ...Option) *Lifespan {
	lc := &Lifespan{logger: slog.Default()}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// Register appends an event factory. It panics once startup has begun.
func (lc *Lifespan) Register(f EventFactory) *Lifespan {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.phase != Idle {
		panic(fmt.Errorf("%w: register during %s", ErrNotIdle, lc.phase))
	}
	lc.factories = append(lc.factories, f)
	return lc
}

// State returns the resource registry, or nil before Startup.
func (lc *Lifespan) State() *State {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.state
}

// Events returns the events whose startup completed, in start order.
func (lc *Lifespan) Events() []Event {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return append([]Event(nil), lc.events...)
}

// Phase returns the current lifecycle phase.
func (lc *Lifespan) Phase() Phase {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.phase
}

// Startup runs every registered event in registration order. The first
// failure is returned as is; events started before it are left running.
// Events run without the Lifespan's lock held, so they may call State
// and Phase.
func (lc *Lifespan) Startup(ctx context.Context) error {
	state, err := lc.start(ctx)
	if err != nil {
		return err
	}

	for _, fn := range lc.onReady {
		fn(state)
	}

	lc.mu.Lock()
	if lc.phase == Starting {
		lc.phase = Ready
	}
	lc.mu.Unlock()

	lc.logger.InfoContext(ctx, "app state ready", logging.IconComplete.Attr())
	return nil
}

func (lc *Lifespan) start(ctx context.Context) (*State, error) {
	lc.mu.Lock()
	if lc.phase != Idle {
		phase := lc.phase
		lc.mu.Unlock()
		return nil, fmt.Errorf("%w: startup during %s", ErrNotIdle, phase)
	}
	// Register rejects new factories from here on.
	lc.phase = Starting
	lc.state = NewState()
	state, factories := lc.state, lc.factories
	lc.mu.Unlock()

	lc.logger.InfoContext(ctx, "starting application lifespan",
		logging.IconStart.Attr(), slog.String("version", lc.version))

	for _, factory := range factories {
		event := factory()
		name := event.Name()

		if state.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEvent, name)
		}

		lc.logger.InfoContext(ctx, "starting event: "+name, logging.IconProcessing.Attr())
		instance, err := event.Startup(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("lifespan: startup %q: %w", name, err)
		}
		state.Set(name, instance)
		lc.logger.InfoContext(ctx, "event ready: "+name, logging.IconSuccess.Attr())

		lc.mu.Lock()
		lc.events = append(lc.events, event)
		lc.mu.Unlock()
	}

	return state, nil
}

// Shutdown releases started events in reverse order and clears the State.
// It returns nil without doing anything when Startup never ran. The first
// shutdown failure aborts the sequence and leaves the State as it is.
func (lc *Lifespan) Shutdown(ctx context.Context) error {
	lc.logger.InfoContext(ctx, "cleaning up app state", logging.IconTool.Attr())

	lc.mu.Lock()
	state := lc.state
	if state == nil {
		lc.mu.Unlock()
		lc.logger.InfoContext(ctx, "no state to cleanup", logging.IconWarning.Attr())
		return nil
	}
	lc.phase = Stopping
	events := append([]Event(nil), lc.events...)
	lc.mu.Unlock()

	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		name := event.Name()

		sd, ok := event.(Shutdowner)
		if !ok || !state.Has(name) {
			continue
		}

		lc.logger.InfoContext(ctx, "shutting down: "+name, logging.IconProcessing.Attr())
		instance, err := state.Get(name)
		if err != nil {
			return err
		}
		if err := sd.Shutdown(ctx, instance); err != nil {
			return fmt.Errorf("lifespan: shutdown %q: %w", name, err)
		}
		lc.logger.InfoContext(ctx, "shutdown complete: "+name, logging.IconSuccess.Attr())
	}

	lc.mu.Lock()
	state.Clear()
	lc.phase = Stopped
	lc.mu.Unlock()

	lc.logger.InfoContext(ctx, "cleanup complete", logging.IconComplete.Attr())
	return nil
}
