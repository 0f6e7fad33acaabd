package lifespan

import "context"

// Event is a named unit of process-lifetime resource management. Startup
// produces the resource stored in State under Name.
type Event interface {
	Name() string
	Startup(ctx context.Context, state *State) (any, error)
}

// Shutdowner is implemented by events that release their resource.
// Events without it are skipped during shutdown.
type Shutdowner interface {
	Shutdown(ctx context.Context, instance any) error
}

// EventFactory constructs a fresh Event. One instance is built per
// registered factory when startup runs.
type EventFactory func() Event

// HasShutdown reports whether e releases its resource on shutdown.
func HasShutdown(e Event) bool {
	_, ok := e.(Shutdowner)
	return ok
}

// NewEvent builds an EventFactory from typed startup and shutdown
// functions. A nil shutdown yields an event that does not implement
// Shutdowner.
func NewEvent[T any](
	name string,
	startup func(ctx context.Context, state *State) (T, error),
	shutdown func(ctx context.Context, instance T) error,
) EventFactory {
	return func() Event {
		base := funcEvent[T]{name: name, startup: startup}
		if shutdown == nil {
			return &base
		}
		return &funcShutdownEvent[T]{funcEvent: base, shutdown: shutdown}
	}
}

type funcEvent[T any] struct {
	name    string
	startup func(context.Context, *State) (T, error)
}

func (e *funcEvent[T]) Name() string { return e.name }

func (e *funcEvent[T]) Startup(ctx context.Context, state *State) (any, error) {
	return e.startup(ctx, state)
}

type funcShutdownEvent[T any] struct {
	funcEvent[T]
	shutdown func(context.Context, T) error
}

func (e *funcShutdownEvent[T]) Shutdown(ctx context.Context, instance any) error {
	typed, ok := instance.(T)
	if !ok {
		return ErrResourceType
	}
	return e.shutdown(ctx, typed)
}
