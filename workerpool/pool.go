// Package workerpool runs caller-submitted tasks on a bounded number of
// goroutines.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when submitting to a pool that is shutting down.
var ErrClosed = errors.New("workerpool: closed")

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context) (any, error)

// Pool executes tasks with at most Workers running at once.
type Pool struct {
	workers int
	// slots bounds concurrency instead of group.SetLimit so that a
	// waiting Submit can give up on its ctx or on Shutdown.
	slots chan struct{}
	group errgroup.Group

	// ctx is handed to every task and cancelled when Shutdown gives up
	// waiting.
	ctx    context.Context
	cancel context.CancelFunc

	// closing is closed first thing in Shutdown and wakes Submit calls
	// waiting for a slot. mu orders group.Go against group.Wait and is
	// never held while blocking.
	closing   chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool

	submitted atomic.Int64
	completed atomic.Int64

	onDone func(error)
}

// Option configures a Pool.
type Option func(*Pool)

// OnDone registers fn to be called with the outcome of every task.
func OnDone(fn func(error)) Option {
	return func(p *Pool) {
		p.onDone = fn
	}
}

// New creates a pool with the given number of workers. A non-positive
// count uses runtime.NumCPU.
func New(workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers: workers,
		slots:   make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
		closing: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the maximum number of concurrently running tasks.
func (p *Pool) Workers() int { return p.workers }

// Submitted returns the number of tasks accepted so far.
func (p *Pool) Submitted() int64 { return p.submitted.Load() }

// Completed returns the number of tasks that finished, successfully or not.
func (p *Pool) Completed() int64 { return p.completed.Load() }

// Submit schedules task and returns a Future for its result. It blocks
// while every worker is busy, returning ctx.Err() if ctx ends first and
// ErrClosed once Shutdown has begun.
func (p *Pool) Submit(ctx context.Context, task Task) (*Future, error) {
	select {
	case <-p.closing:
		return nil, ErrClosed
	default:
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closing:
		return nil, ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		<-p.slots
		return nil, ErrClosed
	}

	f := &Future{done: make(chan struct{})}
	p.submitted.Add(1)
	p.group.Go(func() error {
		defer func() { <-p.slots }()
		defer p.completed.Add(1)
		defer close(f.done)
		f.value, f.err = task(p.ctx)
		if p.onDone != nil {
			p.onDone(f.err)
		}
		return nil
	})
	return f, nil
}

// Shutdown stops accepting tasks and waits for running ones to finish.
// Submit calls waiting for a worker return ErrClosed. If ctx ends first,
// the context passed to running tasks is cancelled and ctx.Err() is
// returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.closing) })
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		//nolint:errcheck // tasks report errors through their futures
		p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// With runs fn with a temporary pool and shuts the pool down afterwards.
func With(ctx context.Context, workers int, fn func(*Pool) error) error {
	p := New(workers)
	err := fn(p)
	return errors.Join(err, p.Shutdown(ctx))
}

// Future is the pending result of a submitted task.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Done is closed once the task has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result waits for the task and returns its outcome.
func (f *Future) Result(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Map applies fn to every item on the pool and returns the results in
// input order. The first task error is returned.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	futures := make([]*Future, len(items))
	for i, item := range items {
		f, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, item)
		})
		if err != nil {
			return nil, err
		}
		futures[i] = f
	}

	results := make([]R, len(items))
	for i, f := range futures {
		v, err := f.Result(ctx)
		if err != nil {
			return nil, err
		}
		results[i], _ = v.(R)
	}
	return results, nil
}
