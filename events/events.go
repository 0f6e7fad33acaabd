// Package events provides the lifespan events the server starts before
// accepting requests: the metrics registry and the worker pool.
package events

import (
	"context"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/lifespan"
	"github.com/bjaus/mlapi/metrics"
	"github.com/bjaus/mlapi/workerpool"
)

// Resource names under which the events store their instances.
const (
	MetricsName = "metrics"
	PoolName    = "worker_pool"
)

// Metrics creates the Prometheus registry. It has nothing to release on
// shutdown.
func Metrics(namespace string) lifespan.EventFactory {
	return lifespan.NewEvent(MetricsName,
		func(context.Context, *lifespan.State) (*metrics.Metrics, error) {
			return metrics.New(namespace), nil
		},
		nil,
	)
}

// WorkerPool starts a pool with the given number of workers (≤0 for one
// per CPU) and drains it on shutdown. When the metrics event ran first,
// every finished task is counted.
func WorkerPool(workers int) lifespan.EventFactory {
	return lifespan.NewEvent(PoolName,
		func(_ context.Context, state *lifespan.State) (*workerpool.Pool, error) {
			var opts []workerpool.Option
			if m, err := lifespan.Lookup[*metrics.Metrics](state, MetricsName); err == nil {
				opts = append(opts, workerpool.OnDone(m.ObserveTask))
			}
			return workerpool.New(workers, opts...), nil
		},
		func(ctx context.Context, p *workerpool.Pool) error {
			return p.Shutdown(ctx)
		},
	)
}

// StateFrom returns the lifespan State injected into ctx. It reports false
// before startup has published one.
func StateFrom(ctx context.Context) (*lifespan.State, bool) {
	state, ok := mlapi.GetValue[*lifespan.State](ctx)
	return state, ok && state != nil
}

// MetricsFrom resolves the running Metrics from the request context.
func MetricsFrom(ctx context.Context) (*metrics.Metrics, bool) {
	return lookup[*metrics.Metrics](ctx, MetricsName)
}

// PoolFrom resolves the running worker pool from the request context.
func PoolFrom(ctx context.Context) (*workerpool.Pool, bool) {
	return lookup[*workerpool.Pool](ctx, PoolName)
}

func lookup[T any](ctx context.Context, name string) (T, bool) {
	var zero T
	state, ok := StateFrom(ctx)
	if !ok {
		return zero, false
	}
	v, err := lifespan.Lookup[T](state, name)
	if err != nil {
		return zero, false
	}
	return v, true
}
