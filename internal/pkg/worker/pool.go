// Package worker provides goroutine pool management.
//
// Coding Standard: Naked goroutines are forbidden.
// All concurrency must go through Worker Pool with context propagation.
//
// Built on alitto/pond/v2, the bounded worker pool malbeclabs-doublezero
// uses for concurrent provider/data-source work (e.g.
// controlplane/telemetry/internal/data/device/provider.go's
// getCircuitLatenciesPool).
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/alitto/pond/v2"

	"enrichpipe.io/engine/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps a pond.Pool with context-aware submission.
type Pool struct {
	pool pond.Pool
	name string
}

// Pools is the Worker pool collection.
//
// Runs executes per-entity pipeline-run step work (the fan-out concurrency
// model in SPEC_FULL.md §3.6): one submission can expand into many concurrent
// step executions across many entities, bounded by Runs' capacity.
//
// Provider is a smaller pool dedicated to outbound provider HTTP calls, kept
// separate from Runs so a slow/stuck provider cannot starve step-orchestration
// goroutines of capacity.
type Pools struct {
	Runs     *Pool
	Provider *Pool

	// serviceCtx is the service lifecycle context for detached tasks.
	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains Worker Pool configuration.
type PoolConfig struct {
	RunsPoolSize     int
	ProviderPoolSize int
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		RunsPoolSize:     100,
		ProviderPoolSize: 50,
	}
}

// NewPools creates the Worker pool collection.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	// Create service lifecycle context for detached tasks.
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	runsPool := pond.NewPool(cfg.RunsPoolSize, pond.WithContext(serviceCtx))
	providerPool := pond.NewPool(cfg.ProviderPoolSize, pond.WithContext(serviceCtx))

	return &Pools{
		Runs:          &Pool{pool: runsPool, name: "runs"},
		Provider:      &Pool{pool: providerPool, name: "provider"},
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit submits a context-aware task.
// The task receives the caller's context and SHOULD check ctx.Done() at blocking points.
// If context is already cancelled, returns ctx.Err() immediately without submitting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	// Fast path: check if context is already cancelled.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.pool.Submit(func() {
		// Check context again inside worker (may have been cancelled while queued).
		select {
		case <-ctx.Done():
			logger.Debug("task skipped: context cancelled", "pool", p.name, "error", ctx.Err())
			return
		default:
		}
		task(ctx)
	})
	return nil
}

// SubmitDetached submits a detached background task.
// Detached tasks use the service lifecycle context instead of a request context.
// Use this for long-running background work that should survive request cancellation
// but still respect graceful shutdown.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	var pool *Pool
	switch poolName {
	case "provider":
		pool = p.Provider
	case "runs":
		pool = p.Runs
	default:
		pool = p.Runs
	}

	pool.pool.Submit(func() {
		select {
		case <-p.serviceCtx.Done():
			logger.Debug("detached task skipped: service shutting down", "pool", poolName)
			return
		default:
		}
		task(p.serviceCtx)
	})
	return nil
}

// Shutdown gracefully shuts down all pools with a timeout.
// Cancels service context first, then waits for running tasks (max 30s).
func (p *Pools) Shutdown() {
	// Signal all detached tasks to stop.
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	done := make(chan struct{})
	go func() {
		p.Runs.pool.StopAndWait()
		p.Provider.pool.StopAndWait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("worker pool shutdown timed out", "timeout", shutdownTimeout)
	}
}

// Metrics returns pool metrics for observability.
func (p *Pools) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"runs": map[string]int{
			"cap":       p.Runs.pool.MaxConcurrency(),
			"running":   int(p.Runs.pool.RunningWorkers()),
			"submitted": int(p.Runs.pool.SubmittedTasks()),
			"waiting":   int(p.Runs.pool.WaitingTasks()),
		},
		"provider": map[string]int{
			"cap":       p.Provider.pool.MaxConcurrency(),
			"running":   int(p.Provider.pool.RunningWorkers()),
			"submitted": int(p.Provider.pool.SubmittedTasks()),
			"waiting":   int(p.Provider.pool.WaitingTasks()),
		},
	}
}
