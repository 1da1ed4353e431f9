// Package pool bounds how many diagram pipelines run at once.
//
// Admission is first-come first-served: a weighted semaphore queues waiters
// in arrival order. A slot is always released when its task returns, even if
// the task panics; the panic is converted into an error for the caller.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"archsketch/internal/domain"
	"archsketch/internal/logs"
)

// DefaultCapacity is used when a non-positive capacity is requested
const DefaultCapacity = 3

// ErrTaskPanicked is wrapped by the error returned for a panicking task
var ErrTaskPanicked = errors.New("task panicked")

// Task is one unit of admitted work
type Task[T any] func(ctx context.Context) (T, error)

// Stats is a point-in-time view of the pool
type Stats struct {
	Capacity int   `json:"capacity"`
	InFlight int64 `json:"in_flight"`
	Waiting  int64 `json:"waiting"`
}

// Pool admits at most Capacity tasks at a time
type Pool struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	waiting  atomic.Int64
}

// New creates a pool with the given capacity
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of concurrent tasks
func (p *Pool) Capacity() int {
	return p.capacity
}

// InFlight returns the number of tasks currently holding a slot
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Waiting returns the number of submissions queued for a slot. A submission
// is counted from just before it joins the semaphore queue, so the value
// can briefly lead the queue itself.
func (p *Pool) Waiting() int64 {
	return p.waiting.Load()
}

// Stats returns capacity, in-flight and waiting counts
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity: p.capacity,
		InFlight: p.InFlight(),
		Waiting:  p.Waiting(),
	}
}

// Submit waits for a slot and runs task in the caller's goroutine. When ctx
// ends before a slot frees up the result is a *domain.PoolTimeoutError and
// task never runs.
func Submit[T any](ctx context.Context, p *Pool, task Task[T]) (result T, err error) {
	start := time.Now()

	var acquireErr error
	if err := ctx.Err(); err != nil {
		acquireErr = err
	} else if !p.sem.TryAcquire(1) {
		p.waiting.Add(1)
		acquireErr = p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
	}

	if acquireErr != nil {
		return result, &domain.PoolTimeoutError{
			Capacity: p.capacity,
			Waited:   time.Since(start),
			Err:      acquireErr,
		}
	}

	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)

		if r := recover(); r != nil {
			logs.From(ctx).ErrorContext(ctx, "pool task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	if waited := time.Since(start); waited > 10*time.Millisecond {
		logs.From(ctx).DebugContext(ctx, "pool slot acquired", "waited", waited)
	}

	return task(ctx)
}
