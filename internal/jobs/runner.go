// Package jobs provides a bounded, channel-backed runner for detached
// background work. HTTP handlers submit tasks and return immediately; the
// durable job record in the database, not the task itself, is the handoff
// point clients poll.
package jobs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when the pending queue is at capacity.
// Callers surface this to the client rather than piling up unbounded
// concurrent archive extractions.
var ErrQueueFull = errors.New("job queue is full")

// ErrRunnerClosed is returned by Submit after Shutdown has begun.
var ErrRunnerClosed = errors.New("job runner is shut down")

// Task is one unit of detached work. The context is the runner's base context,
// cancelled only on shutdown timeout.
type Task func(ctx context.Context)

// Runner executes tasks on a fixed pool of workers fed from a bounded queue.
type Runner struct {
	tasks   chan Task
	wg      sync.WaitGroup
	log     *zap.Logger
	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a runner with the given worker count and queue capacity.
// Workers start immediately.
func NewRunner(workers, queueSize int, log *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		tasks:   make(chan Task, queueSize),
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	for task := range r.tasks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("job panicked", zap.Int("worker", id), zap.Any("panic", rec))
				}
			}()
			task(r.baseCtx)
		}()
	}
}

// Submit enqueues a task without blocking. ErrQueueFull when the queue is at
// capacity, ErrRunnerClosed after shutdown.
func (r *Runner) Submit(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}

	select {
	case r.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for in-flight and queued work to
// drain. If ctx expires first, remaining tasks get their context cancelled and
// Shutdown returns the ctx error.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
