// Package queue provides the update queue: a FIFO serializer that runs one
// reconciliation task at a time, in submission order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("update queue is closed")

// Task is a unit of serialized work. It has exclusive use of every resource
// the queue guards for as long as it runs.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// Queue executes tasks strictly one at a time in FIFO order. A failing or
// panicking task does not stop the queue. Tasks cannot be cancelled once
// enqueued.
type Queue struct {
	logger *slog.Logger

	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{} // buffered, size 1

	wg sync.WaitGroup
}

// New creates a queue and starts its worker.
func New() *Queue {
	q := &Queue{
		logger: slog.Default(),
		jobs:   make([]job, 0, 16),
		signal: make(chan struct{}, 1),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// WithLogger sets the logger.
func (q *Queue) WithLogger(logger *slog.Logger) *Queue {
	q.logger = logger
	return q
}

// Enqueue submits task and blocks until it has run, returning its error.
// The task sees ctx without its cancellation: a caller that gives up waiting
// does not abort work already queued.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	j := job{ctx: context.WithoutCancel(ctx), task: task, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.jobs = append(q.jobs, j)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	q.mu.Unlock()

	return <-j.done
}

// Do runs fn through q and returns its value.
func Do[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := q.Enqueue(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting tasks, lets queued tasks finish and waits for the
// worker to exit. Calling Close more than once is safe.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		j, ok := q.next()
		if !ok {
			if _, open := <-q.signal; !open && q.Len() == 0 {
				return
			}
			continue
		}
		j.done <- q.execute(j)
	}
}

func (q *Queue) next() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *Queue) execute(j job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update task panicked: %v", r)
		}
		if err != nil {
			q.logger.Warn("update task failed", "duration", time.Since(start), "error", err)
		} else {
			q.logger.Debug("update task completed", "duration", time.Since(start))
		}
	}()
	return j.task(j.ctx)
}
