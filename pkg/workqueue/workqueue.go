// Package workqueue provides a fixed-size pool of worker goroutines fed by a
// FIFO task queue. Finish acts as a barrier over every task submitted so far,
// including tasks submitted by other running tasks, and leaves the pool
// usable afterwards.
package workqueue

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/metrics"
)

// DefaultWorkers is used when a non-positive worker count is requested.
const DefaultWorkers = 5

// Task is a unit of work. A returned error is recorded and reported by the
// next call to Finish; it never stops the worker that ran the task.
type Task func() error

// Queue runs tasks on a fixed set of workers.
type Queue struct {
	mu      sync.Mutex
	hasWork *sync.Cond
	idle    *sync.Cond

	tasks    []Task
	pending  int
	shutdown bool
	errs     []error

	workers int
	wg      sync.WaitGroup
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New starts a queue with the given number of workers. m may be nil.
func New(workers int, m *metrics.Metrics) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	q := &Queue{
		workers: workers,
		metrics: m,
		logger:  slog.Default().With("component", "work-queue"),
	}
	q.hasWork = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Debug("work queue started", "workers", workers)
	return q
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int {
	return q.workers
}

// Execute enqueues task and wakes one idle worker. It returns
// ErrQueueShutdown once Shutdown has been called.
func (q *Queue) Execute(task Task) error {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return apperrors.ErrQueueShutdown
	}
	q.tasks = append(q.tasks, task)
	q.pending++
	pending := q.pending
	q.hasWork.Signal()
	q.mu.Unlock()

	q.metrics.TaskSubmitted(pending)
	return nil
}

// Finish blocks until every task submitted so far has completed, then
// returns the errors those tasks reported, joined, or nil.
func (q *Queue) Finish() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
	err := errors.Join(q.errs...)
	q.errs = nil
	return err
}

// Pending returns the number of submitted tasks that have not completed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Shutdown stops accepting tasks, lets the workers drain whatever is still
// queued and waits for them to exit. Running tasks are not interrupted.
// Calling Shutdown more than once is safe.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	already := q.shutdown
	q.shutdown = true
	q.hasWork.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
	if !already {
		q.logger.Debug("work queue stopped", "workers", q.workers)
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.shutdown {
			q.hasWork.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		err := q.run(id, task)

		q.mu.Lock()
		if err != nil {
			q.errs = append(q.errs, err)
		}
		q.pending--
		pending := q.pending
		if q.pending == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()

		q.metrics.TaskCompleted(pending, err != nil)
	}
}

func (q *Queue) run(id int, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked",
				"worker", id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: task panicked: %v", apperrors.ErrInternal, r)
		}
	}()
	return task()
}
