// Package workerpool provides a fixed-size goroutine pool for
// fire-and-forget work: mirroring published messages to the optional
// NATS cluster bridge without blocking the executor's run loop. A
// buffered task queue is drained by a fixed number of workers, and
// tasks are dropped instead of spawning unbounded goroutines when the
// queue is full.
package workerpool

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Task is a unit of fire-and-forget work submitted to the pool.
type Task func()

// Pool manages a fixed pool of worker goroutines for concurrent,
// best-effort task execution.
//
// Design:
//   - Fixed number of workers, buffered task queue.
//   - If the queue is full, the task is dropped rather than blocking
//     the submitter or growing the goroutine count.
//
// All methods are safe for concurrent use.
type Pool struct {
	workerCount  int
	taskQueue    chan Task
	ctx          context.Context
	wg           sync.WaitGroup
	droppedTasks int64
	logger       zerolog.Logger
}

// New creates a worker pool with the given number of workers and queue
// capacity. Call Start before Submit.
func New(workerCount, queueSize int, logger zerolog.Logger) *Pool {
	return &Pool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, queueSize),
		logger:      logger,
	}
}

// Start launches the worker goroutines. ctx governs shutdown: workers
// finish their current task and exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.ctx = ctx
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			if task != nil {
				p.runSafely(task)
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) runSafely(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic_value", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("worker panic recovered, worker continues")
		}
	}()
	task()
}

// Submit enqueues a task for asynchronous execution. If the queue is
// full the task is dropped and the drop counter is incremented.
func (p *Pool) Submit(task Task) {
	select {
	case p.taskQueue <- task:
	default:
		atomic.AddInt64(&p.droppedTasks, 1)
	}
}

// Stop closes the task queue and blocks until all workers have
// finished draining it.
func (p *Pool) Stop() {
	close(p.taskQueue)
	p.wg.Wait()
}

// DroppedTasks returns the total number of tasks dropped due to a full
// queue.
func (p *Pool) DroppedTasks() int64 {
	return atomic.LoadInt64(&p.droppedTasks)
}

// QueueDepth returns the current number of tasks waiting in the queue.
func (p *Pool) QueueDepth() int {
	return len(p.taskQueue)
}
