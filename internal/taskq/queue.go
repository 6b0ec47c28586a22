// Package taskq provides named FIFO task queues with a bounded number of
// concurrently active tasks per queue. Inbound message processing and
// outbound broadcast execution run on separate queues so a slow broadcast
// never head-of-line-blocks ingestion.
package taskq

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of queued work. The context carries the worker deadline;
// tasks are expected to observe it, they are never forcibly killed.
type Task func(ctx context.Context)

type Queue struct {
	name    string
	max     int
	timeout time.Duration
	log     *zap.Logger

	mu      sync.Mutex
	active  int
	waiting []Task
}

// New builds a queue admitting at most maxConcurrency simultaneously active
// tasks. Tasks beyond the bound wait and are promoted in arrival order.
func New(name string, maxConcurrency int, workerTimeout time.Duration, log *zap.Logger) *Queue {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Queue{name: name, max: maxConcurrency, timeout: workerTimeout, log: log}
}

// Add enqueues a task. If a slot is free it starts immediately, otherwise it
// joins the wait list.
func (q *Queue) Add(task Task) {
	q.mu.Lock()
	if q.active >= q.max {
		q.waiting = append(q.waiting, task)
		q.mu.Unlock()
		return
	}
	q.active++
	q.mu.Unlock()
	go q.drain(task)
}

// drain runs the task, then keeps pulling from the wait list until it is
// empty, holding one active slot the whole time.
func (q *Queue) drain(task Task) {
	for {
		q.execute(task)
		q.mu.Lock()
		if len(q.waiting) == 0 {
			q.active--
			q.mu.Unlock()
			return
		}
		task = q.waiting[0]
		q.waiting = q.waiting[1:]
		q.mu.Unlock()
	}
}

func (q *Queue) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task panicked", zap.String("queue", q.name), zap.Any("panic", r))
		}
	}()

	if q.timeout <= 0 {
		task(context.Background())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	watchdog := time.AfterFunc(q.timeout, func() {
		q.log.Warn("task exceeded worker timeout",
			zap.String("queue", q.name), zap.Duration("timeout", q.timeout))
	})
	defer watchdog.Stop()

	task(ctx)
}

// ActiveCount reports the number of currently executing tasks.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// WaitingCount reports the number of tasks parked behind the bound.
func (q *Queue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) Name() string { return q.name }
