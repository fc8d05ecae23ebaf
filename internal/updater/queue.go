package updater

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkQueue runs submitted tasks one at a time, in submission order, on a
// single goroutine. A panicking task is logged and does not stop the queue.
type WorkQueue struct {
	name  string
	log   logrus.FieldLogger
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWorkQueue starts a queue buffering up to size pending tasks.
func NewWorkQueue(name string, size int, log logrus.FieldLogger) *WorkQueue {
	q := &WorkQueue{
		name:  name,
		log:   log.WithField("queue", name),
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit enqueues task, blocking while the buffer is full. It reports false
// when the queue has been stopped.
func (q *WorkQueue) Submit(task func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	q.tasks <- task
	return true
}

// Wait blocks until every task submitted before the call has run. It reports
// false when the queue has been stopped.
func (q *WorkQueue) Wait() bool {
	flushed := make(chan struct{})
	if !q.Submit(func() { close(flushed) }) {
		return false
	}
	<-flushed
	return true
}

// Stop rejects new tasks, runs the pending ones and waits for the worker to
// exit. Stop is idempotent.
func (q *WorkQueue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	<-q.done
}

func (q *WorkQueue) run() {
	defer close(q.done)
	for task := range q.tasks {
		q.runTask(task)
	}
}

func (q *WorkQueue) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithError(fmt.Errorf("panic: %v", r)).Error("Task failed")
		}
	}()
	task()
}
