package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded, non-blocking hand-off between TaskRunner.Submit
// and the WorkerPool. A full queue rejects work instead of stalling the
// HTTP request that submitted it.
type TaskQueue struct {
	mu     sync.RWMutex
	ch     chan Task
	closed bool
	logger *slog.Logger
}

func NewTaskQueue(capacity int, logger *slog.Logger) *TaskQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &TaskQueue{ch: make(chan Task, capacity), logger: logger}
}

// Enqueue never blocks.
func (q *TaskQueue) Enqueue(t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- t:
	default:
		return fmt.Errorf("%w: %d tasks waiting", ErrQueueFull, cap(q.ch))
	}
	q.logger.Debug("task queued",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"depth", len(q.ch))
	return nil
}

// Close is idempotent. Tasks already buffered stay readable.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *TaskQueue) Tasks() <-chan Task {
	return q.ch
}

// Len reports how many tasks are buffered.
func (q *TaskQueue) Len() int {
	return len(q.ch)
}
