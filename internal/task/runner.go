package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/redact"
)

// ErrNoFactory is returned when a persisted task has a type no registered
// Factory can restore.
var ErrNoFactory = errors.New("no factory registered for task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists submitted tasks, feeds them through a TaskQueue to a
// WorkerPool and records every status change in the TaskStore. Tasks left
// unfinished by a previous process are restored through registered
// factories on Start.
type TaskRunner struct {
	store  TaskStore
	queue  *TaskQueue
	pool   *WorkerPool
	config TaskRunnerConfig
	logger *slog.Logger

	mu         sync.RWMutex
	factories  map[string]Factory
	errHandler func(task Task, err error)

	// inflight holds ids that are queued or executing in this process.
	// Recovery and the stuck task monitor skip them.
	inflight map[uuid.UUID]struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:     store,
		queue:     NewTaskQueue(config.QueueSize, logger),
		config:    config,
		logger:    logger,
		factories: make(map[string]Factory),
		inflight:  make(map[uuid.UUID]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	r.errHandler = func(task Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", redact.Error(err))
	}
	r.pool = NewWorkerPool(r.queue, config.WorkerCount, func(task Task, err error) {
		r.mu.RLock()
		handler := r.errHandler
		r.mu.RUnlock()
		handler(task, err)
	}, logger)

	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// RegisterFactory makes tasks of f.TaskType() recoverable.
func (r *TaskRunner) RegisterFactory(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.TaskType()] = f
}

// Submit persists a task and adds it to the queue.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if !r.claim(task.ID()) {
		return nil
	}
	// A task that does not fit stays pending in the store and is picked up
	// by the next Recover.
	if err := r.queue.Enqueue(r.track(task)); err != nil {
		r.release(task.ID())
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// claim marks id in flight and reports false if it already was.
func (r *TaskRunner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[id]; ok {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

func (r *TaskRunner) isInflight(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.inflight[id]
	return ok
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels running tasks, waits for the workers and closes the queue.
// Interrupted tasks stay in processing state and are recovered on the
// next Start.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.pool.Stop()
		r.wg.Wait()
		r.queue.Close()
	})
}

// Recover loads unfinished tasks from the store and requeues them.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Tasks left in processing were interrupted by a crash or shutdown.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		if r.isInflight(rec.ID) {
			continue
		}
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if r.isInflight(rec.ID) {
			continue
		}
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}

	return nil
}

func (r *TaskRunner) requeue(ctx context.Context, rec TaskRecord) {
	if !r.claim(rec.ID) {
		r.logger.Debug("task already queued", "task_id", rec.ID)
		return
	}

	task, err := r.rehydrate(rec)
	if err != nil {
		r.logger.Error("failed to restore task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		r.release(rec.ID)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark unrestorable task failed",
				"task_id", rec.ID,
				"error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(r.track(task)); err != nil {
		r.release(rec.ID)
		r.logger.Error("failed to requeue task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		return
	}
	r.logger.Info("requeued task", "task_id", rec.ID, "task_type", rec.Type)
}

func (r *TaskRunner) rehydrate(rec TaskRecord) (Task, error) {
	r.mu.RLock()
	f, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFactory, rec.Type)
	}
	return f.FromRecord(rec)
}

// stuckTaskMonitor periodically resets tasks that have been in processing
// state for longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			stuck, err := r.store.GetProcessingTasks(r.ctx, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuck))
			for _, rec := range stuck {
				// Still queued or running in this process.
				if r.isInflight(rec.ID) {
					continue
				}
				if err := r.store.UpdateTaskStatus(r.ctx, rec.ID, TaskStatusPending,
					"Reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task status",
						"task_id", rec.ID,
						"task_type", rec.Type,
						"error", err)
					continue
				}
				r.requeue(r.ctx, rec)
			}
		}
	}
}

// trackedTask records status transitions around the wrapped task.
type trackedTask struct {
	Task
	store  TaskStore
	logger *slog.Logger
	done   func()
}

func (r *TaskRunner) track(task Task) Task {
	if t, ok := task.(*trackedTask); ok {
		return t
	}
	return &trackedTask{
		Task:   task,
		store:  r.store,
		logger: r.logger.With("task_id", task.ID(), "task_type", task.Type()),
		done:   func() { r.release(task.ID()) },
	}
}

// Execute marks the task processing, runs it and records the outcome. A
// task interrupted by cancellation is left in processing.
func (t *trackedTask) Execute(ctx context.Context) error {
	defer t.done()

	if err := t.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update task status to processing: %w", err)
	}

	t.logger.Info("processing task")
	err := t.run(ctx)

	switch {
	case err == nil:
		if updateErr := t.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusCompleted, ""); updateErr != nil {
			t.logger.Error("failed to update task status to completed", "error", updateErr)
		}
		t.logger.Info("task completed successfully")
	case ctx.Err() != nil:
		t.logger.Warn("task interrupted, leaving it for recovery", "error", err)
	default:
		if updateErr := t.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, redact.Error(err)); updateErr != nil {
			t.logger.Error("failed to update task status to failed", "error", updateErr)
		}
	}

	return err
}

func (t *trackedTask) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.Task.Execute(ctx)
}
