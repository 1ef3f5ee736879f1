package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signalFactory restores "mock" records as tasks that report their ID on done.
type signalFactory struct {
	done chan uuid.UUID
}

func (f *signalFactory) TaskType() string { return "mock" }

func (f *signalFactory) FromRecord(rec TaskRecord) (Task, error) {
	return &mockTask{
		id:       rec.ID,
		taskType: rec.Type,
		payload:  rec.Payload,
		status:   rec.Status,
		execFn: func(ctx context.Context) error {
			f.done <- rec.ID
			return nil
		},
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func waitForIDs(t *testing.T, ch <-chan uuid.UUID, n int) map[uuid.UUID]bool {
	t.Helper()
	seen := make(map[uuid.UUID]bool)
	timeout := time.After(2 * time.Second)
	for len(seen) < n {
		select {
		case id := <-ch:
			seen[id] = true
		case <-timeout:
			t.Fatalf("timed out after %d of %d tasks", len(seen), n)
		}
	}
	return seen
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	logger := discardLogger()

	t.Run("successful submission", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), logger)

		task := newMockTask()
		err := runner.Submit(context.Background(), task)

		assert.NoError(t, err)
		assert.Equal(t, TaskStatusPending, store.Status(task.ID()))
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		config := DefaultTaskRunnerConfig()
		config.QueueSize = 1
		runner := NewTaskRunner(store, config, logger)

		require.NoError(t, runner.Submit(context.Background(), newMockTask()))

		task2 := newMockTask()
		err := runner.Submit(context.Background(), task2)

		assert.ErrorIs(t, err, ErrQueueFull)
		// The task is persisted and will be picked up by recovery.
		assert.Equal(t, TaskStatusPending, store.Status(task2.ID()))
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		store.SaveErr = errors.New("mock store error")
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), logger)

		err := runner.Submit(context.Background(), newMockTask())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save task")
	})
}

func TestTaskRunner_Start_and_Processing(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	config := DefaultTaskRunnerConfig()
	config.WorkerCount = 2
	config.QueueSize = 10
	runner := NewTaskRunner(store, config, discardLogger())

	done := make(chan uuid.UUID, 5)
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		task := newMockTask()
		task.execFn = func(ctx context.Context) error {
			done <- task.ID()
			return nil
		}
		ids = append(ids, task.ID())
		require.NoError(t, runner.Submit(context.Background(), task))
	}

	require.NoError(t, runner.Start())
	completed := waitForIDs(t, done, 3)

	// Let the completed status be written after the last signal.
	time.Sleep(50 * time.Millisecond)
	runner.Stop()

	for _, id := range ids {
		assert.True(t, completed[id], "task %s should have run", id)
		assert.Equal(t, TaskStatusCompleted, store.Status(id))
		assert.Equal(t,
			[]TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted},
			store.History(id))
	}
}

func TestTaskRunner_TaskFailure(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	errorChan := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		errorChan <- err
	})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		return errors.New("intentional test failure")
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case err := <-errorChan:
		assert.Contains(t, err.Error(), "intentional test failure")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler to be called")
	}
	runner.Stop()

	assert.Equal(t, TaskStatusFailed, store.Status(task.ID()))
}

func TestTaskRunner_TaskPanic(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	errorChan := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		errorChan <- err
	})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		panic("boom")
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case err := <-errorChan:
		assert.Contains(t, err.Error(), "task panicked: boom")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler to be called")
	}
	runner.Stop()

	assert.Equal(t, TaskStatusFailed, store.Status(task.ID()))
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	now := time.Now().UTC()
	pending := TaskRecord{ID: uuid.New(), Type: "mock", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now}
	processing := TaskRecord{ID: uuid.New(), Type: "mock", Status: TaskStatusProcessing, CreatedAt: now, UpdatedAt: now}
	store.Put(pending)
	store.Put(processing)

	factory := &signalFactory{done: make(chan uuid.UUID, 5)}
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	runner.RegisterFactory(factory)

	require.NoError(t, runner.Start())
	completed := waitForIDs(t, factory.done, 2)
	time.Sleep(50 * time.Millisecond)
	runner.Stop()

	assert.True(t, completed[pending.ID])
	assert.True(t, completed[processing.ID])
	assert.Equal(t, TaskStatusCompleted, store.Status(processing.ID))
	assert.Equal(t,
		[]TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted},
		store.History(processing.ID))
}

func TestTaskRunner_Recover_UnknownType(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	now := time.Now().UTC()
	orphan := TaskRecord{ID: uuid.New(), Type: "retired", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now}
	store.Put(orphan)

	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	require.NoError(t, runner.Recover(context.Background()))

	assert.Equal(t, TaskStatusFailed, store.Status(orphan.ID))
}

func TestTaskRunner_StuckTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	factory := &signalFactory{done: make(chan uuid.UUID, 5)}

	config := DefaultTaskRunnerConfig()
	config.StuckTaskAge = 15 * time.Minute
	config.StuckTaskCheckInterval = 50 * time.Millisecond
	runner := NewTaskRunner(store, config, discardLogger())
	runner.RegisterFactory(factory)

	// Start with an empty store so recovery does not pick the task up.
	require.NoError(t, runner.Start())
	defer runner.Stop()

	old := time.Now().UTC().Add(-30 * time.Minute)
	stuck := TaskRecord{ID: uuid.New(), Type: "mock", Status: TaskStatusProcessing, CreatedAt: old, UpdatedAt: old}
	store.Put(stuck)

	select {
	case id := <-factory.done:
		assert.Equal(t, stuck.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stuck task to be executed")
	}
}

func TestTaskRunner_StopLeavesInterruptedTaskProcessing(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	started := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start")
	}
	runner.Stop()

	assert.Equal(t, TaskStatusProcessing, store.Status(task.ID()))
}

func TestTaskRunner_SubmitBeforeStartRunsOnce(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	factory := &signalFactory{done: make(chan uuid.UUID, 5)}
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	runner.RegisterFactory(factory)

	var runs atomic.Int32
	finished := make(chan struct{}, 5)
	task := newMockTask()
	task.execFn = func(context.Context) error {
		runs.Add(1)
		finished <- struct{}{}
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("submitted task did not run")
	}
	time.Sleep(100 * time.Millisecond)
	runner.Stop()

	assert.Equal(t, int32(1), runs.Load())
	assert.Empty(t, factory.done, "recovery must not restore a task already queued")
	assert.Equal(t,
		[]TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted},
		store.History(task.ID()))
}

func TestTaskRunner_StuckMonitorSkipsRunningTask(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	factory := &signalFactory{done: make(chan uuid.UUID, 5)}
	config := DefaultTaskRunnerConfig()
	config.StuckTaskAge = time.Millisecond
	config.StuckTaskCheckInterval = 20 * time.Millisecond
	runner := NewTaskRunner(store, config, discardLogger())
	runner.RegisterFactory(factory)

	started := make(chan struct{})
	release := make(chan struct{})
	task := newMockTask()
	task.execFn = func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	require.NoError(t, runner.Start())
	require.NoError(t, runner.Submit(context.Background(), task))
	<-started

	// Several monitor ticks pass while the task is older than StuckTaskAge.
	time.Sleep(150 * time.Millisecond)
	close(release)
	time.Sleep(50 * time.Millisecond)
	runner.Stop()

	assert.Empty(t, factory.done)
	assert.Equal(t,
		[]TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted},
		store.History(task.ID()))
}

func TestTaskRunner_SubmitSameTaskTwice(t *testing.T) {
	t.Parallel()

	config := DefaultTaskRunnerConfig()
	config.QueueSize = 5
	runner := NewTaskRunner(NewMockTaskStore(), config, discardLogger())

	task := newMockTask()
	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Submit(context.Background(), task))
	assert.Equal(t, 1, runner.queue.Len())
}
