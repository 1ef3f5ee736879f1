package task

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID      { return m.id }
func (m *mockTask) Type() string       { return m.taskType }
func (m *mockTask) Payload() []byte    { return m.payload }
func (m *mockTask) Status() TaskStatus { return m.status }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn == nil {
		return nil
	}
	return m.execFn(ctx)
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte(`{"generation_id":"x"}`),
		status:   TaskStatusPending,
	}
}

func TestTaskQueue_RejectsWhenFull(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, discardLogger())
	first := newMockTask()

	require.NoError(t, q.Enqueue(first))
	assert.Equal(t, 1, q.Len())

	err := q.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueFull)

	got := <-q.Tasks()
	assert.Equal(t, first.ID(), got.ID())
	assert.NoError(t, q.Enqueue(newMockTask()), "space frees up once a task is consumed")
}

func TestTaskQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(2, discardLogger())
	buffered := newMockTask()
	require.NoError(t, q.Enqueue(buffered))

	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(newMockTask()), ErrQueueClosed)

	got, ok := <-q.Tasks()
	require.True(t, ok)
	assert.Equal(t, buffered.ID(), got.ID())

	_, ok = <-q.Tasks()
	assert.False(t, ok)
}

func TestTaskQueue_ZeroCapacityWithoutReader(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(0, discardLogger())
	assert.ErrorIs(t, q.Enqueue(newMockTask()), ErrQueueFull)
}

func TestTaskQueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 25
	q := NewTaskQueue(producers*perProducer, discardLogger())

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				assert.NoError(t, q.Enqueue(newMockTask()))
			}
		}()
	}
	wg.Wait()
	q.Close()

	seen := make(map[uuid.UUID]struct{})
	for task := range q.Tasks() {
		seen[task.ID()] = struct{}{}
	}
	assert.Len(t, seen, producers*perProducer)
}
