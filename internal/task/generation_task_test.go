package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	userID       uuid.UUID
	generationID uuid.UUID
	err          error
}

func (r *recordingRunner) Run(_ context.Context, userID, generationID uuid.UUID) error {
	r.userID = userID
	r.generationID = generationID
	return r.err
}

func TestGenerationTaskFactory_CreateAndRestore(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	factory := NewGenerationTaskFactory(runner, discardLogger())
	generationID, userID := uuid.New(), uuid.New()

	created, err := factory.CreateTask(generationID, userID)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeGeneration, created.Type())
	assert.Equal(t, TaskStatusPending, created.Status())
	assert.JSONEq(t,
		`{"generation_id":"`+generationID.String()+`","user_id":"`+userID.String()+`"}`,
		string(created.Payload()))

	restored, err := factory.FromRecord(TaskRecord{
		ID:      created.ID(),
		Type:    created.Type(),
		Payload: created.Payload(),
		Status:  TaskStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID(), restored.ID())
	assert.Equal(t, TaskStatusProcessing, restored.Status())

	require.NoError(t, restored.Execute(context.Background()))
	assert.Equal(t, generationID, runner.generationID)
	assert.Equal(t, userID, runner.userID)
	assert.Equal(t, TaskStatusCompleted, restored.Status())
}

func TestGenerationTaskFactory_FromRecord_Invalid(t *testing.T) {
	t.Parallel()

	factory := NewGenerationTaskFactory(&recordingRunner{}, discardLogger())

	_, err := factory.FromRecord(TaskRecord{ID: uuid.New(), Type: TaskTypeGeneration, Payload: []byte("{")})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = factory.FromRecord(TaskRecord{ID: uuid.New(), Type: "other", Payload: []byte("{}")})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = factory.FromRecord(TaskRecord{ID: uuid.New(), Type: TaskTypeGeneration, Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestGenerationTask_ExecuteFailure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{err: errors.New("provider down")}
	task, err := NewGenerationTask(uuid.New(), uuid.New(), runner, discardLogger())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	assert.EqualError(t, err, "provider down")
	assert.Equal(t, TaskStatusFailed, task.Status())
}
