package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Error definitions for generation tasks
var (
	// ErrInvalidPayload is returned when a task payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid task payload")
)

// GenerationRunner executes one generation record on behalf of its owner.
// *Orchestrator implements it.
type GenerationRunner interface {
	Run(ctx context.Context, userID, generationID uuid.UUID) error
}

// GenerationTaskPayload is the persisted payload of a generation task.
type GenerationTaskPayload struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
}

// GenerationTask runs the pipeline of a single generation record.
type GenerationTask struct {
	id      uuid.UUID
	payload GenerationTaskPayload
	runner  GenerationRunner
	logger  *slog.Logger
	status  TaskStatus
}

var _ Task = (*GenerationTask)(nil)

// NewGenerationTask creates a pending task for the given generation.
func NewGenerationTask(
	generationID, userID uuid.UUID,
	runner GenerationRunner,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if generationID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: generation and user IDs are required", ErrInvalidPayload)
	}
	if runner == nil {
		return nil, errors.New("generation runner cannot be nil")
	}

	id := uuid.New()
	return &GenerationTask{
		id: id,
		payload: GenerationTaskPayload{
			GenerationID: generationID,
			UserID:       userID,
		},
		runner: runner,
		logger: logger.With(
			"task_id", id,
			"generation_id", generationID,
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *GenerationTask) Type() string { return TaskTypeGeneration }

// Status returns the current task status
func (t *GenerationTask) Status() TaskStatus { return t.status }

// GenerationID returns the generation record this task drives.
func (t *GenerationTask) GenerationID() uuid.UUID { return t.payload.GenerationID }

// Payload returns the task data as a byte slice
func (t *GenerationTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return nil
	}
	return data
}

// Execute runs the generation pipeline.
func (t *GenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting generation task")

	if err := t.runner.Run(ctx, t.payload.UserID, t.payload.GenerationID); err != nil {
		if ctx.Err() == nil {
			t.status = TaskStatusFailed
		}
		return err
	}

	t.status = TaskStatusCompleted
	return nil
}

// GenerationTaskFactory creates generation tasks and restores them from
// persisted records.
type GenerationTaskFactory struct {
	runner GenerationRunner
	logger *slog.Logger
}

var _ Factory = (*GenerationTaskFactory)(nil)

// NewGenerationTaskFactory creates a factory whose tasks run through runner.
func NewGenerationTaskFactory(runner GenerationRunner, logger *slog.Logger) *GenerationTaskFactory {
	return &GenerationTaskFactory{
		runner: runner,
		logger: logger.With("component", "generation_task"),
	}
}

// CreateTask creates a new task for the given generation.
func (f *GenerationTaskFactory) CreateTask(generationID, userID uuid.UUID) (Task, error) {
	return NewGenerationTask(generationID, userID, f.runner, f.logger)
}

// TaskType implements Factory.
func (f *GenerationTaskFactory) TaskType() string { return TaskTypeGeneration }

// FromRecord implements Factory. The restored task keeps the record's ID.
func (f *GenerationTaskFactory) FromRecord(rec TaskRecord) (Task, error) {
	if rec.Type != TaskTypeGeneration {
		return nil, fmt.Errorf("%w: unexpected task type %q", ErrInvalidPayload, rec.Type)
	}

	var payload GenerationTaskPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	task, err := NewGenerationTask(payload.GenerationID, payload.UserID, f.runner, f.logger)
	if err != nil {
		return nil, err
	}
	task.id = rec.ID
	task.logger = f.logger.With("task_id", rec.ID, "generation_id", payload.GenerationID)
	task.status = rec.Status
	return task, nil
}
