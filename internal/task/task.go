package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state a TaskStore records for a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeGeneration runs one generation record through its pipeline.
const TaskTypeGeneration = "generation"

// Task is a unit of background work. Payload must carry everything a
// Factory needs to rebuild the task after a restart.
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// TaskRecord is a task as persisted by a TaskStore. Records are turned
// back into executable tasks by the Factory registered for their type.
type TaskRecord struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Factory rebuilds executable tasks of one type from persisted records.
type Factory interface {
	// TaskType returns the task type this factory restores.
	TaskType() string

	// FromRecord recreates the task described by rec.
	FromRecord(rec TaskRecord) (Task, error)
}

// TaskQueueReader is the consuming side of a TaskQueue.
type TaskQueueReader interface {
	Tasks() <-chan Task
}

// TaskStore persists task records so unfinished work survives restarts.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
	GetPendingTasks(ctx context.Context) ([]TaskRecord, error)

	// GetProcessingTasks returns processing records last updated more than
	// olderThan ago; zero returns all of them.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error)

	WithTx(tx *sql.Tx) TaskStore
}
