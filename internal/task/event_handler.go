package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/events"
)

// TaskCreator is satisfied by *GenerationTaskFactory.
type TaskCreator interface {
	CreateTask(generationID, userID uuid.UUID) (Task, error)
}

// TaskSubmitter is satisfied by *TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler bridges generation.requested events to the
// task runner. Other event types are ignored.
type TaskFactoryEventHandler struct {
	creator   TaskCreator
	submitter TaskSubmitter
	logger    *slog.Logger
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

func NewTaskFactoryEventHandler(creator TaskCreator, submitter TaskSubmitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		creator:   creator,
		submitter: submitter,
		logger:    logger.With("component", "task_event_handler"),
	}
}

func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type)
	if event.Type != events.TypeGenerationRequested {
		log.Debug("event ignored")
		return nil
	}

	var p events.GenerationRequestedPayload
	if err := event.UnmarshalPayload(&p); err != nil {
		return h.fail(log, "failed to unmarshal payload", err)
	}
	if p.GenerationID == uuid.Nil || p.UserID == uuid.Nil {
		log.Error("payload missing identifiers")
		return fmt.Errorf("%w: generation_id and user_id are required", ErrInvalidPayload)
	}
	log = log.With("generation_id", p.GenerationID)

	t, err := h.creator.CreateTask(p.GenerationID, p.UserID)
	if err != nil {
		return h.fail(log, "failed to create task", err)
	}
	if err := h.submitter.Submit(ctx, t); err != nil {
		return h.fail(log.With("task_id", t.ID()), "failed to submit task", err)
	}

	log.Info("generation task submitted", "task_id", t.ID())
	return nil
}

func (h *TaskFactoryEventHandler) fail(log *slog.Logger, msg string, err error) error {
	log.Error(msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
