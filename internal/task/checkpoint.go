package task

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/redact"
)

// progressEvent is one status patch on its way to the record store. When
// ack is set the sender waits for the write to finish.
type progressEvent struct {
	patch domain.StatusPatch
	ack   chan error
}

// checkpointer serializes every status patch of one generation through a
// single goroutine, so the persisted record is the only progress state.
type checkpointer struct {
	generations GenerationService
	userID      uuid.UUID
	id          uuid.UUID
	events      chan progressEvent
	done        chan struct{}
	logger      *slog.Logger
}

func startCheckpointer(
	ctx context.Context,
	generations GenerationService,
	gen *domain.Generation,
	logger *slog.Logger,
) *checkpointer {
	c := &checkpointer{
		generations: generations,
		userID:      gen.UserID,
		id:          gen.ID,
		events:      make(chan progressEvent, 16),
		done:        make(chan struct{}),
		logger:      logger,
	}
	go c.loop(ctx)
	return c
}

func (c *checkpointer) loop(ctx context.Context) {
	defer close(c.done)

	for ev := range c.events {
		_, err := c.generations.UpdateGenerationStatus(ctx, c.userID, c.id, ev.patch)
		if ev.ack != nil {
			ev.ack <- err
			continue
		}
		if err != nil {
			c.logger.Warn("failed to checkpoint progress",
				"status", ev.patch.Status,
				"error", redact.Error(err))
		}
	}
}

// report queues a progress update without waiting for it to be written.
// A lost update is superseded by the next one.
func (c *checkpointer) report(patch domain.StatusPatch) {
	c.events <- progressEvent{patch: patch}
}

// commit queues patch behind every earlier update and waits until it has
// been persisted.
func (c *checkpointer) commit(patch domain.StatusPatch) error {
	ack := make(chan error, 1)
	c.events <- progressEvent{patch: patch, ack: ack}
	return <-ack
}

// close drains pending updates and stops the goroutine.
func (c *checkpointer) close() {
	close(c.events)
	<-c.done
}

func generatingPatch(step domain.GenerationStep, progress int, cost float64, eta *int) domain.StatusPatch {
	return domain.StatusPatch{
		Status:                 domain.GenerationStatusGenerating,
		Progress:               &progress,
		CurrentStep:            &step,
		Cost:                   &cost,
		EstimatedTimeRemaining: eta,
	}
}
