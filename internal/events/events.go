package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TypeGenerationRequested is emitted after a generation record has been
// created and is waiting to be processed.
const TypeGenerationRequested = "generation_requested"

// TaskRequestEvent asks for background work. Type selects the handler and
// Payload carries the type-specific JSON body.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has an empty payload", e.ID)
	}
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates an event of eventType with payload encoded
// as JSON.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event type cannot be empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GenerationRequestedPayload identifies the generation to process and the
// user it is processed on behalf of.
type GenerationRequestedPayload struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
}

// NewGenerationRequestedEvent creates the event announcing a new generation.
func NewGenerationRequestedEvent(generationID, userID uuid.UUID) (*TaskRequestEvent, error) {
	return NewTaskRequestEvent(TypeGenerationRequested, GenerationRequestedPayload{
		GenerationID: generationID,
		UserID:       userID,
	})
}

// EventHandler reacts to emitted events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes events to whoever handles them.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
