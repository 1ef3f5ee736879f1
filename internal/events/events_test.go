package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*TaskRequestEvent
	err    error
	panics bool
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestNewGenerationRequestedEvent(t *testing.T) {
	t.Parallel()

	genID, userID := uuid.New(), uuid.New()
	event, err := NewGenerationRequestedEvent(genID, userID)
	require.NoError(t, err)

	assert.Equal(t, TypeGenerationRequested, event.Type)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "UTC", event.CreatedAt.Location().String())

	var payload GenerationRequestedPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, genID, payload.GenerationID)
	assert.Equal(t, userID, payload.UserID)
}

func TestNewTaskRequestEvent_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRequestEvent("", map[string]string{})
	assert.Error(t, err)

	_, err = NewTaskRequestEvent("bad_payload", make(chan int))
	assert.Error(t, err)

	var payload GenerationRequestedPayload
	assert.Error(t, (&TaskRequestEvent{ID: uuid.New()}).UnmarshalPayload(&payload))
}

func TestInMemoryEventEmitter_EmitEvent(t *testing.T) {
	t.Parallel()

	event, err := NewGenerationRequestedEvent(uuid.New(), uuid.New())
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		log, buf := logger.NewTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Contains(t, buf.String(), "no handlers registered")
	})

	t.Run("delivers to every handler", func(t *testing.T) {
		t.Parallel()
		log, _ := logger.NewTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)
		first, second := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 1, first.count())
		assert.Same(t, event, second.events[0])
	})

	t.Run("failures are joined and do not stop delivery", func(t *testing.T) {
		t.Parallel()
		log, _ := logger.NewTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)

		errQueueFull := errors.New("queue full")
		failing := &recordingHandler{err: errQueueFull}
		panicking := &recordingHandler{panics: true}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(panicking)
		emitter.RegisterHandler(healthy)

		err := emitter.EmitEvent(context.Background(), event)
		require.Error(t, err)
		assert.ErrorIs(t, err, errQueueFull)
		assert.Contains(t, err.Error(), "panicked")
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(nil)
		assert.Error(t, emitter.EmitEvent(context.Background(), nil))
	})
}

func TestInMemoryEventEmitter_ConcurrentRegisterAndEmit(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger(t)
	emitter := NewInMemoryEventEmitter(log)
	event, err := NewGenerationRequestedEvent(uuid.New(), uuid.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			emitter.RegisterHandler(&recordingHandler{})
		}()
		go func() {
			defer wg.Done()
			_ = emitter.EmitEvent(context.Background(), event)
		}()
	}
	wg.Wait()

	emitter.mu.RLock()
	defer emitter.mu.RUnlock()
	assert.Len(t, emitter.handlers, 10)
}
