package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentio/backend/internal/domain/shared"
)

type caseEvent struct {
	shared.BaseDomainEvent
}

func newCaseEvent(eventType string) *caseEvent {
	return &caseEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "ViolationCase", uuid.New()),
	}
}

// recordingHandler collects every event it receives, optionally failing or
// panicking on Handle.
type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panics     bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler blew up")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to the handler of the matching type", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		responded := &recordingHandler{}
		processed := &recordingHandler{}
		bus.Subscribe(responded, "ViolationCaseResponded")
		bus.Subscribe(processed, "DepositRefundProcessed")

		event := newCaseEvent("ViolationCaseResponded")
		require.NoError(t, bus.Publish(context.Background(), event))

		require.Equal(t, 1, responded.count())
		assert.Equal(t, event.EventID(), responded.received[0].EventID())
		assert.Equal(t, 0, processed.count())
	})

	t.Run("falls back to the handler's own event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{eventTypes: []string{"ViolationCaseResponded", "ViolationCaseEscalated"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(),
			newCaseEvent("ViolationCaseResponded"),
			newCaseEvent("ViolationCaseEscalated"),
			newCaseEvent("DepositRefundProcessed"),
		))

		assert.Equal(t, 2, handler.count())
	})

	t.Run("a handler with no types receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := &recordingHandler{}
		bus.Subscribe(audit)

		require.NoError(t, bus.Publish(context.Background(),
			newCaseEvent("ViolationCaseResponded"),
			newCaseEvent("DepositRefundProcessed"),
		))

		assert.Equal(t, 2, audit.count())
	})

	t.Run("a failing handler does not stop the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{err: errors.New("reconciliation failed")}
		healthy := &recordingHandler{}
		bus.Subscribe(failing, "ViolationCaseResponded")
		bus.Subscribe(healthy, "ViolationCaseResponded")

		require.NoError(t, bus.Publish(context.Background(), newCaseEvent("ViolationCaseResponded")))

		assert.Equal(t, 1, failing.count())
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("a panicking handler is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{panics: true}
		healthy := &recordingHandler{}
		bus.Subscribe(panicking, "ViolationCaseEscalated")
		bus.Subscribe(healthy, "ViolationCaseEscalated")

		require.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newCaseEvent("ViolationCaseEscalated"))
		})
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("no subscribers is a no-op", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())

		assert.NoError(t, bus.Publish(context.Background(), newCaseEvent("ViolationCaseResponded")))
	})
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler, "ViolationCaseResponded")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), newCaseEvent("ViolationCaseResponded"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, handler.count())
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}
