package cache

import (
	"context"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/shared"
)

// CountInvalidationHandler drops cached dashboard counters whenever a
// dispute or refund changes state, so admins never see stale badge counts
// for longer than one request.
type CountInvalidationHandler struct {
	cache *CounterCache
}

// NewCountInvalidationHandler creates a new CountInvalidationHandler
func NewCountInvalidationHandler(cache *CounterCache) *CountInvalidationHandler {
	return &CountInvalidationHandler{cache: cache}
}

// EventTypes returns the event types this handler subscribes to
func (h *CountInvalidationHandler) EventTypes() []string {
	return []string{
		dispute.EventTypeViolationCaseEscalated,
		dispute.EventTypeViolationCaseResolved,
		refund.EventTypeDepositRefundCreated,
		refund.EventTypeDepositRefundProcessed,
		refund.EventTypeDepositRefundReopened,
	}
}

// Handle invalidates the counter affected by the event
func (h *CountInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch event.EventType() {
	case dispute.EventTypeViolationCaseEscalated, dispute.EventTypeViolationCaseResolved:
		h.cache.Invalidate(ctx, KeyPendingDisputes)
	case refund.EventTypeDepositRefundCreated, refund.EventTypeDepositRefundProcessed, refund.EventTypeDepositRefundReopened:
		h.cache.Invalidate(ctx, KeyPendingRefunds)
	}
	return nil
}

// Ensure CountInvalidationHandler implements EventHandler
var _ shared.EventHandler = (*CountInvalidationHandler)(nil)
