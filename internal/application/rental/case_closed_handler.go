package rental

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/shared"
)

// CaseClosedHandler reacts to a violation case reaching a terminal state by
// reconciling the case's order immediately, instead of waiting for the next
// sweep of the reconciliation batch.
type CaseClosedHandler struct {
	syncService *OrderSyncService
	logger      *zap.Logger
}

// NewCaseClosedHandler creates a new handler for terminal case events
func NewCaseClosedHandler(syncService *OrderSyncService, logger *zap.Logger) *CaseClosedHandler {
	return &CaseClosedHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CaseClosedHandler) EventTypes() []string {
	return []string{
		dispute.EventTypeViolationCaseResponded,
		dispute.EventTypeViolationCaseResolved,
	}
}

// Handle reconciles the order behind a case that just closed. Rejections are
// ignored; only acceptance and admin resolution are terminal.
func (h *CaseClosedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var orderID uuid.UUID
	switch e := event.(type) {
	case *dispute.ViolationCaseRespondedEvent:
		if !e.Accepted {
			return nil
		}
		orderID = e.OrderID
	case *dispute.ViolationCaseResolvedEvent:
		orderID = e.OrderID
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	resolved, err := h.syncService.ResolveOrderWithViolations(ctx, orderID)
	if err != nil {
		// The reconciliation batch retries; concurrency conflicts here are
		// expected when several cases close at once
		h.logger.Warn("reactive order reconciliation failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return err
	}

	if resolved {
		h.logger.Info("order reconciled after case closure",
			zap.String("order_id", orderID.String()),
		)
	}
	return nil
}

// Ensure CaseClosedHandler implements shared.EventHandler
var _ shared.EventHandler = (*CaseClosedHandler)(nil)
