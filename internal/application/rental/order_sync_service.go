package rental

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	refundapp "github.com/rentio/backend/internal/application/refund"
	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
)

// OrderSyncService reconciles order status with the dispute state. An order
// flagged RETURNED_WITH_ISSUE flips to RETURNED once every violation case on
// it has reached a terminal state, and the deposit refund is calculated at
// that moment.
type OrderSyncService struct {
	orderRepo      rental.OrderRepository
	caseRepo       dispute.ViolationCaseRepository
	calculator     *refundapp.CalculatorService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(
	orderRepo rental.OrderRepository,
	caseRepo dispute.ViolationCaseRepository,
	calculator *refundapp.CalculatorService,
	logger *zap.Logger,
) *OrderSyncService {
	return &OrderSyncService{
		orderRepo:  orderRepo,
		caseRepo:   caseRepo,
		calculator: calculator,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderSyncService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// checkResolvable reports why the order cannot be resolved yet, as an
// INVALID_STATE domain error naming the unmet precondition, or nil when
// every case on the order is terminal.
func checkResolvable(order *rental.RentalOrder, cases []dispute.ViolationCase) error {
	if order.Status != rental.OrderStatusReturnedWithIssue {
		return shared.NewDomainError("INVALID_STATE",
			"Order "+order.ID.String()+" is "+order.Status.String()+"; only RETURNED_WITH_ISSUE orders can be resolved")
	}
	if len(cases) == 0 {
		// Flagged but caseless orders stay put; case creation writes the
		// flag and the cases together, so this is a transient read
		return shared.NewDomainError("INVALID_STATE",
			"Order "+order.ID.String()+" has no violation cases yet")
	}
	for i := range cases {
		if !cases[i].IsTerminal() {
			return shared.NewDomainError("INVALID_STATE",
				"Case "+cases[i].ID.String()+" is still "+string(cases[i].Status))
		}
	}
	return nil
}

// ResolveOrder reconciles one order on request. Unlike the event-driven and
// sweep paths it refuses loudly: an unmet precondition comes back as an
// INVALID_STATE error naming the blocker, so an admin can see why the order
// is stuck.
func (s *OrderSyncService) ResolveOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	cases, err := s.caseRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := checkResolvable(order, cases); err != nil {
		return err
	}
	return s.closeOut(ctx, order)
}

// ResolveOrderWithViolations reconciles a single order for the event and
// sweep callers, treating an unmet precondition as a quiet no-op: most
// case-closed events fire while sibling cases are still open, and that is
// not an error. The order save uses a version check, so a case created
// concurrently on the same order makes this reconciliation fail with
// CONCURRENCY_CONFLICT rather than closing the dispute segment early; the
// next run picks the order up again.
func (s *OrderSyncService) ResolveOrderWithViolations(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != rental.OrderStatusReturnedWithIssue {
		return false, nil
	}
	cases, err := s.caseRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if checkResolvable(order, cases) != nil {
		return false, nil
	}

	if err := s.closeOut(ctx, order); err != nil {
		// When the status write already landed the order counts as synced;
		// only the refund calculation is left to retry
		return order.Status == rental.OrderStatusReturned, err
	}
	return true, nil
}

// closeOut flips the order to RETURNED and calculates the deposit refund
func (s *OrderSyncService) closeOut(ctx context.Context, order *rental.RentalOrder) error {
	if err := order.MarkReturned(); err != nil {
		return err
	}
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		for _, event := range order.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		order.ClearDomainEvents()
	}

	if _, err := s.calculator.Calculate(ctx, order.ID); err != nil {
		// The order is already RETURNED; the refund is recovered through
		// the calculator's idempotent manual path
		s.logger.Error("refund calculation failed after order sync",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// SyncResolvedOrderStatuses sweeps every disputed order and reconciles each
// one. Per-order failures are logged and skipped so one stuck order cannot
// stall the batch. Returns the number of orders flipped to RETURNED.
func (s *OrderSyncService) SyncResolvedOrderStatuses(ctx context.Context) (int, error) {
	orderIDs, err := s.orderRepo.FindIDsByStatus(ctx, rental.OrderStatusReturnedWithIssue)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, orderID := range orderIDs {
		resolved, err := s.ResolveOrderWithViolations(ctx, orderID)
		if err != nil {
			s.logger.Warn("order reconciliation failed, will retry next run",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
			continue
		}
		if resolved {
			synced++
		}
	}

	s.logger.Info("order status sync completed",
		zap.Int("candidates", len(orderIDs)),
		zap.Int("synced", synced),
	)

	return synced, nil
}
