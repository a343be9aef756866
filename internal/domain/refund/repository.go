package refund

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/shared"
)

// DepositRefundRepository defines persistence operations for deposit refunds
type DepositRefundRepository interface {
	// FindByID finds a refund by ID
	FindByID(ctx context.Context, id uuid.UUID) (*DepositRefund, error)
	// FindByOrder finds the refund for an order, or shared.ErrNotFound
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*DepositRefund, error)
	// FindAll finds refunds with filtering (status, date range)
	FindAll(ctx context.Context, filter shared.Filter) ([]DepositRefund, error)
	// FindByCustomer finds a customer's refund history
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]DepositRefund, error)
	// Count counts refunds matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// CountByCustomer counts a customer's refunds matching the filter
	CountByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (int64, error)
	// CountByStatus counts refunds in the given status
	CountByStatus(ctx context.Context, status RefundStatus) (int64, error)
	// Create inserts a new refund. The unique constraint on order_id is the
	// race guard: a duplicate insert fails with DUPLICATE_REFUND.
	Create(ctx context.Context, dr *DepositRefund) error
	// SaveWithLock updates a refund with an optimistic version check
	SaveWithLock(ctx context.Context, dr *DepositRefund) error
}
