package refund

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// Aggregate type constant for DepositRefund
const AggregateTypeDepositRefund = "DepositRefund"

// Event type constants for DepositRefund
const (
	EventTypeDepositRefundCreated   = "DepositRefundCreated"
	EventTypeDepositRefundProcessed = "DepositRefundProcessed"
	EventTypeDepositRefundReopened  = "DepositRefundReopened"
)

// DepositRefundCreatedEvent is raised when the calculator creates a refund
type DepositRefundCreatedEvent struct {
	shared.BaseDomainEvent
	RefundID     uuid.UUID       `json:"refund_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// NewDepositRefundCreatedEvent creates a new DepositRefundCreatedEvent
func NewDepositRefundCreatedEvent(dr *DepositRefund) *DepositRefundCreatedEvent {
	return &DepositRefundCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositRefundCreated, AggregateTypeDepositRefund, dr.ID),
		RefundID:        dr.ID,
		OrderID:         dr.OrderID,
		CustomerID:      dr.CustomerID,
		RefundAmount:    dr.RefundAmount,
	}
}

// DepositRefundProcessedEvent is raised when an admin approves or rejects
type DepositRefundProcessedEvent struct {
	shared.BaseDomainEvent
	RefundID uuid.UUID    `json:"refund_id"`
	OrderID  uuid.UUID    `json:"order_id"`
	Approved bool         `json:"approved"`
	Status   RefundStatus `json:"status"`
}

// NewDepositRefundProcessedEvent creates a new DepositRefundProcessedEvent
func NewDepositRefundProcessedEvent(dr *DepositRefund, approved bool) *DepositRefundProcessedEvent {
	return &DepositRefundProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositRefundProcessed, AggregateTypeDepositRefund, dr.ID),
		RefundID:        dr.ID,
		OrderID:         dr.OrderID,
		Approved:        approved,
		Status:          dr.Status,
	}
}

// DepositRefundReopenedEvent is raised when a rejected refund is reopened
type DepositRefundReopenedEvent struct {
	shared.BaseDomainEvent
	RefundID uuid.UUID `json:"refund_id"`
	OrderID  uuid.UUID `json:"order_id"`
}

// NewDepositRefundReopenedEvent creates a new DepositRefundReopenedEvent
func NewDepositRefundReopenedEvent(dr *DepositRefund) *DepositRefundReopenedEvent {
	return &DepositRefundReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositRefundReopened, AggregateTypeDepositRefund, dr.ID),
		RefundID:        dr.ID,
		OrderID:         dr.OrderID,
	}
}
