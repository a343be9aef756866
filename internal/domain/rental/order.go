package rental

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// OrderStatus represents the aggregate status of a rental order.
// Only the post-return segment is owned by this engine; the happy-path
// lifecycle (pending, approved, shipped, in use) is driven externally.
type OrderStatus string

const (
	OrderStatusReturning         OrderStatus = "RETURNING"           // Item on its way back to the provider
	OrderStatusReturned          OrderStatus = "RETURNED"            // Fully returned, deposit refund underway
	OrderStatusReturnedWithIssue OrderStatus = "RETURNED_WITH_ISSUE" // At least one open violation case
)

// IsValid checks if the status is one this engine recognizes
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusReturning, OrderStatusReturned, OrderStatusReturnedWithIssue:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is one rented line of an order. Deposits are held per line.
type OrderItem struct {
	shared.BaseEntity
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	ProductName    string
	DepositPerUnit decimal.Decimal
	Quantity       int
}

// TableName returns the database table name
func (OrderItem) TableName() string {
	return "rental_order_items"
}

// DepositBase returns the deposit attributable to this line
// (DepositPerUnit * Quantity), the ceiling for any penalty against it.
func (i *OrderItem) DepositBase() decimal.Decimal {
	return i.DepositPerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RentalOrder is the order aggregate as seen by the dispute engine.
// This engine reads the deposit figures and owns only the status segment
// between RETURNING and RETURNED.
type RentalOrder struct {
	shared.BaseAggregateRoot
	OrderNumber   string
	CustomerID    uuid.UUID
	ProviderID    uuid.UUID
	Status        OrderStatus
	DepositAmount decimal.Decimal // Sum of per-line deposits, snapshot at checkout
	Items         []OrderItem     `gorm:"foreignKey:OrderID"`
}

// TableName returns the database table name
func (RentalOrder) TableName() string {
	return "rental_orders"
}

// CanOpenDispute reports whether a new violation case may be raised against
// this order. An order that has fully reached RETURNED cannot reopen into
// dispute.
func (o *RentalOrder) CanOpenDispute() bool {
	return o.Status == OrderStatusReturning || o.Status == OrderStatusReturnedWithIssue
}

// MarkReturnedWithIssue flags the order as disputed. Idempotent when the
// order is already flagged; rejected once the order has fully returned.
func (o *RentalOrder) MarkReturnedWithIssue() error {
	switch o.Status {
	case OrderStatusReturning, OrderStatusReturnedWithIssue:
		o.Status = OrderStatusReturnedWithIssue
		return nil
	default:
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot open a dispute on an order in %s status", o.Status))
	}
}

// MarkReturned closes the dispute segment once every violation case is
// terminal. Only valid from RETURNED_WITH_ISSUE.
func (o *RentalOrder) MarkReturned() error {
	if o.Status != OrderStatusReturnedWithIssue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark an order in %s status as returned", o.Status))
	}
	o.Status = OrderStatusReturned
	o.AddDomainEvent(NewOrderMarkedReturnedEvent(o))
	return nil
}

// GetItem returns an order item by its ID, or nil
func (o *RentalOrder) GetItem(itemID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// IsRentedBy returns true if the given user is the renting customer.
// A provider renting another provider's item is a customer here too.
func (o *RentalOrder) IsRentedBy(userID uuid.UUID) bool {
	return o.CustomerID == userID
}

// IsProvidedBy returns true if the given provider owns the rented items
func (o *RentalOrder) IsProvidedBy(providerID uuid.UUID) bool {
	return o.ProviderID == providerID
}

// Aggregate type constant for RentalOrder
const AggregateTypeRentalOrder = "RentalOrder"

// Event type constants for RentalOrder
const (
	EventTypeOrderMarkedReturned = "OrderMarkedReturned"
)

// OrderMarkedReturnedEvent is raised when all violation cases on an order
// reached a terminal state and the order flipped to RETURNED
type OrderMarkedReturnedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// NewOrderMarkedReturnedEvent creates a new OrderMarkedReturnedEvent
func NewOrderMarkedReturnedEvent(o *RentalOrder) *OrderMarkedReturnedEvent {
	return &OrderMarkedReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderMarkedReturned, AggregateTypeRentalOrder, o.ID),
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		DepositAmount:   o.DepositAmount,
	}
}
