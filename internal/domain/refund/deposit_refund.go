package refund

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// RefundStatus represents the processing state of a deposit refund
type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "PENDING"  // Calculated, awaiting admin decision
	RefundStatusApproved RefundStatus = "APPROVED" // Paid out, terminal
	RefundStatusRejected RefundStatus = "REJECTED" // Declined, may be reopened
)

// IsValid checks if the status is a valid RefundStatus
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusPending, RefundStatusApproved, RefundStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of RefundStatus
func (s RefundStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s RefundStatus) CanTransitionTo(target RefundStatus) bool {
	switch s {
	case RefundStatusPending:
		return target == RefundStatusApproved || target == RefundStatusRejected
	case RefundStatusRejected:
		return target == RefundStatusPending
	case RefundStatusApproved:
		return false // Terminal
	}
	return false
}

// AdminRef identifies the admin who processed a record, if any. It replaces
// a nullable foreign key with an explicit assigned/unassigned value.
type AdminRef struct {
	ID    uuid.UUID
	Valid bool
}

// AssignedTo returns an AdminRef pointing at the given admin
func AssignedTo(adminID uuid.UUID) AdminRef {
	return AdminRef{ID: adminID, Valid: true}
}

// Unassigned returns an AdminRef with no admin attached
func Unassigned() AdminRef {
	return AdminRef{}
}

// Value implements driver.Valuer; unassigned refs store as NULL
func (r AdminRef) Value() (driver.Value, error) {
	if !r.Valid {
		return nil, nil
	}
	return r.ID.String(), nil
}

// Scan implements sql.Scanner
func (r *AdminRef) Scan(value any) error {
	if value == nil {
		*r = Unassigned()
		return nil
	}
	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into AdminRef", value)
	}
	id, err := uuid.Parse(strVal)
	if err != nil {
		return fmt.Errorf("invalid admin id: %w", err)
	}
	*r = AssignedTo(id)
	return nil
}

// DepositRefund is the computed, then admin-processed, return of the
// remaining deposit to the customer. Exactly one exists per order,
// enforced by a unique constraint on OrderID.
type DepositRefund struct {
	shared.BaseAggregateRoot
	OrderID               uuid.UUID `gorm:"uniqueIndex"`
	CustomerID            uuid.UUID
	OriginalDepositAmount decimal.Decimal
	TotalPenaltyAmount    decimal.Decimal
	RefundAmount          decimal.Decimal // max(0, Original - TotalPenalty), 2 decimal places
	Status                RefundStatus
	RefundBankAccountID   *uuid.UUID // Destination account, set on approval
	ExternalTransactionID string
	Notes                 string
	ProcessedBy           AdminRef `gorm:"type:uuid"`
	ProcessedAt           *time.Time
}

// TableName returns the database table name
func (DepositRefund) TableName() string {
	return "deposit_refunds"
}

// NewDepositRefund creates a PENDING refund for an order whose violation
// cases have all reached a terminal state
func NewDepositRefund(orderID, customerID uuid.UUID, originalDeposit, totalPenalty decimal.Decimal) (*DepositRefund, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if originalDeposit.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Original deposit cannot be negative")
	}
	if totalPenalty.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Total penalty cannot be negative")
	}

	refundAmount := originalDeposit.Sub(totalPenalty)
	if refundAmount.IsNegative() {
		refundAmount = decimal.Zero
	}

	dr := &DepositRefund{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		OrderID:               orderID,
		CustomerID:            customerID,
		OriginalDepositAmount: originalDeposit,
		TotalPenaltyAmount:    totalPenalty,
		RefundAmount:          refundAmount.Round(2),
		Status:                RefundStatusPending,
		ProcessedBy:           Unassigned(),
	}

	dr.AddDomainEvent(NewDepositRefundCreatedEvent(dr))

	return dr, nil
}

// Approve executes the refund. The destination bank account is mandatory;
// the external transaction ID records the payout reference.
func (dr *DepositRefund) Approve(adminID, bankAccountID uuid.UUID, externalTransactionID, notes string) error {
	if !dr.Status.CanTransitionTo(RefundStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve a refund in %s status", dr.Status))
	}
	if adminID == uuid.Nil {
		return shared.NewDomainError("INVALID_ADMIN", "Admin ID cannot be empty")
	}
	if bankAccountID == uuid.Nil {
		return shared.NewDomainError("VALIDATION", "A bank account is required to approve a refund")
	}

	now := time.Now()
	dr.Status = RefundStatusApproved
	dr.RefundBankAccountID = &bankAccountID
	dr.ExternalTransactionID = externalTransactionID
	dr.Notes = notes
	dr.ProcessedBy = AssignedTo(adminID)
	dr.ProcessedAt = &now
	dr.UpdatedAt = now

	dr.AddDomainEvent(NewDepositRefundProcessedEvent(dr, true))

	return nil
}

// Reject declines the refund with a reason recorded in Notes
func (dr *DepositRefund) Reject(adminID uuid.UUID, notes string) error {
	if !dr.Status.CanTransitionTo(RefundStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject a refund in %s status", dr.Status))
	}
	if adminID == uuid.Nil {
		return shared.NewDomainError("INVALID_ADMIN", "Admin ID cannot be empty")
	}
	if notes == "" {
		return shared.NewDomainError("VALIDATION", "Rejection notes are required")
	}

	now := time.Now()
	dr.Status = RefundStatusRejected
	dr.Notes = notes
	dr.ProcessedBy = AssignedTo(adminID)
	dr.ProcessedAt = &now
	dr.UpdatedAt = now

	dr.AddDomainEvent(NewDepositRefundProcessedEvent(dr, false))

	return nil
}

// Reopen resets a rejected refund back to PENDING, clearing all
// processing fields
func (dr *DepositRefund) Reopen() error {
	if !dr.Status.CanTransitionTo(RefundStatusPending) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reopen a refund in %s status", dr.Status))
	}

	dr.Status = RefundStatusPending
	dr.RefundBankAccountID = nil
	dr.ExternalTransactionID = ""
	dr.Notes = ""
	dr.ProcessedBy = Unassigned()
	dr.ProcessedAt = nil
	dr.UpdatedAt = time.Now()

	dr.AddDomainEvent(NewDepositRefundReopenedEvent(dr))

	return nil
}

// IsOwnedBy returns true if the given user is the customer the refund is
// owed to. A provider renting another provider's item owns its refunds the
// same way.
func (dr *DepositRefund) IsOwnedBy(userID uuid.UUID) bool {
	return dr.CustomerID == userID
}

// IsPending returns true if the refund awaits an admin decision
func (dr *DepositRefund) IsPending() bool {
	return dr.Status == RefundStatusPending
}

// IsTerminal returns true once the refund has been paid out
func (dr *DepositRefund) IsTerminal() bool {
	return dr.Status == RefundStatusApproved
}
