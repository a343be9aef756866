package dispute

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// ViolationType classifies the provider's claim against a returned item
type ViolationType string

const (
	ViolationTypeDamaged     ViolationType = "DAMAGED"
	ViolationTypeLateReturn  ViolationType = "LATE_RETURN"
	ViolationTypeNotReturned ViolationType = "NOT_RETURNED"
)

// IsValid checks if the type is a valid ViolationType
func (t ViolationType) IsValid() bool {
	switch t {
	case ViolationTypeDamaged, ViolationTypeLateReturn, ViolationTypeNotReturned:
		return true
	}
	return false
}

// String returns the string representation of ViolationType
func (t ViolationType) String() string {
	return string(t)
}

// CaseStatus represents the status of a violation case
type CaseStatus string

const (
	CaseStatusPending          CaseStatus = "PENDING"           // Waiting for customer response
	CaseStatusCustomerAccepted CaseStatus = "CUSTOMER_ACCEPTED" // Customer accepted the penalty, terminal
	CaseStatusCustomerRejected CaseStatus = "CUSTOMER_REJECTED" // Customer rejected, provider may revise or either side escalates
	CaseStatusEscalated        CaseStatus = "ESCALATED"         // Awaiting admin arbitration
	CaseStatusResolved         CaseStatus = "RESOLVED"          // Admin issued a binding resolution, terminal
)

// IsValid checks if the status is a valid CaseStatus
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusPending, CaseStatusCustomerAccepted, CaseStatusCustomerRejected,
		CaseStatusEscalated, CaseStatusResolved:
		return true
	}
	return false
}

// String returns the string representation of CaseStatus
func (s CaseStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	switch s {
	case CaseStatusPending:
		return target == CaseStatusCustomerAccepted || target == CaseStatusCustomerRejected
	case CaseStatusCustomerRejected:
		return target == CaseStatusPending || target == CaseStatusEscalated
	case CaseStatusEscalated:
		return target == CaseStatusResolved
	case CaseStatusCustomerAccepted, CaseStatusResolved:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true when no further negotiation can occur
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusCustomerAccepted || s == CaseStatusResolved
}

// Party identifies which side of the dispute performed an action
type Party string

const (
	PartyProvider Party = "PROVIDER"
	PartyCustomer Party = "CUSTOMER"
)

// IsValid checks if the party is recognized
func (p Party) IsValid() bool {
	return p == PartyProvider || p == PartyCustomer
}

// ViolationCase is the aggregate root for one provider-raised claim against
// one rented order line. Each case owns its lifecycle independently of
// sibling cases on the same order.
type ViolationCase struct {
	shared.BaseAggregateRoot
	OrderID           uuid.UUID
	OrderItemID       uuid.UUID
	ProviderID        uuid.UUID
	ViolationType     ViolationType
	Description       string
	DamagePercentage  *decimal.Decimal // Optional, 0-100
	PenaltyPercentage decimal.Decimal  // 0-100, share of the deposit base claimed
	PenaltyAmount     decimal.Decimal  // Never exceeds DepositBase
	DepositBase       decimal.Decimal  // DepositPerUnit * Quantity of the order item, snapshot at creation
	Status            CaseStatus

	CustomerNotes            string
	CustomerResponseAt       *time.Time
	CustomerEscalationReason string

	ProviderResponseToCustomer string
	ProviderResponseAt         *time.Time
	ProviderEscalationReason   string

	ResolvedAt *time.Time

	Evidence []ViolationEvidence `gorm:"foreignKey:ViolationID"`
}

// TableName returns the database table name
func (ViolationCase) TableName() string {
	return "violation_cases"
}

var oneHundred = decimal.NewFromInt(100)

// NewViolationCase creates a new violation case in PENDING status.
// The penalty may be given as an absolute amount, a percentage of the
// deposit base, or both; when only a percentage is given the amount is
// derived from it.
func NewViolationCase(
	orderID, orderItemID, providerID uuid.UUID,
	violationType ViolationType,
	description string,
	damagePercentage *decimal.Decimal,
	penaltyPercentage decimal.Decimal,
	penaltyAmount decimal.Decimal,
	depositBase decimal.Decimal,
) (*ViolationCase, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if orderItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER_ITEM", "Order item ID cannot be empty")
	}
	if providerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Provider ID cannot be empty")
	}
	if !violationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_VIOLATION_TYPE", fmt.Sprintf("Unknown violation type %q", violationType))
	}
	if description == "" {
		return nil, shared.NewDomainError("VALIDATION", "Violation description is required")
	}
	if depositBase.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Deposit base cannot be negative")
	}
	if damagePercentage != nil && (damagePercentage.IsNegative() || damagePercentage.GreaterThan(oneHundred)) {
		return nil, shared.NewDomainError("VALIDATION", "Damage percentage must be between 0 and 100")
	}

	penaltyAmount, err := resolvePenalty(penaltyPercentage, penaltyAmount, depositBase)
	if err != nil {
		return nil, err
	}

	vc := &ViolationCase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		OrderItemID:       orderItemID,
		ProviderID:        providerID,
		ViolationType:     violationType,
		Description:       description,
		DamagePercentage:  damagePercentage,
		PenaltyPercentage: penaltyPercentage,
		PenaltyAmount:     penaltyAmount,
		DepositBase:       depositBase,
		Status:            CaseStatusPending,
		Evidence:          make([]ViolationEvidence, 0),
	}

	vc.AddDomainEvent(NewViolationCaseCreatedEvent(vc))

	return vc, nil
}

// resolvePenalty validates the penalty inputs against the deposit ceiling
// and derives the amount from the percentage when no amount is given.
func resolvePenalty(percentage, amount, depositBase decimal.Decimal) (decimal.Decimal, error) {
	if percentage.IsNegative() || percentage.GreaterThan(oneHundred) {
		return decimal.Zero, shared.NewDomainError("VALIDATION", "Penalty percentage must be between 0 and 100")
	}
	if amount.IsNegative() {
		return decimal.Zero, shared.NewDomainError("VALIDATION", "Penalty amount cannot be negative")
	}
	if amount.IsZero() && percentage.IsPositive() {
		amount = depositBase.Mul(percentage).Div(oneHundred).Round(2)
	}
	if amount.GreaterThan(depositBase) {
		return decimal.Zero, shared.ErrPenaltyExceedsDeposit
	}
	return amount, nil
}

// AcceptByCustomer records the customer's acceptance of the claimed penalty.
// Only allowed in PENDING status; the penalty becomes final.
func (vc *ViolationCase) AcceptByCustomer(notes string) error {
	if !vc.Status.CanTransitionTo(CaseStatusCustomerAccepted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot respond to a case in %s status", vc.Status))
	}

	now := time.Now()
	vc.Status = CaseStatusCustomerAccepted
	vc.CustomerNotes = notes
	vc.CustomerResponseAt = &now
	vc.UpdatedAt = now

	vc.AddDomainEvent(NewViolationCaseRespondedEvent(vc, true))

	return nil
}

// RejectByCustomer records the customer's rejection of the claim.
// Notes explaining the rejection are mandatory.
func (vc *ViolationCase) RejectByCustomer(notes string) error {
	if !vc.Status.CanTransitionTo(CaseStatusCustomerRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot respond to a case in %s status", vc.Status))
	}
	if notes == "" {
		return shared.NewDomainError("VALIDATION", "Rejection notes are required")
	}

	now := time.Now()
	vc.Status = CaseStatusCustomerRejected
	vc.CustomerNotes = notes
	vc.CustomerResponseAt = &now
	vc.UpdatedAt = now

	vc.AddDomainEvent(NewViolationCaseRespondedEvent(vc, false))

	return nil
}

// Escalate moves a rejected case to admin arbitration. Either party may
// escalate; the reason is recorded on the escalating side.
func (vc *ViolationCase) Escalate(by Party, reason string) error {
	if !vc.Status.CanTransitionTo(CaseStatusEscalated) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot escalate a case in %s status", vc.Status))
	}
	if !by.IsValid() {
		return shared.NewDomainError("VALIDATION", "Escalating party must be provider or customer")
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION", "Escalation reason is required")
	}

	now := time.Now()
	vc.Status = CaseStatusEscalated
	switch by {
	case PartyCustomer:
		vc.CustomerEscalationReason = reason
	case PartyProvider:
		vc.ProviderEscalationReason = reason
	}
	vc.UpdatedAt = now

	vc.AddDomainEvent(NewViolationCaseEscalatedEvent(vc, by))

	return nil
}

// CaseRevision carries the fields a provider may change on a case
type CaseRevision struct {
	Description        string
	DamagePercentage   *decimal.Decimal
	PenaltyPercentage  *decimal.Decimal
	PenaltyAmount      *decimal.Decimal
	ResponseToCustomer string
}

// Revise lets the provider adjust a rejected claim and send it back to the
// customer. Only allowed in CUSTOMER_REJECTED status; resets the case to
// PENDING and clears the customer response fields.
func (vc *ViolationCase) Revise(rev CaseRevision) error {
	if !vc.Status.CanTransitionTo(CaseStatusPending) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot revise a case in %s status", vc.Status))
	}
	if err := vc.applyPatch(rev); err != nil {
		return err
	}

	now := time.Now()
	vc.Status = CaseStatusPending
	vc.CustomerNotes = ""
	vc.CustomerResponseAt = nil
	vc.CustomerEscalationReason = ""
	if rev.ResponseToCustomer != "" {
		vc.ProviderResponseToCustomer = rev.ResponseToCustomer
		vc.ProviderResponseAt = &now
	}
	vc.UpdatedAt = now

	vc.AddDomainEvent(NewViolationCaseRevisedEvent(vc))

	return nil
}

// Edit corrects a claim before any customer response. The status does not
// change; once the customer has responded the revision path must be used.
func (vc *ViolationCase) Edit(rev CaseRevision) error {
	if vc.Status != CaseStatusPending || vc.CustomerResponseAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Case can only be edited before the customer responds")
	}
	if err := vc.applyPatch(rev); err != nil {
		return err
	}
	vc.UpdatedAt = time.Now()
	return nil
}

// applyPatch validates and applies the revisable fields
func (vc *ViolationCase) applyPatch(rev CaseRevision) error {
	percentage := vc.PenaltyPercentage
	if rev.PenaltyPercentage != nil {
		percentage = *rev.PenaltyPercentage
	}
	amount := vc.PenaltyAmount
	if rev.PenaltyAmount != nil {
		amount = *rev.PenaltyAmount
	} else if rev.PenaltyPercentage != nil {
		// Re-derive from the new percentage when no explicit amount is given
		amount = decimal.Zero
	}
	if rev.DamagePercentage != nil && (rev.DamagePercentage.IsNegative() || rev.DamagePercentage.GreaterThan(oneHundred)) {
		return shared.NewDomainError("VALIDATION", "Damage percentage must be between 0 and 100")
	}

	resolved, err := resolvePenalty(percentage, amount, vc.DepositBase)
	if err != nil {
		return err
	}

	if rev.Description != "" {
		vc.Description = rev.Description
	}
	if rev.DamagePercentage != nil {
		vc.DamagePercentage = rev.DamagePercentage
	}
	vc.PenaltyPercentage = percentage
	vc.PenaltyAmount = resolved
	return nil
}

// Resolve marks the case as resolved by admin arbitration. This is the only
// path into RESOLVED and is invoked exclusively when an IssueResolution is
// recorded for the case.
func (vc *ViolationCase) Resolve() error {
	if !vc.Status.CanTransitionTo(CaseStatusResolved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot resolve a case in %s status", vc.Status))
	}

	now := time.Now()
	vc.Status = CaseStatusResolved
	vc.ResolvedAt = &now
	vc.UpdatedAt = now

	vc.AddDomainEvent(NewViolationCaseResolvedEvent(vc))

	return nil
}

// AddEvidence appends an evidence image to the case. Evidence is append-only
// and may be added by either party while the case is open.
func (vc *ViolationCase) AddEvidence(imageURL string, uploadedBy Party, fileType string) (*ViolationEvidence, error) {
	if vc.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add evidence to a closed case")
	}
	ev, err := NewViolationEvidence(vc.ID, imageURL, uploadedBy, fileType)
	if err != nil {
		return nil, err
	}
	vc.Evidence = append(vc.Evidence, *ev)
	vc.UpdatedAt = time.Now()
	return ev, nil
}

// IsOwnedBy returns true if the given provider raised this case
func (vc *ViolationCase) IsOwnedBy(providerID uuid.UUID) bool {
	return vc.ProviderID == providerID
}

// IsPending returns true if the case awaits a customer response
func (vc *ViolationCase) IsPending() bool {
	return vc.Status == CaseStatusPending
}

// IsEscalated returns true if the case awaits admin arbitration
func (vc *ViolationCase) IsEscalated() bool {
	return vc.Status == CaseStatusEscalated
}

// IsTerminal returns true when the penalty is final
func (vc *ViolationCase) IsTerminal() bool {
	return vc.Status.IsTerminal()
}
