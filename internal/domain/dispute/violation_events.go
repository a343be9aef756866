package dispute

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// Aggregate type constant for ViolationCase
const AggregateTypeViolationCase = "ViolationCase"

// Event type constants for ViolationCase
const (
	EventTypeViolationCaseCreated   = "ViolationCaseCreated"
	EventTypeViolationCaseResponded = "ViolationCaseResponded"
	EventTypeViolationCaseEscalated = "ViolationCaseEscalated"
	EventTypeViolationCaseRevised   = "ViolationCaseRevised"
	EventTypeViolationCaseResolved  = "ViolationCaseResolved"
)

// ViolationCaseCreatedEvent is raised when a provider opens a new claim
type ViolationCaseCreatedEvent struct {
	shared.BaseDomainEvent
	ViolationID   uuid.UUID       `json:"violation_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	OrderItemID   uuid.UUID       `json:"order_item_id"`
	ProviderID    uuid.UUID       `json:"provider_id"`
	ViolationType ViolationType   `json:"violation_type"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
}

// NewViolationCaseCreatedEvent creates a new ViolationCaseCreatedEvent
func NewViolationCaseCreatedEvent(vc *ViolationCase) *ViolationCaseCreatedEvent {
	return &ViolationCaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeViolationCaseCreated, AggregateTypeViolationCase, vc.ID),
		ViolationID:     vc.ID,
		OrderID:         vc.OrderID,
		OrderItemID:     vc.OrderItemID,
		ProviderID:      vc.ProviderID,
		ViolationType:   vc.ViolationType,
		PenaltyAmount:   vc.PenaltyAmount,
	}
}

// ViolationCaseRespondedEvent is raised when the customer accepts or rejects
type ViolationCaseRespondedEvent struct {
	shared.BaseDomainEvent
	ViolationID uuid.UUID  `json:"violation_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	Accepted    bool       `json:"accepted"`
	Status      CaseStatus `json:"status"`
}

// NewViolationCaseRespondedEvent creates a new ViolationCaseRespondedEvent
func NewViolationCaseRespondedEvent(vc *ViolationCase, accepted bool) *ViolationCaseRespondedEvent {
	return &ViolationCaseRespondedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeViolationCaseResponded, AggregateTypeViolationCase, vc.ID),
		ViolationID:     vc.ID,
		OrderID:         vc.OrderID,
		Accepted:        accepted,
		Status:          vc.Status,
	}
}

// ViolationCaseEscalatedEvent is raised when a rejected case goes to arbitration
type ViolationCaseEscalatedEvent struct {
	shared.BaseDomainEvent
	ViolationID uuid.UUID `json:"violation_id"`
	OrderID     uuid.UUID `json:"order_id"`
	EscalatedBy Party     `json:"escalated_by"`
}

// NewViolationCaseEscalatedEvent creates a new ViolationCaseEscalatedEvent
func NewViolationCaseEscalatedEvent(vc *ViolationCase, by Party) *ViolationCaseEscalatedEvent {
	return &ViolationCaseEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeViolationCaseEscalated, AggregateTypeViolationCase, vc.ID),
		ViolationID:     vc.ID,
		OrderID:         vc.OrderID,
		EscalatedBy:     by,
	}
}

// ViolationCaseRevisedEvent is raised when a provider revises a rejected claim
type ViolationCaseRevisedEvent struct {
	shared.BaseDomainEvent
	ViolationID   uuid.UUID       `json:"violation_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
}

// NewViolationCaseRevisedEvent creates a new ViolationCaseRevisedEvent
func NewViolationCaseRevisedEvent(vc *ViolationCase) *ViolationCaseRevisedEvent {
	return &ViolationCaseRevisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeViolationCaseRevised, AggregateTypeViolationCase, vc.ID),
		ViolationID:     vc.ID,
		OrderID:         vc.OrderID,
		PenaltyAmount:   vc.PenaltyAmount,
	}
}

// ViolationCaseResolvedEvent is raised when the admin issues a binding ruling
type ViolationCaseResolvedEvent struct {
	shared.BaseDomainEvent
	ViolationID   uuid.UUID       `json:"violation_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
}

// NewViolationCaseResolvedEvent creates a new ViolationCaseResolvedEvent
func NewViolationCaseResolvedEvent(vc *ViolationCase) *ViolationCaseResolvedEvent {
	return &ViolationCaseResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeViolationCaseResolved, AggregateTypeViolationCase, vc.ID),
		ViolationID:     vc.ID,
		OrderID:         vc.OrderID,
		PenaltyAmount:   vc.PenaltyAmount,
	}
}
