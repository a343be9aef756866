package dispute

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/shared"
)

// ResolutionType classifies the admin's ruling on an escalated case
type ResolutionType string

const (
	// ResolutionTypeUpholdClaim confirms the provider's claim as raised
	ResolutionTypeUpholdClaim ResolutionType = "UPHOLD_CLAIM"
	// ResolutionTypePartialLiability splits liability between both parties
	ResolutionTypePartialLiability ResolutionType = "PARTIAL_LIABILITY"
	// ResolutionTypeDismissClaim rejects the provider's claim entirely
	ResolutionTypeDismissClaim ResolutionType = "DISMISS_CLAIM"
)

// IsValid checks if the type is a valid ResolutionType
func (t ResolutionType) IsValid() bool {
	switch t {
	case ResolutionTypeUpholdClaim, ResolutionTypePartialLiability, ResolutionTypeDismissClaim:
		return true
	}
	return false
}

// String returns the string representation of ResolutionType
func (t ResolutionType) String() string {
	return string(t)
}

// ResolutionStatus tracks settlement bookkeeping for a resolution
type ResolutionStatus string

const (
	ResolutionStatusCompleted ResolutionStatus = "COMPLETED"
)

// IssueResolution is the admin's binding ruling on an escalated violation
// case. At most one resolution exists per case (1:1, enforced by a unique
// constraint). It is immutable once created; a correction requires a new
// case, not an edit.
//
// CustomerFineAmount and ProviderCompensationAmount are a liability split
// between the parties. They do not modify the case's PenaltyAmount, which
// alone feeds the deposit refund calculation.
type IssueResolution struct {
	shared.BaseEntity
	ViolationID                uuid.UUID `gorm:"uniqueIndex"`
	CustomerFineAmount         decimal.Decimal
	ProviderCompensationAmount decimal.Decimal
	ResolutionType             ResolutionType
	Reason                     string
	ResolutionStatus           ResolutionStatus
	ProcessedAt                time.Time
	ProcessedByAdminID         uuid.UUID
}

// TableName returns the database table name
func (IssueResolution) TableName() string {
	return "issue_resolutions"
}

// NewIssueResolution creates a resolution for an escalated case
func NewIssueResolution(
	violationID, adminID uuid.UUID,
	resolutionType ResolutionType,
	reason string,
	customerFineAmount, providerCompensationAmount decimal.Decimal,
) (*IssueResolution, error) {
	if violationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VIOLATION", "Violation ID cannot be empty")
	}
	if adminID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ADMIN", "Admin ID cannot be empty")
	}
	if !resolutionType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown resolution type")
	}
	if reason == "" {
		return nil, shared.NewDomainError("VALIDATION", "Resolution reason is required")
	}
	if customerFineAmount.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Customer fine amount cannot be negative")
	}
	if providerCompensationAmount.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Provider compensation amount cannot be negative")
	}

	return &IssueResolution{
		BaseEntity:                 shared.NewBaseEntity(),
		ViolationID:                violationID,
		CustomerFineAmount:         customerFineAmount,
		ProviderCompensationAmount: providerCompensationAmount,
		ResolutionType:             resolutionType,
		Reason:                     reason,
		ResolutionStatus:           ResolutionStatusCompleted,
		ProcessedAt:                time.Now(),
		ProcessedByAdminID:         adminID,
	}, nil
}
