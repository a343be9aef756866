package dispute

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/dispute"
)

// ==================== Violation Case DTOs ====================

// CreateViolationItemInput represents one claim against one order item
type CreateViolationItemInput struct {
	OrderItemID       uuid.UUID        `json:"order_item_id" binding:"required"`
	ViolationType     string           `json:"violation_type" binding:"required,oneof=DAMAGED LATE_RETURN NOT_RETURNED"`
	Description       string           `json:"description" binding:"required,min=1,max=2000"`
	DamagePercentage  *decimal.Decimal `json:"damage_percentage"`
	PenaltyPercentage decimal.Decimal  `json:"penalty_percentage"`
	PenaltyAmount     decimal.Decimal  `json:"penalty_amount"`
	EvidenceURLs      []string         `json:"evidence_urls" binding:"omitempty,dive,url"`
}

// CreateViolationCasesRequest represents a provider raising claims against an order
type CreateViolationCasesRequest struct {
	OrderID uuid.UUID                  `json:"order_id" binding:"required"`
	Items   []CreateViolationItemInput `json:"items" binding:"required,min=1"`
}

// ReviseViolationCaseRequest represents the fields a provider may change
// when revising a rejected claim or editing an unanswered one
type ReviseViolationCaseRequest struct {
	Description        string           `json:"description"`
	DamagePercentage   *decimal.Decimal `json:"damage_percentage"`
	PenaltyPercentage  *decimal.Decimal `json:"penalty_percentage"`
	PenaltyAmount      *decimal.Decimal `json:"penalty_amount"`
	ResponseToCustomer string           `json:"response_to_customer" binding:"omitempty,max=2000"`
}

// CustomerResponseRequest represents the customer's answer to a pending
// claim, with optional supporting evidence attached in the same call
type CustomerResponseRequest struct {
	Accepted     bool     `json:"accepted"`
	Notes        string   `json:"notes" binding:"omitempty,max=2000"`
	EvidenceURLs []string `json:"evidence_urls" binding:"omitempty,dive,url"`
}

// EscalateCaseRequest represents a request to escalate a rejected case
type EscalateCaseRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=2000"`
}

// AddEvidenceRequest represents a request to append evidence to a case
type AddEvidenceRequest struct {
	ImageURL string `json:"image_url" binding:"required,url"`
	FileType string `json:"file_type" binding:"required"`
}

// CreateResolutionRequest represents an admin ruling on an escalated case
type CreateResolutionRequest struct {
	ViolationID                uuid.UUID       `json:"violation_id" binding:"required"`
	ResolutionType             string          `json:"resolution_type" binding:"required,oneof=UPHOLD_CLAIM PARTIAL_LIABILITY DISMISS_CLAIM"`
	Reason                     string          `json:"reason" binding:"required,min=1,max=2000"`
	CustomerFineAmount         decimal.Decimal `json:"customer_fine_amount"`
	ProviderCompensationAmount decimal.Decimal `json:"provider_compensation_amount"`
}

// PendingDisputeListFilter represents filter options for the admin queue
type PendingDisputeListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// EvidenceResponse represents an evidence record in API responses
type EvidenceResponse struct {
	ID         uuid.UUID `json:"id"`
	ImageURL   string    `json:"image_url"`
	UploadedBy string    `json:"uploaded_by"`
	FileType   string    `json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// ViolationCaseResponse represents a violation case in API responses
type ViolationCaseResponse struct {
	ID                         uuid.UUID          `json:"id"`
	OrderID                    uuid.UUID          `json:"order_id"`
	OrderItemID                uuid.UUID          `json:"order_item_id"`
	ProviderID                 uuid.UUID          `json:"provider_id"`
	ViolationType              string             `json:"violation_type"`
	Description                string             `json:"description"`
	DamagePercentage           *decimal.Decimal   `json:"damage_percentage,omitempty"`
	PenaltyPercentage          decimal.Decimal    `json:"penalty_percentage"`
	PenaltyAmount              decimal.Decimal    `json:"penalty_amount"`
	DepositBase                decimal.Decimal    `json:"deposit_base"`
	Status                     string             `json:"status"`
	CustomerNotes              string             `json:"customer_notes,omitempty"`
	CustomerResponseAt         *time.Time         `json:"customer_response_at,omitempty"`
	CustomerEscalationReason   string             `json:"customer_escalation_reason,omitempty"`
	ProviderResponseToCustomer string             `json:"provider_response_to_customer,omitempty"`
	ProviderResponseAt         *time.Time         `json:"provider_response_at,omitempty"`
	ProviderEscalationReason   string             `json:"provider_escalation_reason,omitempty"`
	ResolvedAt                 *time.Time         `json:"resolved_at,omitempty"`
	Evidence                   []EvidenceResponse `json:"evidence"`
	CreatedAt                  time.Time          `json:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at"`
}

// ProductSummary describes the rented line a case was raised against
type ProductSummary struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	DepositPerUnit decimal.Decimal `json:"deposit_per_unit"`
	Quantity       int             `json:"quantity"`
}

// ViolationCaseWithProductResponse pairs a case with its order line details
type ViolationCaseWithProductResponse struct {
	ViolationCaseResponse
	Product *ProductSummary `json:"product,omitempty"`
}

// IssueResolutionResponse represents an admin resolution in API responses
type IssueResolutionResponse struct {
	ID                         uuid.UUID       `json:"id"`
	ViolationID                uuid.UUID       `json:"violation_id"`
	ResolutionType             string          `json:"resolution_type"`
	Reason                     string          `json:"reason"`
	CustomerFineAmount         decimal.Decimal `json:"customer_fine_amount"`
	ProviderCompensationAmount decimal.Decimal `json:"provider_compensation_amount"`
	ResolutionStatus           string          `json:"resolution_status"`
	ProcessedAt                time.Time       `json:"processed_at"`
	ProcessedByAdminID         uuid.UUID       `json:"processed_by_admin_id"`
}

// ToEvidenceResponse converts a domain evidence record to a response DTO
func ToEvidenceResponse(ev *dispute.ViolationEvidence) EvidenceResponse {
	return EvidenceResponse{
		ID:         ev.ID,
		ImageURL:   ev.ImageURL,
		UploadedBy: string(ev.UploadedBy),
		FileType:   ev.FileType,
		CreatedAt:  ev.CreatedAt,
	}
}

// ToViolationCaseResponse converts a domain case to a response DTO
func ToViolationCaseResponse(vc *dispute.ViolationCase) ViolationCaseResponse {
	evidence := make([]EvidenceResponse, 0, len(vc.Evidence))
	for i := range vc.Evidence {
		evidence = append(evidence, ToEvidenceResponse(&vc.Evidence[i]))
	}
	return ViolationCaseResponse{
		ID:                         vc.ID,
		OrderID:                    vc.OrderID,
		OrderItemID:                vc.OrderItemID,
		ProviderID:                 vc.ProviderID,
		ViolationType:              string(vc.ViolationType),
		Description:                vc.Description,
		DamagePercentage:           vc.DamagePercentage,
		PenaltyPercentage:          vc.PenaltyPercentage,
		PenaltyAmount:              vc.PenaltyAmount,
		DepositBase:                vc.DepositBase,
		Status:                     string(vc.Status),
		CustomerNotes:              vc.CustomerNotes,
		CustomerResponseAt:         vc.CustomerResponseAt,
		CustomerEscalationReason:   vc.CustomerEscalationReason,
		ProviderResponseToCustomer: vc.ProviderResponseToCustomer,
		ProviderResponseAt:         vc.ProviderResponseAt,
		ProviderEscalationReason:   vc.ProviderEscalationReason,
		ResolvedAt:                 vc.ResolvedAt,
		Evidence:                   evidence,
		CreatedAt:                  vc.CreatedAt,
		UpdatedAt:                  vc.UpdatedAt,
	}
}

// ToIssueResolutionResponse converts a domain resolution to a response DTO
func ToIssueResolutionResponse(res *dispute.IssueResolution) IssueResolutionResponse {
	return IssueResolutionResponse{
		ID:                         res.ID,
		ViolationID:                res.ViolationID,
		ResolutionType:             string(res.ResolutionType),
		Reason:                     res.Reason,
		CustomerFineAmount:         res.CustomerFineAmount,
		ProviderCompensationAmount: res.ProviderCompensationAmount,
		ResolutionStatus:           string(res.ResolutionStatus),
		ProcessedAt:                res.ProcessedAt,
		ProcessedByAdminID:         res.ProcessedByAdminID,
	}
}
