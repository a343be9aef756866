package refund

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/refund"
)

// ==================== Deposit Refund DTOs ====================

// ProcessRefundRequest represents an admin approving or rejecting a refund
type ProcessRefundRequest struct {
	Approved              bool       `json:"approved"`
	RefundBankAccountID   *uuid.UUID `json:"refund_bank_account_id"`
	ExternalTransactionID string     `json:"external_transaction_id" binding:"omitempty,max=100"`
	Notes                 string     `json:"notes" binding:"omitempty,max=2000"`
}

// RefundListFilter represents filter options for the refund list
type RefundListFilter struct {
	Status    *refund.RefundStatus `form:"status"`
	StartDate *time.Time           `form:"start_date"`
	EndDate   *time.Time           `form:"end_date"`
	Page      int                  `form:"page" binding:"omitempty,min=1"`
	PageSize  int                  `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string               `form:"order_by"`
	OrderDir  string               `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DepositRefundResponse represents a deposit refund in API responses
type DepositRefundResponse struct {
	ID                    uuid.UUID       `json:"id"`
	OrderID               uuid.UUID       `json:"order_id"`
	CustomerID            uuid.UUID       `json:"customer_id"`
	OriginalDepositAmount decimal.Decimal `json:"original_deposit_amount"`
	TotalPenaltyAmount    decimal.Decimal `json:"total_penalty_amount"`
	RefundAmount          decimal.Decimal `json:"refund_amount"`
	Status                string          `json:"status"`
	RefundBankAccountID   *uuid.UUID      `json:"refund_bank_account_id,omitempty"`
	ExternalTransactionID string          `json:"external_transaction_id,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	ProcessedByAdminID    *uuid.UUID      `json:"processed_by_admin_id,omitempty"`
	ProcessedAt           *time.Time      `json:"processed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ToDepositRefundResponse converts a domain refund to a response DTO
func ToDepositRefundResponse(dr *refund.DepositRefund) DepositRefundResponse {
	resp := DepositRefundResponse{
		ID:                    dr.ID,
		OrderID:               dr.OrderID,
		CustomerID:            dr.CustomerID,
		OriginalDepositAmount: dr.OriginalDepositAmount,
		TotalPenaltyAmount:    dr.TotalPenaltyAmount,
		RefundAmount:          dr.RefundAmount,
		Status:                string(dr.Status),
		RefundBankAccountID:   dr.RefundBankAccountID,
		ExternalTransactionID: dr.ExternalTransactionID,
		Notes:                 dr.Notes,
		ProcessedAt:           dr.ProcessedAt,
		CreatedAt:             dr.CreatedAt,
		UpdatedAt:             dr.UpdatedAt,
	}
	if dr.ProcessedBy.Valid {
		adminID := dr.ProcessedBy.ID
		resp.ProcessedByAdminID = &adminID
	}
	return resp
}
