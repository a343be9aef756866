package refund

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/shared"
)

// RefundService handles the admin processing and customer-facing reads of
// deposit refunds
type RefundService struct {
	refundRepo     refund.DepositRefundRepository
	eventPublisher shared.EventPublisher
}

// NewRefundService creates a new RefundService
func NewRefundService(refundRepo refund.DepositRefundRepository) *RefundService {
	return &RefundService{refundRepo: refundRepo}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *RefundService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ProcessRefund records the admin's approve or reject decision on a pending
// refund. Approval requires a destination bank account.
func (s *RefundService) ProcessRefund(ctx context.Context, adminID, refundID uuid.UUID, req ProcessRefundRequest) (*DepositRefundResponse, error) {
	dr, err := s.refundRepo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	if req.Approved {
		var bankAccountID uuid.UUID
		if req.RefundBankAccountID != nil {
			bankAccountID = *req.RefundBankAccountID
		}
		err = dr.Approve(adminID, bankAccountID, req.ExternalTransactionID, req.Notes)
	} else {
		err = dr.Reject(adminID, req.Notes)
	}
	if err != nil {
		return nil, err
	}

	if err := s.refundRepo.SaveWithLock(ctx, dr); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, dr)

	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// ReopenRefund resets a rejected refund back to the pending queue. Admins
// may reopen any refund; the refund's customer may reopen their own.
func (s *RefundService) ReopenRefund(ctx context.Context, actorID uuid.UUID, isAdmin bool, refundID uuid.UUID) (*DepositRefundResponse, error) {
	dr, err := s.refundRepo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !dr.IsOwnedBy(actorID) {
		return nil, shared.ErrForbidden
	}

	if err := dr.Reopen(); err != nil {
		return nil, err
	}
	if err := s.refundRepo.SaveWithLock(ctx, dr); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, dr)

	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// GetByID retrieves a refund for the admin surface
func (s *RefundService) GetByID(ctx context.Context, refundID uuid.UUID) (*DepositRefundResponse, error) {
	dr, err := s.refundRepo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// GetOwn retrieves a refund for its customer; other users get FORBIDDEN
func (s *RefundService) GetOwn(ctx context.Context, customerID, refundID uuid.UUID) (*DepositRefundResponse, error) {
	dr, err := s.refundRepo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if !dr.IsOwnedBy(customerID) {
		return nil, shared.ErrForbidden
	}
	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// GetByOrder retrieves the refund attached to an order for its customer
func (s *RefundService) GetByOrder(ctx context.Context, customerID, orderID uuid.UUID) (*DepositRefundResponse, error) {
	dr, err := s.refundRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !dr.IsOwnedBy(customerID) {
		return nil, shared.ErrForbidden
	}
	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// List retrieves refunds for the admin surface with filtering and pagination
func (s *RefundService) List(ctx context.Context, filter RefundListFilter) ([]DepositRefundResponse, int64, error) {
	domainFilter := buildDomainFilter(filter)

	refunds, err := s.refundRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.refundRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return toResponses(refunds), total, nil
}

// ListOwn retrieves a customer's own refund history
func (s *RefundService) ListOwn(ctx context.Context, customerID uuid.UUID, filter RefundListFilter) ([]DepositRefundResponse, int64, error) {
	domainFilter := buildDomainFilter(filter)

	refunds, err := s.refundRepo.FindByCustomer(ctx, customerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.refundRepo.CountByCustomer(ctx, customerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return toResponses(refunds), total, nil
}

// CountPending returns the size of the admin processing queue
func (s *RefundService) CountPending(ctx context.Context) (int64, error) {
	return s.refundRepo.CountByStatus(ctx, refund.RefundStatusPending)
}

func (s *RefundService) publishEvents(ctx context.Context, dr *refund.DepositRefund) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range dr.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	dr.ClearDomainEvents()
}

func buildDomainFilter(filter RefundListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]any),
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}
	if filter.StartDate != nil {
		domainFilter.Filters["start_date"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		domainFilter.Filters["end_date"] = *filter.EndDate
	}
	return domainFilter
}

func toResponses(refunds []refund.DepositRefund) []DepositRefundResponse {
	responses := make([]DepositRefundResponse, 0, len(refunds))
	for i := range refunds {
		responses = append(responses, ToDepositRefundResponse(&refunds[i]))
	}
	return responses
}
