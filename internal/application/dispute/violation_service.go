package dispute

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
	"github.com/rentio/backend/internal/infrastructure/telemetry"
)

// ViolationService handles the provider side of the dispute lifecycle:
// raising claims, editing them before a response, and revising rejected ones.
type ViolationService struct {
	caseRepo       dispute.ViolationCaseRepository
	orderRepo      rental.OrderRepository
	tx             shared.TransactionManager
	eventPublisher shared.EventPublisher
}

// NewViolationService creates a new ViolationService
func NewViolationService(
	caseRepo dispute.ViolationCaseRepository,
	orderRepo rental.OrderRepository,
	tx shared.TransactionManager,
) *ViolationService {
	return &ViolationService{
		caseRepo:  caseRepo,
		orderRepo: orderRepo,
		tx:        tx,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ViolationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateMultiple raises one violation case per claimed order item in a single
// call. The order flag and every case are written in one transaction, so a
// rejected claim in the batch leaves nothing behind. The order save uses a
// version check, which makes a concurrent reconciliation of the same order
// fail with CONCURRENCY_CONFLICT instead of racing past the new cases.
func (s *ViolationService) CreateMultiple(ctx context.Context, providerID uuid.UUID, req CreateViolationCasesRequest) ([]ViolationCaseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "violation_case", "create_multiple")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, req.OrderID.String(),
		telemetry.SpanAttrProviderID, providerID.String(),
		"claim_count", len(req.Items),
	)

	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !order.IsProvidedBy(providerID) {
		return nil, shared.ErrForbidden
	}
	if !order.CanOpenDispute() {
		return nil, shared.NewDomainError("INVALID_STATE", "Disputes cannot be opened on an order in "+order.Status.String()+" status")
	}

	claimedItems := make(map[uuid.UUID]struct{}, len(req.Items))
	cases := make([]*dispute.ViolationCase, 0, len(req.Items))
	for _, item := range req.Items {
		if _, ok := claimedItems[item.OrderItemID]; ok {
			return nil, shared.ErrDuplicateClaim
		}
		claimedItems[item.OrderItemID] = struct{}{}
		orderItem := order.GetItem(item.OrderItemID)
		if orderItem == nil {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found: "+item.OrderItemID.String())
		}

		// One open case per order item; the partial unique index backs
		// this check under concurrency
		existing, err := s.caseRepo.FindOpenByOrderItem(ctx, item.OrderItemID)
		if err != nil && err != shared.ErrNotFound {
			return nil, err
		}
		if existing != nil {
			return nil, shared.ErrDuplicateClaim
		}

		vc, err := dispute.NewViolationCase(
			order.ID,
			orderItem.ID,
			providerID,
			dispute.ViolationType(item.ViolationType),
			item.Description,
			item.DamagePercentage,
			item.PenaltyPercentage,
			item.PenaltyAmount,
			orderItem.DepositBase(),
		)
		if err != nil {
			return nil, err
		}
		for _, url := range item.EvidenceURLs {
			if _, err := vc.AddEvidence(url, dispute.PartyProvider, fileTypeFromURL(url)); err != nil {
				return nil, err
			}
		}
		cases = append(cases, vc)
	}

	// MarkReturnedWithIssue is idempotent but the save always bumps the
	// order version, serializing case creation against reconciliation
	if err := order.MarkReturnedWithIssue(); err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
			return err
		}
		for _, vc := range cases {
			if err := s.caseRepo.Save(ctx, vc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	responses := make([]ViolationCaseResponse, 0, len(cases))
	for _, vc := range cases {
		s.publishEvents(ctx, vc)
		responses = append(responses, ToViolationCaseResponse(vc))
	}

	return responses, nil
}

// EditByProvider corrects a claim the customer has not yet responded to
func (s *ViolationService) EditByProvider(ctx context.Context, providerID, caseID uuid.UUID, req ReviseViolationCaseRequest) (*ViolationCaseResponse, error) {
	vc, err := s.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !vc.IsOwnedBy(providerID) {
		return nil, shared.ErrForbidden
	}

	if err := vc.Edit(toRevision(req)); err != nil {
		return nil, err
	}
	if err := s.caseRepo.SaveWithLock(ctx, vc); err != nil {
		return nil, err
	}

	response := ToViolationCaseResponse(vc)
	return &response, nil
}

// ReviseByProvider adjusts a rejected claim and sends it back to the customer
func (s *ViolationService) ReviseByProvider(ctx context.Context, providerID, caseID uuid.UUID, req ReviseViolationCaseRequest) (*ViolationCaseResponse, error) {
	vc, err := s.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !vc.IsOwnedBy(providerID) {
		return nil, shared.ErrForbidden
	}

	if err := vc.Revise(toRevision(req)); err != nil {
		return nil, err
	}
	if err := s.caseRepo.SaveWithLock(ctx, vc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, vc)

	response := ToViolationCaseResponse(vc)
	return &response, nil
}

// AddEvidence appends an evidence record on behalf of either party. The
// provider must own the case; the customer must have rented the order.
func (s *ViolationService) AddEvidence(ctx context.Context, userID uuid.UUID, party dispute.Party, caseID uuid.UUID, req AddEvidenceRequest) (*ViolationCaseResponse, error) {
	vc, err := s.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	switch party {
	case dispute.PartyProvider:
		if !vc.IsOwnedBy(userID) {
			return nil, shared.ErrForbidden
		}
	case dispute.PartyCustomer:
		order, err := s.orderRepo.FindByID(ctx, vc.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.IsRentedBy(userID) {
			return nil, shared.ErrForbidden
		}
	default:
		return nil, shared.NewDomainError("VALIDATION", "Evidence uploader must be provider or customer")
	}

	ev, err := vc.AddEvidence(req.ImageURL, party, req.FileType)
	if err != nil {
		return nil, err
	}
	if err := s.caseRepo.AddEvidence(ctx, ev); err != nil {
		return nil, err
	}

	response := ToViolationCaseResponse(vc)
	return &response, nil
}

// GetByID retrieves a violation case. Only the dispute's parties may read it.
func (s *ViolationService) GetByID(ctx context.Context, userID, caseID uuid.UUID) (*ViolationCaseResponse, error) {
	vc, err := s.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !vc.IsOwnedBy(userID) {
		order, err := s.orderRepo.FindByID(ctx, vc.OrderID)
		if err != nil {
			return nil, err
		}
		if !order.IsRentedBy(userID) {
			return nil, shared.ErrForbidden
		}
	}
	response := ToViolationCaseResponse(vc)
	return &response, nil
}

// ListByOrder retrieves all cases on an order for one of the dispute's parties
func (s *ViolationService) ListByOrder(ctx context.Context, userID, orderID uuid.UUID) ([]ViolationCaseResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsRentedBy(userID) && !order.IsProvidedBy(userID) {
		return nil, shared.ErrForbidden
	}

	cases, err := s.caseRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	responses := make([]ViolationCaseResponse, 0, len(cases))
	for i := range cases {
		responses = append(responses, ToViolationCaseResponse(&cases[i]))
	}
	return responses, nil
}

// ListByOrderWithProducts retrieves all cases on an order together with the
// rented line each case was raised against. Lines removed from the order
// after the case was opened leave the product field empty.
func (s *ViolationService) ListByOrderWithProducts(ctx context.Context, userID, orderID uuid.UUID) ([]ViolationCaseWithProductResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsRentedBy(userID) && !order.IsProvidedBy(userID) {
		return nil, shared.ErrForbidden
	}

	cases, err := s.caseRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemsByID := make(map[uuid.UUID]rental.OrderItem, len(order.Items))
	for i := range order.Items {
		itemsByID[order.Items[i].ID] = order.Items[i]
	}

	responses := make([]ViolationCaseWithProductResponse, 0, len(cases))
	for i := range cases {
		resp := ViolationCaseWithProductResponse{
			ViolationCaseResponse: ToViolationCaseResponse(&cases[i]),
		}
		if item, ok := itemsByID[cases[i].OrderItemID]; ok {
			resp.Product = &ProductSummary{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				DepositPerUnit: item.DepositPerUnit,
				Quantity:       item.Quantity,
			}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *ViolationService) publishEvents(ctx context.Context, vc *dispute.ViolationCase) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range vc.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	vc.ClearDomainEvents()
}

// toRevision maps the request DTO onto the domain revision
func toRevision(req ReviseViolationCaseRequest) dispute.CaseRevision {
	return dispute.CaseRevision{
		Description:        req.Description,
		DamagePercentage:   req.DamagePercentage,
		PenaltyPercentage:  req.PenaltyPercentage,
		PenaltyAmount:      req.PenaltyAmount,
		ResponseToCustomer: req.ResponseToCustomer,
	}
}

// fileTypeFromURL infers the evidence MIME type from the URL extension.
// Uploads happen before case creation, so only the URL is available here.
func fileTypeFromURL(url string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(url), ".png"):
		return "image/png"
	case strings.HasSuffix(strings.ToLower(url), ".webp"):
		return "image/webp"
	case strings.HasSuffix(strings.ToLower(url), ".mp4"):
		return "video/mp4"
	default:
		return "image/jpeg"
	}
}
