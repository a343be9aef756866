package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
)

// NegotiationService handles the back-and-forth between customer and
// provider on an open case: accepting, rejecting and escalating.
type NegotiationService struct {
	caseRepo       dispute.ViolationCaseRepository
	orderRepo      rental.OrderRepository
	tx             shared.TransactionManager
	eventPublisher shared.EventPublisher
}

// NewNegotiationService creates a new NegotiationService
func NewNegotiationService(
	caseRepo dispute.ViolationCaseRepository,
	orderRepo rental.OrderRepository,
	tx shared.TransactionManager,
) *NegotiationService {
	return &NegotiationService{
		caseRepo:  caseRepo,
		orderRepo: orderRepo,
		tx:        tx,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *NegotiationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CustomerRespond records the customer's accept or reject on a pending case,
// optionally attaching evidence in the same operation. Acceptance is terminal
// and a terminal case refuses new evidence, so this is the customer's only
// chance to document an accepted claim; the published event triggers order
// reconciliation.
func (s *NegotiationService) CustomerRespond(ctx context.Context, customerID, caseID uuid.UUID, req CustomerResponseRequest) (*ViolationCaseResponse, error) {
	vc, err := s.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, vc.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsRentedBy(customerID) {
		return nil, shared.ErrForbidden
	}

	// Evidence goes on before the transition while the case still takes it
	newEvidence := make([]*dispute.ViolationEvidence, 0, len(req.EvidenceURLs))
	for _, url := range req.EvidenceURLs {
		ev, err := vc.AddEvidence(url, dispute.PartyCustomer, fileTypeFromURL(url))
		if err != nil {
			return nil, err
		}
		newEvidence = append(newEvidence, ev)
	}

	if req.Accepted {
		err = vc.AcceptByCustomer(req.Notes)
	} else {
		err = vc.RejectByCustomer(req.Notes)
	}
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.caseRepo.SaveWithLock(ctx, vc); err != nil {
			return err
		}
		for _, ev := range newEvidence {
			if err := s.caseRepo.AddEvidence(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, vc)

	response := ToViolationCaseResponse(vc)
	return &response, nil
}

// Escalate moves a rejected case to admin arbitration on behalf of either
// party. The caller must be the case's provider or the order's customer.
func (s *NegotiationService) Escalate(ctx context.Context, userID uuid.UUID, party dispute.Party, caseID uuid.UUID, req EscalateCaseRequest) (*ViolationCaseResponse, error) {
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
		return nil, shared.NewDomainError("VALIDATION", "Escalating party must be provider or customer")
	}

	if err := vc.Escalate(party, req.Reason); err != nil {
		return nil, err
	}
	if err := s.caseRepo.SaveWithLock(ctx, vc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, vc)

	response := ToViolationCaseResponse(vc)
	return &response, nil
}

func (s *NegotiationService) publishEvents(ctx context.Context, vc *dispute.ViolationCase) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range vc.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	vc.ClearDomainEvents()
}
