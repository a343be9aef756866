package refund

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
	"github.com/rentio/backend/internal/infrastructure/telemetry"
)

// CalculatorService computes the deposit refund for an order whose dispute
// segment has closed. It is invoked internally when an order reaches
// RETURNED, never from an API surface.
type CalculatorService struct {
	refundRepo     refund.DepositRefundRepository
	caseRepo       dispute.ViolationCaseRepository
	orderRepo      rental.OrderRepository
	eventPublisher shared.EventPublisher
}

// NewCalculatorService creates a new CalculatorService
func NewCalculatorService(
	refundRepo refund.DepositRefundRepository,
	caseRepo dispute.ViolationCaseRepository,
	orderRepo rental.OrderRepository,
) *CalculatorService {
	return &CalculatorService{
		refundRepo: refundRepo,
		caseRepo:   caseRepo,
		orderRepo:  orderRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *CalculatorService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Calculate creates the PENDING refund for an order. The refund amount is
// the original deposit minus the sum of finalized case penalties, floored
// at zero. Fines and compensations from admin rulings never enter this sum.
//
// Idempotent: if a refund already exists for the order it is returned
// unchanged, so event delivery and the reconciliation batch may both fire.
func (s *CalculatorService) Calculate(ctx context.Context, orderID uuid.UUID) (*DepositRefundResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deposit_refund", "calculate")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, orderID.String())

	if existing, err := s.refundRepo.FindByOrder(ctx, orderID); err == nil {
		response := ToDepositRefundResponse(existing)
		return &response, nil
	} else if err != shared.ErrNotFound {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != rental.OrderStatusReturned {
		return nil, shared.NewDomainError("INVALID_STATE", "Refund can only be calculated for a fully returned order")
	}

	totalPenalty, err := s.sumFinalPenalties(ctx, orderID)
	if err != nil {
		return nil, err
	}

	dr, err := refund.NewDepositRefund(order.ID, order.CustomerID, order.DepositAmount, totalPenalty)
	if err != nil {
		return nil, err
	}

	if err := s.refundRepo.Create(ctx, dr); err != nil {
		// A concurrent calculation won the unique-constraint race; the
		// stored refund is authoritative
		if err == shared.ErrDuplicateRefund {
			existing, findErr := s.refundRepo.FindByOrder(ctx, orderID)
			if findErr != nil {
				return nil, findErr
			}
			response := ToDepositRefundResponse(existing)
			return &response, nil
		}
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRefundID, dr.ID.String(),
		telemetry.SpanAttrAmount, dr.RefundAmount.String(),
	)

	if s.eventPublisher != nil {
		for _, event := range dr.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		dr.ClearDomainEvents()
	}

	response := ToDepositRefundResponse(dr)
	return &response, nil
}

// sumFinalPenalties adds up the penalty of every terminal case on the order.
// All cases must be terminal by the time the order reaches RETURNED; a
// non-terminal case here means reconciliation ran against stale state.
func (s *CalculatorService) sumFinalPenalties(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	cases, err := s.caseRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i := range cases {
		if !cases[i].IsTerminal() {
			return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Order has a violation case that is not yet finalized")
		}
		total = total.Add(cases[i].PenaltyAmount)
	}
	return total, nil
}
