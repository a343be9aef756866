package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/shared"
	"github.com/rentio/backend/internal/infrastructure/telemetry"
)

// ResolutionService handles admin arbitration: the queue of escalated cases
// and the binding ruling that closes one.
type ResolutionService struct {
	caseRepo       dispute.ViolationCaseRepository
	resolutionRepo dispute.IssueResolutionRepository
	tx             shared.TransactionManager
	eventPublisher shared.EventPublisher
}

// NewResolutionService creates a new ResolutionService
func NewResolutionService(
	caseRepo dispute.ViolationCaseRepository,
	resolutionRepo dispute.IssueResolutionRepository,
	tx shared.TransactionManager,
) *ResolutionService {
	return &ResolutionService{
		caseRepo:       caseRepo,
		resolutionRepo: resolutionRepo,
		tx:             tx,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ResolutionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetPendingDisputes lists escalated cases awaiting arbitration, newest
// escalation first
func (s *ResolutionService) GetPendingDisputes(ctx context.Context, filter PendingDisputeListFilter) ([]ViolationCaseResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "updated_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}

	cases, err := s.caseRepo.FindByStatus(ctx, dispute.CaseStatusEscalated, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.caseRepo.CountByStatus(ctx, dispute.CaseStatusEscalated)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ViolationCaseResponse, 0, len(cases))
	for i := range cases {
		responses = append(responses, ToViolationCaseResponse(&cases[i]))
	}
	return responses, total, nil
}

// CountPending returns the number of escalated cases awaiting arbitration
func (s *ResolutionService) CountPending(ctx context.Context) (int64, error) {
	return s.caseRepo.CountByStatus(ctx, dispute.CaseStatusEscalated)
}

// GetResolution retrieves the ruling recorded for a case
func (s *ResolutionService) GetResolution(ctx context.Context, violationID uuid.UUID) (*IssueResolutionResponse, error) {
	res, err := s.resolutionRepo.FindByViolation(ctx, violationID)
	if err != nil {
		return nil, err
	}
	response := ToIssueResolutionResponse(res)
	return &response, nil
}

// CreateResolution records the admin's binding ruling on an escalated case
// and moves the case to RESOLVED. The fine and compensation are a liability
// split between the parties; the case's penalty amount is untouched and
// alone feeds the refund calculation.
func (s *ResolutionService) CreateResolution(ctx context.Context, adminID uuid.UUID, req CreateResolutionRequest) (*IssueResolutionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "resolution", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrViolationID, req.ViolationID.String(),
		"resolution_type", req.ResolutionType,
	)

	vc, err := s.caseRepo.FindByID(ctx, req.ViolationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !vc.IsEscalated() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only escalated cases can be resolved")
	}

	if _, err := s.resolutionRepo.FindByViolation(ctx, req.ViolationID); err == nil {
		return nil, shared.ErrAlreadyResolved
	} else if err != shared.ErrNotFound {
		return nil, err
	}

	res, err := dispute.NewIssueResolution(
		req.ViolationID,
		adminID,
		dispute.ResolutionType(req.ResolutionType),
		req.Reason,
		req.CustomerFineAmount,
		req.ProviderCompensationAmount,
	)
	if err != nil {
		return nil, err
	}

	if err := vc.Resolve(); err != nil {
		return nil, err
	}

	// One transaction: the ruling and the case transition land together or
	// not at all. The unique constraint on violation_id turns a racing
	// second ruling into ALREADY_RESOLVED.
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.resolutionRepo.Save(ctx, res); err != nil {
			return err
		}
		return s.caseRepo.SaveWithLock(ctx, vc)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.eventPublisher != nil {
		for _, event := range vc.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		vc.ClearDomainEvents()
	}

	response := ToIssueResolutionResponse(res)
	return &response, nil
}
