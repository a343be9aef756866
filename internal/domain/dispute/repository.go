package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/shared"
)

// ViolationCaseRepository defines persistence operations for violation cases
type ViolationCaseRepository interface {
	// FindByID finds a case by ID, including its evidence
	FindByID(ctx context.Context, id uuid.UUID) (*ViolationCase, error)
	// FindByOrder finds all cases belonging to an order, newest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ViolationCase, error)
	// FindOpenByOrderItem finds the open (non-terminal) case for an order
	// item, or shared.ErrNotFound when none exists
	FindOpenByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*ViolationCase, error)
	// FindByStatus finds cases by status with filtering
	FindByStatus(ctx context.Context, status CaseStatus, filter shared.Filter) ([]ViolationCase, error)
	// CountByStatus counts cases in the given status
	CountByStatus(ctx context.Context, status CaseStatus) (int64, error)
	// Save creates or updates a case together with its evidence
	Save(ctx context.Context, vc *ViolationCase) error
	// SaveWithLock saves with an optimistic version check; returns
	// CONCURRENCY_CONFLICT when the stored version differs
	SaveWithLock(ctx context.Context, vc *ViolationCase) error
	// AddEvidence appends an evidence record to an existing case
	AddEvidence(ctx context.Context, ev *ViolationEvidence) error
}

// IssueResolutionRepository defines persistence operations for admin resolutions
type IssueResolutionRepository interface {
	// FindByID finds a resolution by ID
	FindByID(ctx context.Context, id uuid.UUID) (*IssueResolution, error)
	// FindByViolation finds the resolution for a case, or shared.ErrNotFound
	FindByViolation(ctx context.Context, violationID uuid.UUID) (*IssueResolution, error)
	// Save inserts a resolution. The unique constraint on violation_id is
	// the race guard: a duplicate insert fails with ALREADY_RESOLVED.
	Save(ctx context.Context, res *IssueResolution) error
}
