package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/shared"
)

// GormIssueResolutionRepository implements IssueResolutionRepository using GORM
type GormIssueResolutionRepository struct {
	db *gorm.DB
}

// NewGormIssueResolutionRepository creates a new GormIssueResolutionRepository
func NewGormIssueResolutionRepository(db *gorm.DB) *GormIssueResolutionRepository {
	return &GormIssueResolutionRepository{db: db}
}

// FindByID finds a resolution by its ID
func (r *GormIssueResolutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispute.IssueResolution, error) {
	var res dispute.IssueResolution
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// FindByViolation finds the resolution recorded for a violation case
func (r *GormIssueResolutionRepository) FindByViolation(ctx context.Context, violationID uuid.UUID) (*dispute.IssueResolution, error) {
	var res dispute.IssueResolution
	if err := r.db.WithContext(ctx).
		First(&res, "violation_id = ?", violationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// Save inserts a resolution. A second ruling on the same case trips the
// unique index on violation_id and maps to ALREADY_RESOLVED.
func (r *GormIssueResolutionRepository) Save(ctx context.Context, res *dispute.IssueResolution) error {
	if err := dbFrom(ctx, r.db).WithContext(ctx).Create(res).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyResolved
		}
		return err
	}
	return nil
}

// Ensure GormIssueResolutionRepository implements the interface
var _ dispute.IssueResolutionRepository = (*GormIssueResolutionRepository)(nil)
