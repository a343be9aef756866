package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/shared"
)

// GormViolationCaseRepository implements ViolationCaseRepository using GORM
type GormViolationCaseRepository struct {
	db *gorm.DB
}

// NewGormViolationCaseRepository creates a new GormViolationCaseRepository
func NewGormViolationCaseRepository(db *gorm.DB) *GormViolationCaseRepository {
	return &GormViolationCaseRepository{db: db}
}

var terminalCaseStatuses = []dispute.CaseStatus{
	dispute.CaseStatusCustomerAccepted,
	dispute.CaseStatusResolved,
}

// FindByID finds a violation case by its ID, including evidence
func (r *GormViolationCaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispute.ViolationCase, error) {
	var vc dispute.ViolationCase
	if err := r.db.WithContext(ctx).
		Preload("Evidence").
		First(&vc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &vc, nil
}

// FindByOrder finds all cases for an order, newest first
func (r *GormViolationCaseRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]dispute.ViolationCase, error) {
	var cases []dispute.ViolationCase
	if err := r.db.WithContext(ctx).
		Preload("Evidence").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

// FindOpenByOrderItem finds the non-terminal case for an order item
func (r *GormViolationCaseRepository) FindOpenByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*dispute.ViolationCase, error) {
	var vc dispute.ViolationCase
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ? AND status NOT IN ?", orderItemID, terminalCaseStatuses).
		First(&vc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &vc, nil
}

// FindByStatus finds cases by status with filtering
func (r *GormViolationCaseRepository) FindByStatus(ctx context.Context, status dispute.CaseStatus, filter shared.Filter) ([]dispute.ViolationCase, error) {
	var cases []dispute.ViolationCase
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&dispute.ViolationCase{}).Where("status = ?", status),
		filter,
	)
	if err := query.Preload("Evidence").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

// CountByStatus counts cases in the given status
func (r *GormViolationCaseRepository) CountByStatus(ctx context.Context, status dispute.CaseStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&dispute.ViolationCase{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a case together with its evidence. Evidence is
// append-only, so existing rows are never deleted here.
func (r *GormViolationCaseRepository) Save(ctx context.Context, vc *dispute.ViolationCase) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Evidence").Save(vc).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrDuplicateClaim
			}
			return err
		}
		for i := range vc.Evidence {
			vc.Evidence[i].ViolationID = vc.ID
			if err := tx.Save(&vc.Evidence[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormViolationCaseRepository) SaveWithLock(ctx context.Context, vc *dispute.ViolationCase) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Take, not Scan: a deleted case must surface as NOT_FOUND, not as
		// a version conflict
		var current struct{ Version int }
		if err := tx.Model(&dispute.ViolationCase{}).
			Where("id = ?", vc.ID).
			Select("version").
			Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if current.Version != vc.Version {
			return shared.ErrConcurrencyConflict
		}

		vc.Version++
		vc.UpdatedAt = time.Now()

		result := tx.Model(&dispute.ViolationCase{}).
			Where("id = ? AND version = ?", vc.ID, current.Version).
			Updates(map[string]any{
				"violation_type":                vc.ViolationType,
				"description":                   vc.Description,
				"damage_percentage":             vc.DamagePercentage,
				"penalty_percentage":            vc.PenaltyPercentage,
				"penalty_amount":                vc.PenaltyAmount,
				"status":                        vc.Status,
				"customer_notes":                vc.CustomerNotes,
				"customer_response_at":          vc.CustomerResponseAt,
				"customer_escalation_reason":    vc.CustomerEscalationReason,
				"provider_response_to_customer": vc.ProviderResponseToCustomer,
				"provider_response_at":          vc.ProviderResponseAt,
				"provider_escalation_reason":    vc.ProviderEscalationReason,
				"resolved_at":                   vc.ResolvedAt,
				"updated_at":                    vc.UpdatedAt,
				"version":                       vc.Version,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// AddEvidence appends an evidence record to an existing case
func (r *GormViolationCaseRepository) AddEvidence(ctx context.Context, ev *dispute.ViolationEvidence) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(ev).Error
}

// applyFilter applies ordering and pagination to the query
func (r *GormViolationCaseRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, ViolationCaseSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

// Ensure GormViolationCaseRepository implements the interface
var _ dispute.ViolationCaseRepository = (*GormViolationCaseRepository)(nil)
