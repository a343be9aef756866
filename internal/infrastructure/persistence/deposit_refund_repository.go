package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/shared"
)

// GormDepositRefundRepository implements DepositRefundRepository using GORM
type GormDepositRefundRepository struct {
	db *gorm.DB
}

// NewGormDepositRefundRepository creates a new GormDepositRefundRepository
func NewGormDepositRefundRepository(db *gorm.DB) *GormDepositRefundRepository {
	return &GormDepositRefundRepository{db: db}
}

// FindByID finds a refund by its ID
func (r *GormDepositRefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*refund.DepositRefund, error) {
	var dr refund.DepositRefund
	if err := r.db.WithContext(ctx).First(&dr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dr, nil
}

// FindByOrder finds the refund attached to an order
func (r *GormDepositRefundRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*refund.DepositRefund, error) {
	var dr refund.DepositRefund
	if err := r.db.WithContext(ctx).First(&dr, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dr, nil
}

// FindAll finds refunds with filtering for the admin surface
func (r *GormDepositRefundRepository) FindAll(ctx context.Context, filter shared.Filter) ([]refund.DepositRefund, error) {
	var refunds []refund.DepositRefund
	query := r.applyFilter(
		r.applyFieldFilters(r.db.WithContext(ctx).Model(&refund.DepositRefund{}), filter),
		filter,
	)
	if err := query.Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// FindByCustomer finds a customer's refund history
func (r *GormDepositRefundRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]refund.DepositRefund, error) {
	var refunds []refund.DepositRefund
	query := r.applyFilter(
		r.applyFieldFilters(
			r.db.WithContext(ctx).Model(&refund.DepositRefund{}).Where("customer_id = ?", customerID),
			filter,
		),
		filter,
	)
	if err := query.Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// Count counts refunds matching the filter
func (r *GormDepositRefundRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFieldFilters(r.db.WithContext(ctx).Model(&refund.DepositRefund{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByCustomer counts a customer's refunds matching the filter
func (r *GormDepositRefundRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFieldFilters(
		r.db.WithContext(ctx).Model(&refund.DepositRefund{}).Where("customer_id = ?", customerID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts refunds in the given status
func (r *GormDepositRefundRepository) CountByStatus(ctx context.Context, status refund.RefundStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&refund.DepositRefund{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new refund. The unique index on order_id guards the
// one-refund-per-order invariant under concurrent calculation.
func (r *GormDepositRefundRepository) Create(ctx context.Context, dr *refund.DepositRefund) error {
	if err := dbFrom(ctx, r.db).WithContext(ctx).Create(dr).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateRefund
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormDepositRefundRepository) SaveWithLock(ctx context.Context, dr *refund.DepositRefund) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Take, not Scan: a missing refund must surface as NOT_FOUND, not as
		// a version conflict
		var current struct{ Version int }
		if err := tx.Model(&refund.DepositRefund{}).
			Where("id = ?", dr.ID).
			Select("version").
			Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if current.Version != dr.Version {
			return shared.ErrConcurrencyConflict
		}

		dr.Version++
		dr.UpdatedAt = time.Now()

		result := tx.Model(&refund.DepositRefund{}).
			Where("id = ? AND version = ?", dr.ID, current.Version).
			Updates(map[string]any{
				"status":                  dr.Status,
				"refund_bank_account_id":  dr.RefundBankAccountID,
				"external_transaction_id": dr.ExternalTransactionID,
				"notes":                   dr.Notes,
				"processed_by":            dr.ProcessedBy,
				"processed_at":            dr.ProcessedAt,
				"updated_at":              dr.UpdatedAt,
				"version":                 dr.Version,
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

// applyFieldFilters applies status and date range filters
func (r *GormDepositRefundRepository) applyFieldFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if startDate, ok := filter.Filters["start_date"]; ok {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate, ok := filter.Filters["end_date"]; ok {
		query = query.Where("created_at <= ?", endDate)
	}
	return query
}

// applyFilter applies ordering and pagination to the query
func (r *GormDepositRefundRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, DepositRefundSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

// Ensure GormDepositRefundRepository implements the interface
var _ refund.DepositRefundRepository = (*GormDepositRefundRepository)(nil)
