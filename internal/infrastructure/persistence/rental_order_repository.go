package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
)

// GormOrderRepository implements rental.OrderRepository using GORM. Only the
// status segment owned by the dispute engine is ever written back.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID, including items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.RentalOrder, error) {
	var order rental.RentalOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindIDsByStatus returns the IDs of all orders in the given status
func (r *GormOrderRepository) FindIDsByStatus(ctx context.Context, status rental.OrderStatus) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&rental.RentalOrder{}).
		Where("status = ?", status).
		Order("updated_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveWithLock updates the order's status with a version check. The version
// always advances, even when the status value is unchanged, so concurrent
// writers on the same order observe each other.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *rental.RentalOrder) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Take, not Scan: a missing order must surface as NOT_FOUND, not as
		// a version conflict
		var current struct{ Version int }
		if err := tx.Model(&rental.RentalOrder{}).
			Where("id = ?", order.ID).
			Select("version").
			Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if current.Version != order.Version {
			return shared.ErrConcurrencyConflict
		}

		order.Version++
		order.UpdatedAt = time.Now()

		result := tx.Model(&rental.RentalOrder{}).
			Where("id = ? AND version = ?", order.ID, current.Version).
			Updates(map[string]any{
				"status":     order.Status,
				"updated_at": order.UpdatedAt,
				"version":    order.Version,
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

// Ensure GormOrderRepository implements the interface
var _ rental.OrderRepository = (*GormOrderRepository)(nil)
