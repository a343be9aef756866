package rental

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the slice of order persistence this engine needs.
// The full order lifecycle is owned by an external collaborator; this
// engine reads orders and writes the status field only.
type OrderRepository interface {
	// FindByID finds an order by ID, including its items
	FindByID(ctx context.Context, id uuid.UUID) (*RentalOrder, error)
	// FindIDsByStatus returns the IDs of all orders in the given status
	FindIDsByStatus(ctx context.Context, status OrderStatus) ([]uuid.UUID, error)
	// SaveWithLock persists the order with an optimistic version check.
	// Every dispute-engine write goes through this so that concurrent case
	// creation and order reconciliation serialize on the order version.
	SaveWithLock(ctx context.Context, order *RentalOrder) error
}
