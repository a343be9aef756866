package shared

import "context"

// TransactionManager runs a unit of work inside a single storage
// transaction. Repository calls made with the context passed to fn join
// that transaction, so either every write in fn lands or none do.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
