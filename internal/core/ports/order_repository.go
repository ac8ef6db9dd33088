// Package ports defines the contracts between the dispatch core and
// infrastructure: repositories, the unit of work, and the outbound
// notification surface. Adapters implement these interfaces, enabling
// dependency inversion and testability.
package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a new order aggregate to storage.
	// The order must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order aggregate.
	// The order must exist in the repository and be valid.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns the complete order with its current status and rider assignment.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetAllDispatchable retrieves all orders the dispatch engine is
	// responsible for: orders waiting at the vendor (ReadyForPickup) and
	// orders with a committed rider assignment that has not yet reached
	// pickup (RiderAssigned). Used by restart recovery to rebuild
	// in-memory dispatch state.
	GetAllDispatchable(ctx context.Context) ([]*order.Order, error)
}
