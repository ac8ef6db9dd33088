package ports

import (
	"context"
)

// UnitOfWorkFactory creates new UnitOfWork instances for each business
// operation. This ensures proper isolation between concurrent operations.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork represents a business transaction boundary.
// It provides transaction control over the order and rider repositories.
// Client code must explicitly manage the transaction lifecycle.
//
// The dispatch engine uses a unit of work wherever an order and a rider
// must change together, most importantly the assignment commit: the order
// gains a rider and the rider becomes busy in one transaction, so a crash
// can never leave one side assigned and the other free.
type UnitOfWork interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	// Returns error if no active transaction or commit fails.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction.
	// Returns error if no active transaction or rollback fails.
	Rollback(ctx context.Context) error

	// OrderRepository returns an OrderRepository bound to the current
	// transaction started by Begin().
	OrderRepository() OrderRepository

	// RiderRepository returns a RiderRepository bound to the current
	// transaction started by Begin().
	RiderRepository() RiderRepository
}
