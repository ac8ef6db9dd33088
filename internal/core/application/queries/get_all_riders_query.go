// Package queries contains read operations for retrieving system state.
// Implements the Query pattern for read operations in the CQRS architecture.
// Queries read the database directly and return flat read models; they
// never touch the in-memory dispatch state or the domain aggregates.
package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrGetAllRidersQueryIsNotConstructed = errors.New(
	"GetAllRidersQuery must be created via NewGetAllRidersQuery constructor",
)

// GetAllRidersQuery retrieves every registered rider with their presence
// flags, last known location, and track record. Used by the operator
// surface to inspect the fleet.
type GetAllRidersQuery struct {
	guard guard.ConstructorGuard
}

// NewGetAllRidersQuery creates a query to retrieve all riders.
func NewGetAllRidersQuery() GetAllRidersQuery {
	return GetAllRidersQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetAllRidersQuery) Validate() error {
	return q.guard.Validate(ErrGetAllRidersQueryIsNotConstructed)
}

// GetAllRidersQueryResponse is one rider in the fleet read model.
// Location is nil for riders who never reported a position.
type GetAllRidersQueryResponse struct {
	ID              kernel.UUID
	Name            string
	Online          bool
	Busy            bool
	Location        *kernel.GeoPoint
	Rating          float64
	CompletedOrders int
}
