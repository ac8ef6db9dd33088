package queries

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetActiveOrdersQueryHandler retrieves in-flight orders from the database.
// Uses direct SQL queries for optimal read performance in the CQRS pattern.
type GetActiveOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetActiveOrdersQueryHandler creates a handler for active order queries.
func NewGetActiveOrdersQueryHandler(db *gorm.DB) GetActiveOrdersQueryHandler {
	return GetActiveOrdersQueryHandler{db: db}
}

// Handle executes the query to retrieve all active orders, oldest first.
func (h GetActiveOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetActiveOrdersQuery,
) ([]GetActiveOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders := make([]GetActiveOrdersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			status,
			rider_id,
			pickup_latitude,
			pickup_longitude,
			dropoff_latitude,
			dropoff_longitude
		FROM orders
		WHERE status IN ?
		ORDER BY created_at
	`, []int{
		int(order.ReadyForPickup),
		int(order.RiderAssigned),
		int(order.PickedUp),
	}).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var response GetActiveOrdersQueryResponse
		var id uuid.UUID
		var riderID *uuid.UUID
		var status int
		var pickupLat, pickupLon, dropoffLat, dropoffLon float64

		err = rows.Scan(
			&id,
			&status,
			&riderID,
			&pickupLat,
			&pickupLon,
			&dropoffLat,
			&dropoffLon,
		)
		if err != nil {
			return nil, err
		}

		orderID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		response.ID = orderID
		response.Status = order.Status(status)

		if riderID != nil {
			rID, riderErr := kernel.UUIDFromBytes((*riderID)[:])
			if riderErr != nil {
				return nil, riderErr
			}
			response.RiderID = &rID
		}

		pickup, locErr := kernel.NewGeoPoint(pickupLat, pickupLon)
		if locErr != nil {
			return nil, locErr
		}
		response.Pickup = pickup

		dropoff, locErr := kernel.NewGeoPoint(dropoffLat, dropoffLon)
		if locErr != nil {
			return nil, locErr
		}
		response.Dropoff = dropoff

		orders = append(orders, response)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
