// Package riderrepo provides data transfer objects and mapping functions for rider persistence.
// This package implements the repository pattern for the rider domain aggregate, handling
// the conversion between domain entities and database representations.
package riderrepo

import (
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"

	"github.com/google/uuid"
)

// RiderDTO represents the database structure for persisting rider aggregates.
// The last-known location is nullable: a rider who never reported a
// position has NULL coordinates and is never offered a job.
type RiderDTO struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Online          bool      `gorm:"index"`
	Busy            bool
	Latitude        *float64 `gorm:"type:double precision"`
	Longitude       *float64 `gorm:"type:double precision"`
	Rating          float64
	CompletedOrders int
}

// TableName specifies the database table name for rider entities.
// Overrides GORM's default naming convention to use "riders".
func (RiderDTO) TableName() string {
	return "riders"
}

// fromDomain converts a rider domain aggregate to its database representation.
func fromDomain(aggregate *rider.Rider) RiderDTO {
	var latitude, longitude *float64
	if loc := aggregate.Location(); loc != nil {
		lat := loc.Latitude()
		lon := loc.Longitude()
		latitude = &lat
		longitude = &lon
	}

	return RiderDTO{
		ID:              aggregate.ID().Bytes(),
		Name:            aggregate.Name(),
		Online:          aggregate.IsOnline(),
		Busy:            aggregate.IsBusy(),
		Latitude:        latitude,
		Longitude:       longitude,
		Rating:          aggregate.Rating(),
		CompletedOrders: aggregate.CompletedOrders(),
	}
}

// toDomain converts a database DTO to a rider domain aggregate using RestoreRider.
func toDomain(dto RiderDTO) (*rider.Rider, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var location *kernel.GeoPoint
	if dto.Latitude != nil && dto.Longitude != nil {
		point, pointErr := kernel.NewGeoPoint(*dto.Latitude, *dto.Longitude)
		if pointErr != nil {
			return nil, pointErr
		}
		location = &point
	}

	return rider.RestoreRider(
		id, dto.Name, dto.Online, dto.Busy, location, dto.Rating, dto.CompletedOrders)
}
