package kernel_test

import (
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeoPoint(t *testing.T) {
	t.Run("valid_coordinates", func(t *testing.T) {
		p, err := kernel.NewGeoPoint(6.5244, 3.3792)

		require.NoError(t, err)
		require.NoError(t, p.Validate())
		assert.InDelta(t, 6.5244, p.Latitude(), 1e-9)
		assert.InDelta(t, 3.3792, p.Longitude(), 1e-9)
	})

	t.Run("boundary_coordinates", func(t *testing.T) {
		testCases := []struct {
			name     string
			lat, lon float64
		}{
			{"north_pole", 90, 0},
			{"south_pole", -90, 0},
			{"date_line_east", 0, 180},
			{"date_line_west", 0, -180},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				p, err := kernel.NewGeoPoint(tc.lat, tc.lon)
				require.NoError(t, err)
				require.NoError(t, p.Validate())
			})
		}
	})

	t.Run("out_of_range_latitude", func(t *testing.T) {
		_, err := kernel.NewGeoPoint(91, 0)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("out_of_range_longitude", func(t *testing.T) {
		_, err := kernel.NewGeoPoint(0, -181)
		require.Error(t, err)
	})

	t.Run("both_out_of_range_joins_errors", func(t *testing.T) {
		_, err := kernel.NewGeoPoint(-95, 200)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "latitude")
		assert.Contains(t, err.Error(), "longitude")
	})
}

func TestGeoPoint_Validate(t *testing.T) {
	t.Run("zero_value_is_invalid", func(t *testing.T) {
		var p kernel.GeoPoint

		err := p.Validate()

		require.Error(t, err)
		assert.Equal(t, kernel.ErrGeoPointIsNotConstructed, err)
	})
}

func TestGeoPoint_IsEqual(t *testing.T) {
	p1, _ := kernel.NewGeoPoint(6.5244, 3.3792)
	p2, _ := kernel.NewGeoPoint(6.5244, 3.3792)
	p3, _ := kernel.NewGeoPoint(6.4541, 3.3947)

	equal, err := p1.IsEqual(p2)
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = p1.IsEqual(p3)
	require.NoError(t, err)
	assert.False(t, equal)

	var zero kernel.GeoPoint
	_, err = p1.IsEqual(zero)
	require.Error(t, err)
}

func TestGeoPoint_DistanceTo(t *testing.T) {
	t.Run("same_point_is_zero", func(t *testing.T) {
		p, _ := kernel.NewGeoPoint(6.5244, 3.3792)

		d, err := p.DistanceTo(p)

		require.NoError(t, err)
		assert.InDelta(t, 0, d, 0.001)
	})

	t.Run("known_distance_lagos_island_to_ikeja", func(t *testing.T) {
		// Lagos Island to Ikeja is roughly 17.1 km as the crow flies.
		island, _ := kernel.NewGeoPoint(6.4541, 3.3947)
		ikeja, _ := kernel.NewGeoPoint(6.6018, 3.3515)

		d, err := island.DistanceTo(ikeja)

		require.NoError(t, err)
		assert.InDelta(t, 17103, d, 200)
	})

	t.Run("one_degree_of_latitude", func(t *testing.T) {
		// One degree of latitude is ~111.2 km everywhere on the globe.
		a, _ := kernel.NewGeoPoint(0, 0)
		b, _ := kernel.NewGeoPoint(1, 0)

		d, err := a.DistanceTo(b)

		require.NoError(t, err)
		assert.InDelta(t, 111195, d, 200)
	})

	t.Run("is_symmetric", func(t *testing.T) {
		a, _ := kernel.NewGeoPoint(6.5244, 3.3792)
		b, _ := kernel.NewGeoPoint(6.4541, 3.3947)

		d1, err := a.DistanceTo(b)
		require.NoError(t, err)
		d2, err := b.DistanceTo(a)
		require.NoError(t, err)

		assert.InDelta(t, d1, d2, 0.001)
	})

	t.Run("unconstructed_point_fails", func(t *testing.T) {
		a, _ := kernel.NewGeoPoint(6.5244, 3.3792)
		var zero kernel.GeoPoint

		_, err := a.DistanceTo(zero)

		require.Error(t, err)
	})
}
