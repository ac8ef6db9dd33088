package rider_test

import (
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRider(t *testing.T) {
	t.Run("valid_rider", func(t *testing.T) {
		id := kernel.NewUUID()

		r, err := rider.NewRider(id, "Ade")

		require.NoError(t, err)
		require.NoError(t, r.Validate())
		assert.True(t, r.ID().IsEqual(id))
		assert.Equal(t, "Ade", r.Name())
		assert.False(t, r.IsOnline())
		assert.False(t, r.IsBusy())
		assert.Nil(t, r.Location())
		assert.Zero(t, r.Rating())
		assert.Zero(t, r.CompletedOrders())
	})

	t.Run("empty_name", func(t *testing.T) {
		_, err := rider.NewRider(kernel.NewUUID(), "")
		require.ErrorIs(t, err, rider.ErrNameIsRequired)
	})

	t.Run("invalid_id", func(t *testing.T) {
		_, err := rider.NewRider(kernel.UUID{}, "Ade")
		require.Error(t, err)
	})
}

func TestRider_Validate(t *testing.T) {
	var zero rider.Rider
	require.Error(t, zero.Validate())

	var nilRider *rider.Rider
	require.Error(t, nilRider.Validate())
}

func TestRider_IsAvailableForDispatch(t *testing.T) {
	loc, err := kernel.NewGeoPoint(6.5244, 3.3792)
	require.NoError(t, err)

	t.Run("online_free_and_located", func(t *testing.T) {
		r, _ := rider.NewRider(kernel.NewUUID(), "Ade")
		r.GoOnline()
		require.NoError(t, r.MoveTo(loc))

		assert.True(t, r.IsAvailableForDispatch())
	})

	t.Run("offline_rider_is_unavailable", func(t *testing.T) {
		r, _ := rider.NewRider(kernel.NewUUID(), "Ade")
		require.NoError(t, r.MoveTo(loc))

		assert.False(t, r.IsAvailableForDispatch())
	})

	t.Run("busy_rider_is_unavailable", func(t *testing.T) {
		r, _ := rider.NewRider(kernel.NewUUID(), "Ade")
		r.GoOnline()
		require.NoError(t, r.MoveTo(loc))
		r.SetBusy(true)

		assert.False(t, r.IsAvailableForDispatch())
	})

	t.Run("rider_without_location_is_unavailable", func(t *testing.T) {
		r, _ := rider.NewRider(kernel.NewUUID(), "Ade")
		r.GoOnline()

		assert.False(t, r.IsAvailableForDispatch())
	})
}

func TestRider_MoveTo(t *testing.T) {
	r, _ := rider.NewRider(kernel.NewUUID(), "Ade")

	loc, err := kernel.NewGeoPoint(6.4541, 3.3947)
	require.NoError(t, err)
	require.NoError(t, r.MoveTo(loc))

	require.NotNil(t, r.Location())
	equal, err := r.Location().IsEqual(loc)
	require.NoError(t, err)
	assert.True(t, equal)

	require.Error(t, r.MoveTo(kernel.GeoPoint{}))
}

func TestRider_RecordCompletedDelivery(t *testing.T) {
	r, _ := rider.NewRider(kernel.NewUUID(), "Ade")

	r.RecordCompletedDelivery()
	r.RecordCompletedDelivery()

	assert.Equal(t, 2, r.CompletedOrders())
}

func TestRestoreRider(t *testing.T) {
	t.Run("restores_full_state", func(t *testing.T) {
		id := kernel.NewUUID()
		loc, err := kernel.NewGeoPoint(6.5244, 3.3792)
		require.NoError(t, err)

		r, err := rider.RestoreRider(id, "Chidi", true, true, &loc, 4.7, 312)

		require.NoError(t, err)
		assert.True(t, r.IsOnline())
		assert.True(t, r.IsBusy())
		assert.InDelta(t, 4.7, r.Rating(), 1e-9)
		assert.Equal(t, 312, r.CompletedOrders())
		require.NotNil(t, r.Location())
	})

	t.Run("restores_without_location", func(t *testing.T) {
		r, err := rider.RestoreRider(kernel.NewUUID(), "Chidi", true, false, nil, 4.0, 10)

		require.NoError(t, err)
		assert.Nil(t, r.Location())
		assert.False(t, r.IsAvailableForDispatch())
	})

	t.Run("rejects_out_of_range_rating", func(t *testing.T) {
		_, err := rider.RestoreRider(kernel.NewUUID(), "Chidi", true, false, nil, 5.5, 10)
		require.Error(t, err)
	})

	t.Run("rejects_negative_completed_orders", func(t *testing.T) {
		_, err := rider.RestoreRider(kernel.NewUUID(), "Chidi", true, false, nil, 4.0, -1)
		require.Error(t, err)
	})
}
