package order_test

import (
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrderArgs(t *testing.T) (kernel.UUID, kernel.UUID, kernel.UUID, kernel.GeoPoint, kernel.GeoPoint) {
	t.Helper()
	pickup, err := kernel.NewGeoPoint(6.5244, 3.3792)
	require.NoError(t, err)
	dropoff, err := kernel.NewGeoPoint(6.4541, 3.3947)
	require.NoError(t, err)
	return kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), pickup, dropoff
}

func newReadyOrder(t *testing.T) *order.Order {
	t.Helper()
	id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)
	o, err := order.NewOrder(id, vendorID, customerID, pickup, dropoff,
		[]order.Item{{Name: "Jollof rice", Quantity: 2, Price: 1500}}, 500, 3500)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("valid_order", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		o, err := order.NewOrder(id, vendorID, customerID, pickup, dropoff,
			[]order.Item{{Name: "Suya", Quantity: 1, Price: 2000}}, 700, 2700)

		require.NoError(t, err)
		require.NoError(t, o.Validate())
		assert.Equal(t, order.ReadyForPickup, o.Status())
		assert.Nil(t, o.Rider())
		assert.True(t, o.ID().IsEqual(id))
		assert.True(t, o.VendorID().IsEqual(vendorID))
		assert.True(t, o.CustomerID().IsEqual(customerID))
		assert.InDelta(t, 700, o.DeliveryFee(), 1e-9)
		assert.InDelta(t, 2700, o.Total(), 1e-9)
		assert.WithinDuration(t, time.Now().UTC(), o.CreatedAt(), time.Minute)
	})

	t.Run("invalid_id", func(t *testing.T) {
		_, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		_, err := order.NewOrder(kernel.UUID{}, vendorID, customerID, pickup, dropoff, nil, 0, 0)

		require.Error(t, err)
	})

	t.Run("invalid_pickup", func(t *testing.T) {
		id, vendorID, customerID, _, dropoff := validOrderArgs(t)

		_, err := order.NewOrder(id, vendorID, customerID, kernel.GeoPoint{}, dropoff, nil, 0, 0)

		require.Error(t, err)
	})

	t.Run("negative_fee", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		_, err := order.NewOrder(id, vendorID, customerID, pickup, dropoff, nil, -1, 100)

		require.Error(t, err)
	})

	t.Run("invalid_item", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		_, err := order.NewOrder(id, vendorID, customerID, pickup, dropoff,
			[]order.Item{{Name: "", Quantity: 1, Price: 100}}, 0, 100)

		require.Error(t, err)
	})
}

func TestOrder_Validate(t *testing.T) {
	t.Run("zero_value_is_invalid", func(t *testing.T) {
		var o order.Order
		require.Error(t, o.Validate())
	})

	t.Run("nil_is_invalid", func(t *testing.T) {
		var o *order.Order
		require.Error(t, o.Validate())
	})
}

func TestOrder_AssignRider(t *testing.T) {
	t.Run("assigns_from_ready", func(t *testing.T) {
		o := newReadyOrder(t)
		riderID := kernel.NewUUID()

		err := o.AssignRider(riderID)

		require.NoError(t, err)
		assert.Equal(t, order.RiderAssigned, o.Status())
		require.NotNil(t, o.Rider())
		assert.True(t, o.Rider().IsEqual(riderID))
	})

	t.Run("rejects_invalid_rider", func(t *testing.T) {
		o := newReadyOrder(t)

		err := o.AssignRider(kernel.UUID{})

		require.Error(t, err)
		assert.Equal(t, order.ReadyForPickup, o.Status())
	})

	t.Run("rejects_double_assignment", func(t *testing.T) {
		o := newReadyOrder(t)
		require.NoError(t, o.AssignRider(kernel.NewUUID()))

		err := o.AssignRider(kernel.NewUUID())

		require.Error(t, err)
	})
}

func TestOrder_UnassignRider(t *testing.T) {
	o := newReadyOrder(t)
	require.NoError(t, o.AssignRider(kernel.NewUUID()))

	err := o.UnassignRider()

	require.NoError(t, err)
	assert.Equal(t, order.ReadyForPickup, o.Status())
	assert.Nil(t, o.Rider())
}

func TestOrder_FullLifecycle(t *testing.T) {
	o := newReadyOrder(t)
	riderID := kernel.NewUUID()

	require.NoError(t, o.AssignRider(riderID))
	require.NoError(t, o.ConfirmPickup())
	require.NoError(t, o.CompleteDelivery())

	assert.Equal(t, order.Delivered, o.Status())
	assert.True(t, o.Rider().IsEqual(riderID))

	// No transitions out of Delivered.
	require.Error(t, o.Cancel())
}

func TestOrder_Cancel(t *testing.T) {
	o := newReadyOrder(t)

	require.NoError(t, o.Cancel())
	assert.Equal(t, order.Cancelled, o.Status())
}

func TestRestoreOrder(t *testing.T) {
	t.Run("restores_assigned_order", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)
		riderID := kernel.NewUUID()
		createdAt := time.Now().UTC().Add(-time.Minute)

		o, err := order.RestoreOrder(id, vendorID, customerID, pickup, dropoff,
			nil, 500, 2500, order.RiderAssigned, &riderID, createdAt)

		require.NoError(t, err)
		assert.Equal(t, order.RiderAssigned, o.Status())
		assert.True(t, o.Rider().IsEqual(riderID))
		assert.Equal(t, createdAt, o.CreatedAt())
	})

	t.Run("rejects_assigned_without_rider", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		_, err := order.RestoreOrder(id, vendorID, customerID, pickup, dropoff,
			nil, 500, 2500, order.RiderAssigned, nil, time.Now().UTC())

		require.Error(t, err)
	})

	t.Run("rejects_ready_with_rider", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)
		riderID := kernel.NewUUID()

		_, err := order.RestoreOrder(id, vendorID, customerID, pickup, dropoff,
			nil, 500, 2500, order.ReadyForPickup, &riderID, time.Now().UTC())

		require.Error(t, err)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		id, vendorID, customerID, pickup, dropoff := validOrderArgs(t)

		_, err := order.RestoreOrder(id, vendorID, customerID, pickup, dropoff,
			nil, 500, 2500, order.Unknown, nil, time.Now().UTC())

		require.Error(t, err)
	})
}

func TestItem_Validate(t *testing.T) {
	require.NoError(t, order.Item{Name: "Moi moi", Quantity: 1, Price: 0}.Validate())
	require.Error(t, order.Item{Name: "", Quantity: 1, Price: 10}.Validate())
	require.Error(t, order.Item{Name: "Suya", Quantity: 0, Price: 10}.Validate())
	require.Error(t, order.Item{Name: "Suya", Quantity: 1, Price: -10}.Validate())
}
