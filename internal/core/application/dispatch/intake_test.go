package dispatch_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntake(t *testing.T, e *engine) *dispatch.OrderIntake {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	intake, err := dispatch.NewOrderIntake(e.db, e.coord, log)
	require.NoError(t, err)
	return intake
}

func submitCommand(t *testing.T) dispatch.SubmitOrderCommand {
	t.Helper()
	pickup := lagosPoint(t)
	dropoff, err := kernel.NewGeoPoint(6.4281, 3.4219)
	require.NoError(t, err)

	return dispatch.SubmitOrderCommand{
		VendorID:   kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Dropoff:    dropoff,
		Items: []order.Item{
			{Name: "Suya platter", Quantity: 1, Price: 4000},
		},
		DeliveryFee: 700,
		Total:       4700,
	}
}

func TestOrderIntake_SubmitOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("persists_and_dispatches", func(t *testing.T) {
		e := newEngine(t, testPolicy())
		riderID := e.seedOnlineRider(t, "Chidi", 6.5250, 3.3800)
		intake := newIntake(t, e)

		orderID, err := intake.SubmitOrder(ctx, submitCommand(t))

		require.NoError(t, err)
		assert.Equal(t, order.ReadyForPickup, e.db.order(t, orderID).Status())
		assert.True(t, e.sink.riderGot(riderID, "job_offer"))
		_, err = e.store.Snapshot(orderID)
		require.NoError(t, err)
	})

	t.Run("rejects_invalid_command", func(t *testing.T) {
		e := newEngine(t, testPolicy())
		intake := newIntake(t, e)
		cmd := submitCommand(t)
		cmd.DeliveryFee = -1

		_, err := intake.SubmitOrder(ctx, cmd)

		require.Error(t, err)
		assert.Equal(t, 0, e.store.Len())
	})
}

func TestOrderIntake_CancelOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, testPolicy())
	e.seedOnlineRider(t, "Chidi", 6.5250, 3.3800)
	intake := newIntake(t, e)

	orderID, err := intake.SubmitOrder(ctx, submitCommand(t))
	require.NoError(t, err)

	require.NoError(t, intake.CancelOrder(ctx, orderID))

	assert.Equal(t, order.Cancelled, e.db.order(t, orderID).Status())
	assert.Equal(t, 0, e.store.Len())
}
