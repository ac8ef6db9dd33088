package dispatch

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// SubmitOrderCommand carries the marketplace fields of an order that
// just became ready for pickup.
type SubmitOrderCommand struct {
	VendorID    kernel.UUID
	CustomerID  kernel.UUID
	Pickup      kernel.GeoPoint
	Dropoff     kernel.GeoPoint
	Items       []order.Item
	DeliveryFee float64
	Total       float64
}

// OrderIntake is the application service for orders entering and leaving
// the dispatch engine: it persists new ready-for-pickup orders and hands
// them to the coordinator, and routes upstream cancellations through the
// coordinator's teardown.
type OrderIntake struct {
	uowFactory  ports.UnitOfWorkFactory
	coordinator *Coordinator
	log         *slog.Logger
}

// NewOrderIntake creates the intake service.
func NewOrderIntake(
	uowFactory ports.UnitOfWorkFactory,
	coordinator *Coordinator,
	log *slog.Logger,
) (*OrderIntake, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if coordinator == nil {
		return nil, errs.NewValueIsRequiredError("coordinator")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}

	return &OrderIntake{
		uowFactory:  uowFactory,
		coordinator: coordinator,
		log:         log.With("component", "order-intake"),
	}, nil
}

// SubmitOrder persists a new ready-for-pickup order and starts its
// dispatch cycle. Returns the new order's id.
func (s *OrderIntake) SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (kernel.UUID, error) {
	o, err := order.NewOrder(
		kernel.NewUUID(),
		cmd.VendorID,
		cmd.CustomerID,
		cmd.Pickup,
		cmd.Dropoff,
		cmd.Items,
		cmd.DeliveryFee,
		cmd.Total,
	)
	if err != nil {
		return kernel.UUID{}, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}
	if err := uow.OrderRepository().Add(ctx, o); err != nil {
		_ = uow.Rollback(ctx)
		return kernel.UUID{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	s.log.Info("order submitted", "orderId", o.ID().String())
	if err := s.coordinator.Dispatch(ctx, o); err != nil {
		return kernel.UUID{}, err
	}
	return o.ID(), nil
}

// CancelOrder routes an upstream cancellation through the coordinator.
func (s *OrderIntake) CancelOrder(ctx context.Context, orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	return s.coordinator.Cancel(ctx, orderID)
}
