package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// RecoveryLoader rebuilds the in-memory dispatch state from persisted
// orders after a restart. ReadyForPickup orders re-enter the cycle with
// a fresh job; orders with a committed rider assignment are restored
// directly into Assigned so the rider's accept is never lost.
//
// Recovery must complete before the inbound surfaces start serving, so
// rider responses arriving right after startup find their jobs in place.
type RecoveryLoader struct {
	uowFactory  ports.UnitOfWorkFactory
	coordinator *Coordinator
	log         *slog.Logger
}

// NewRecoveryLoader creates the recovery loader.
func NewRecoveryLoader(
	uowFactory ports.UnitOfWorkFactory,
	coordinator *Coordinator,
	log *slog.Logger,
) (*RecoveryLoader, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if coordinator == nil {
		return nil, errs.NewValueIsRequiredError("coordinator")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}

	return &RecoveryLoader{
		uowFactory:  uowFactory,
		coordinator: coordinator,
		log:         log.With("component", "recovery-loader"),
	}, nil
}

// Load reads every dispatchable order and rebuilds its job. A single
// order that fails to restore is logged and skipped; a failed read of
// the order set aborts recovery.
func (l *RecoveryLoader) Load(ctx context.Context) error {
	uow := l.uowFactory.Create()
	orders, err := uow.OrderRepository().GetAllDispatchable(ctx)
	if err != nil {
		return fmt.Errorf("load dispatchable orders: %w", err)
	}

	var recovered, restored int
	for _, o := range orders {
		switch o.Status() {
		case order.ReadyForPickup:
			if err := l.coordinator.Dispatch(ctx, o); err != nil {
				l.log.Error("failed to redispatch recovered order",
					"orderId", o.ID().String(), "error", err)
				continue
			}
			recovered++

		case order.RiderAssigned:
			if err := l.coordinator.Restore(ctx, o); err != nil {
				l.log.Error("failed to restore assigned order",
					"orderId", o.ID().String(), "error", err)
				continue
			}
			restored++
		}
	}

	l.log.Info("recovery complete",
		"redispatched", recovered, "restoredAssignments", restored)
	return nil
}

// Reconcile sweeps the dispatchable orders and adopts any that have no
// live job, e.g. an order whose submit committed right before a crash.
// Orders already under dispatch are skipped silently, so the sweep is
// safe to run on a schedule. Returns the number of orders adopted.
func (l *RecoveryLoader) Reconcile(ctx context.Context) (int, error) {
	uow := l.uowFactory.Create()
	orders, err := uow.OrderRepository().GetAllDispatchable(ctx)
	if err != nil {
		return 0, fmt.Errorf("load dispatchable orders: %w", err)
	}

	var adopted int
	for _, o := range orders {
		var adoptErr error
		switch o.Status() {
		case order.ReadyForPickup:
			adoptErr = l.coordinator.Dispatch(ctx, o)
		case order.RiderAssigned:
			adoptErr = l.coordinator.Restore(ctx, o)
		default:
			continue
		}

		switch {
		case adoptErr == nil:
			l.log.Warn("adopted orphaned order", "orderId", o.ID().String(),
				"status", o.Status().String())
			adopted++
		case errors.Is(adoptErr, ErrJobAlreadyExists):
		default:
			l.log.Error("failed to adopt orphaned order",
				"orderId", o.ID().String(), "error", adoptErr)
		}
	}
	return adopted, nil
}
