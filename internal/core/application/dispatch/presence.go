package dispatch

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// RiderPresence is the application service for rider lifecycle and
// presence: registration, session state, and location reports. Going
// offline is routed through the coordinator so any open offer or
// uncollected assignment the rider holds is unwound.
type RiderPresence struct {
	uowFactory  ports.UnitOfWorkFactory
	coordinator *Coordinator
	log         *slog.Logger
}

// NewRiderPresence creates the presence service.
func NewRiderPresence(
	uowFactory ports.UnitOfWorkFactory,
	coordinator *Coordinator,
	log *slog.Logger,
) (*RiderPresence, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if coordinator == nil {
		return nil, errs.NewValueIsRequiredError("coordinator")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}

	return &RiderPresence{
		uowFactory:  uowFactory,
		coordinator: coordinator,
		log:         log.With("component", "rider-presence"),
	}, nil
}

// RegisterRider creates a new rider account. The rider starts offline
// with no known location.
func (s *RiderPresence) RegisterRider(ctx context.Context, name string) (kernel.UUID, error) {
	r, err := rider.NewRider(kernel.NewUUID(), name)
	if err != nil {
		return kernel.UUID{}, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}
	if err := uow.RiderRepository().Add(ctx, r); err != nil {
		_ = uow.Rollback(ctx)
		return kernel.UUID{}, err
	}
	if err := uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	s.log.Info("rider registered", "riderId", r.ID().String(), "name", name)
	return r.ID(), nil
}

// GoOnline starts the rider's session at the reported location, making
// them eligible for offers.
func (s *RiderPresence) GoOnline(ctx context.Context, riderID kernel.UUID, location kernel.GeoPoint) error {
	return s.updateRider(ctx, riderID, func(r *rider.Rider) error {
		if err := r.MoveTo(location); err != nil {
			return err
		}
		r.GoOnline()
		return nil
	})
}

// GoOffline ends the rider's session. Any open offer the rider holds is
// rebroadcast and an uncollected assignment is dissolved and redispatched.
func (s *RiderPresence) GoOffline(ctx context.Context, riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}
	return s.coordinator.HandleRiderOffline(ctx, riderID)
}

// ReportLocation records the rider's current position.
func (s *RiderPresence) ReportLocation(ctx context.Context, riderID kernel.UUID, location kernel.GeoPoint) error {
	return s.updateRider(ctx, riderID, func(r *rider.Rider) error {
		return r.MoveTo(location)
	})
}

func (s *RiderPresence) updateRider(ctx context.Context, riderID kernel.UUID, mutate func(*rider.Rider) error) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	r, err := uow.RiderRepository().Get(ctx, riderID)
	if err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	if err := mutate(r); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	if err := uow.RiderRepository().Update(ctx, r); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	return uow.Commit(ctx)
}
