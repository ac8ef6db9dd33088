package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/require"
)

// memDB is an in-memory stand-in for the postgres adapter: both
// repositories share its maps and the unit of work is a pass-through.
// failWrites makes every repository write fail, to exercise the
// coordinator's commit-failure teardown.
type memDB struct {
	t          *testing.T
	mu         sync.Mutex
	orders     map[kernel.UUID]*order.Order
	riders     map[kernel.UUID]*rider.Rider
	failWrites bool
}

func newMemDB(t *testing.T) *memDB {
	return &memDB{
		t:      t,
		orders: make(map[kernel.UUID]*order.Order),
		riders: make(map[kernel.UUID]*rider.Rider),
	}
}

func (db *memDB) setFailWrites(fail bool) {
	db.mu.Lock()
	db.failWrites = fail
	db.mu.Unlock()
}

func (db *memDB) order(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	o, ok := db.orders[id]
	require.True(t, ok, "order %s not in store", id)
	return o
}

func (db *memDB) rider(t *testing.T, id kernel.UUID) *rider.Rider {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.riders[id]
	require.True(t, ok, "rider %s not in store", id)
	return r
}

type memUnitOfWork struct {
	db *memDB
}

func (db *memDB) Create() ports.UnitOfWork {
	return &memUnitOfWork{db: db}
}

func (u *memUnitOfWork) Begin(context.Context) error    { return nil }
func (u *memUnitOfWork) Commit(context.Context) error   { return nil }
func (u *memUnitOfWork) Rollback(context.Context) error { return nil }

func (u *memUnitOfWork) OrderRepository() ports.OrderRepository {
	return &memOrderRepo{db: u.db}
}

func (u *memUnitOfWork) RiderRepository() ports.RiderRepository {
	return &memRiderRepo{db: u.db}
}

var errWriteFailed = errors.New("simulated write failure")

// copyOrder and copyRider give repository reads value semantics, so a
// mutation on a fetched aggregate only lands in the store via Update.
func copyOrder(t *testing.T, o *order.Order) *order.Order {
	t.Helper()
	copied, err := order.RestoreOrder(
		o.ID(), o.VendorID(), o.CustomerID(), o.Pickup(), o.Dropoff(),
		o.Items(), o.DeliveryFee(), o.Total(), o.Status(), o.Rider(), o.CreatedAt())
	require.NoError(t, err)
	return copied
}

func copyRider(t *testing.T, r *rider.Rider) *rider.Rider {
	t.Helper()
	copied, err := rider.RestoreRider(
		r.ID(), r.Name(), r.IsOnline(), r.IsBusy(), r.Location(),
		r.Rating(), r.CompletedOrders())
	require.NoError(t, err)
	return copied
}

type memOrderRepo struct {
	db *memDB
}

func (r *memOrderRepo) Add(_ context.Context, aggregate *order.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrites {
		return errWriteFailed
	}
	r.db.orders[aggregate.ID()] = aggregate
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, aggregate *order.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrites {
		return errWriteFailed
	}
	if _, ok := r.db.orders[aggregate.ID()]; !ok {
		return errs.NewObjectNotFoundError("order", aggregate.ID().String())
	}
	r.db.orders[aggregate.ID()] = aggregate
	return nil
}

func (r *memOrderRepo) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return copyOrder(r.db.t, o), nil
}

func (r *memOrderRepo) GetAllDispatchable(context.Context) ([]*order.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*order.Order
	for _, o := range r.db.orders {
		if o.Status().IsDispatchable() {
			out = append(out, copyOrder(r.db.t, o))
		}
	}
	return out, nil
}

type memRiderRepo struct {
	db *memDB
}

func (r *memRiderRepo) Add(_ context.Context, aggregate *rider.Rider) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrites {
		return errWriteFailed
	}
	r.db.riders[aggregate.ID()] = aggregate
	return nil
}

func (r *memRiderRepo) Update(_ context.Context, aggregate *rider.Rider) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrites {
		return errWriteFailed
	}
	if _, ok := r.db.riders[aggregate.ID()]; !ok {
		return errs.NewObjectNotFoundError("rider", aggregate.ID().String())
	}
	r.db.riders[aggregate.ID()] = aggregate
	return nil
}

func (r *memRiderRepo) Get(_ context.Context, id kernel.UUID) (*rider.Rider, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rd, ok := r.db.riders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("rider", id.String())
	}
	return copyRider(r.db.t, rd), nil
}

func (r *memRiderRepo) GetAllOnline(context.Context) ([]*rider.Rider, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*rider.Rider
	for _, rd := range r.db.riders {
		if rd.IsOnline() {
			out = append(out, copyRider(r.db.t, rd))
		}
	}
	return out, nil
}

// recordingSink captures every pushed notification per recipient.
type recordingSink struct {
	mu        sync.Mutex
	toRiders  map[kernel.UUID][]ports.Notification
	toClients map[kernel.UUID][]ports.Notification
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		toRiders:  make(map[kernel.UUID][]ports.Notification),
		toClients: make(map[kernel.UUID][]ports.Notification),
	}
}

func (s *recordingSink) PushToRider(riderID kernel.UUID, n ports.Notification) {
	s.mu.Lock()
	s.toRiders[riderID] = append(s.toRiders[riderID], n)
	s.mu.Unlock()
}

func (s *recordingSink) PushToRiders(riderIDs []kernel.UUID, n ports.Notification) {
	for _, riderID := range riderIDs {
		s.PushToRider(riderID, n)
	}
}

func (s *recordingSink) PushToCustomer(customerID kernel.UUID, n ports.Notification) {
	s.mu.Lock()
	s.toClients[customerID] = append(s.toClients[customerID], n)
	s.mu.Unlock()
}

func (s *recordingSink) Close(context.Context) error { return nil }

func (s *recordingSink) riderGot(riderID kernel.UUID, kind ports.NotificationKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.toRiders[riderID] {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

func (s *recordingSink) customerGot(customerID kernel.UUID, kind ports.NotificationKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.toClients[customerID] {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

func (s *recordingSink) lastRiderNotification(riderID kernel.UUID) (ports.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.toRiders[riderID]
	if len(msgs) == 0 {
		return ports.Notification{}, false
	}
	return msgs[len(msgs)-1], true
}
