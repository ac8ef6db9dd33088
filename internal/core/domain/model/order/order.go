package order

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrOrderIsNotConstructed is returned when an Order instance was not created
// through the NewOrder or RestoreOrder factory methods.
var ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder constructor")

// Item is one line of the order payload as displayed to the rider:
// what to carry, how many, and at what price.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Validate checks the item invariants: non-empty name, positive quantity,
// non-negative price.
func (i Item) Validate() error {
	if i.Name == "" {
		return errs.NewValueIsRequiredError("item name")
	}
	if i.Quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("item quantity",
			fmt.Errorf("%d is not greater than 0", i.Quantity))
	}
	if i.Price < 0 {
		return errs.NewValueIsInvalidErrorWithCause("item price",
			fmt.Errorf("%f is negative", i.Price))
	}
	return nil
}

// Order is the dispatch engine's view of a marketplace order. It is an
// aggregate root managing the delivery lifecycle from ready-for-pickup
// through rider assignment to delivery.
//
// Invariants:
//   - Valid unique identifier, vendor, and customer
//   - Valid pickup and dropoff coordinates
//   - Delivery fee and total are non-negative
//   - Rider assignment is consistent with the status state machine
//   - Instances are created only via NewOrder or RestoreOrder
type Order struct {
	id         kernel.UUID
	vendorID   kernel.UUID
	customerID kernel.UUID

	// riderID is the assigned rider (nil while unassigned)
	riderID *kernel.UUID

	pickup  kernel.GeoPoint
	dropoff kernel.GeoPoint

	items       []Item
	deliveryFee float64
	total       float64

	status    Status
	createdAt time.Time

	guard guard.ConstructorGuard
}

// NewOrder creates an Order that just became eligible for dispatch.
// The order starts in ReadyForPickup status with no rider assigned.
//
// Parameters:
//   - id, vendorID, customerID: identities (must be valid UUIDs)
//   - pickup: vendor location the rider collects from
//   - dropoff: customer delivery location
//   - items: itemized payload shown to candidate riders (may be empty)
//   - deliveryFee: rider compensation for the trip (non-negative)
//   - total: monetary order total (non-negative)
func NewOrder(
	id kernel.UUID,
	vendorID kernel.UUID,
	customerID kernel.UUID,
	pickup kernel.GeoPoint,
	dropoff kernel.GeoPoint,
	items []Item,
	deliveryFee float64,
	total float64,
) (*Order, error) {
	o := &Order{
		status:    ReadyForPickup,
		createdAt: time.Now().UTC(),
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setVendorID(vendorID),
		o.setCustomerID(customerID),
		o.setPickup(pickup),
		o.setDropoff(dropoff),
		o.setItems(items),
		o.setDeliveryFee(deliveryFee),
		o.setTotal(total),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder reconstructs an Order aggregate from persistent storage,
// preserving its status, rider assignment, and creation time. The restored
// order behaves identically to one created through normal domain operations.
func RestoreOrder(
	id kernel.UUID,
	vendorID kernel.UUID,
	customerID kernel.UUID,
	pickup kernel.GeoPoint,
	dropoff kernel.GeoPoint,
	items []Item,
	deliveryFee float64,
	total float64,
	status Status,
	riderID *kernel.UUID,
	createdAt time.Time,
) (*Order, error) {
	o := &Order{
		createdAt: createdAt,
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setVendorID(vendorID),
		o.setCustomerID(customerID),
		o.setPickup(pickup),
		o.setDropoff(dropoff),
		o.setItems(items),
		o.setDeliveryFee(deliveryFee),
		o.setTotal(total),
		o.setStatus(status, riderID),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order was properly constructed through a factory method.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// VendorID returns the vendor the order is picked up from.
func (o *Order) VendorID() kernel.UUID {
	return o.vendorID
}

// CustomerID returns the customer the order is delivered to.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// Rider returns the assigned rider's ID, or nil while unassigned.
func (o *Order) Rider() *kernel.UUID {
	return o.riderID
}

// Pickup returns the vendor pickup location.
func (o *Order) Pickup() kernel.GeoPoint {
	return o.pickup
}

// Dropoff returns the customer delivery location.
func (o *Order) Dropoff() kernel.GeoPoint {
	return o.dropoff
}

// Items returns the itemized payload for display.
func (o *Order) Items() []Item {
	return o.items
}

// DeliveryFee returns the rider compensation for the trip.
func (o *Order) DeliveryFee() float64 {
	return o.deliveryFee
}

// Total returns the monetary order total.
func (o *Order) Total() float64 {
	return o.total
}

// Status returns the current delivery status.
func (o *Order) Status() Status {
	return o.status
}

// CreatedAt returns when the order became eligible for dispatch.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// AssignRider assigns the order to a rider and moves it to RiderAssigned.
// Only valid while the order waits at the vendor in ReadyForPickup.
func (o *Order) AssignRider(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	newStatus, err := o.status.AssignRider()
	if err != nil {
		return err
	}

	o.status = newStatus
	o.riderID = &riderID
	return nil
}

// UnassignRider dissolves the current rider assignment and returns the
// order to ReadyForPickup so a new dispatch cycle can start. Only valid
// before pickup is confirmed.
func (o *Order) UnassignRider() error {
	newStatus, err := o.status.UnassignRider()
	if err != nil {
		return err
	}

	o.status = newStatus
	o.riderID = nil
	return nil
}

// ConfirmPickup records that the assigned rider collected the order.
func (o *Order) ConfirmPickup() error {
	newStatus, err := o.status.ConfirmPickup()
	if err != nil {
		return err
	}

	o.status = newStatus
	return nil
}

// CompleteDelivery marks the order as delivered. Terminal.
func (o *Order) CompleteDelivery() error {
	newStatus, err := o.status.CompleteDelivery()
	if err != nil {
		return err
	}

	o.status = newStatus
	return nil
}

// Cancel cancels the order from any non-terminal status. Terminal.
func (o *Order) Cancel() error {
	newStatus, err := o.status.Cancel()
	if err != nil {
		return err
	}

	o.status = newStatus
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setVendorID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("vendorId", err)
	}
	o.vendorID = id
	return nil
}

func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("customerId", err)
	}
	o.customerID = id
	return nil
}

func (o *Order) setPickup(p kernel.GeoPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	o.pickup = p
	return nil
}

func (o *Order) setDropoff(p kernel.GeoPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	o.dropoff = p
	return nil
}

func (o *Order) setItems(items []Item) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	o.items = items
	return nil
}

func (o *Order) setDeliveryFee(fee float64) error {
	if fee < 0 {
		return errs.NewValueIsInvalidErrorWithCause("deliveryFee is invalid",
			fmt.Errorf("%f is negative", fee))
	}
	o.deliveryFee = fee
	return nil
}

func (o *Order) setTotal(total float64) error {
	if total < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total is invalid",
			fmt.Errorf("%f is negative", total))
	}
	o.total = total
	return nil
}

// setStatus restores status and rider assignment together so their
// consistency can be validated.
func (o *Order) setStatus(status Status, riderID *kernel.UUID) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if riderID != nil {
		if err := riderID.Validate(); err != nil {
			return err
		}
	}
	if err := status.ValidateCanHaveRider(riderID != nil); err != nil {
		return err
	}

	o.status = status
	o.riderID = riderID
	return nil
}
