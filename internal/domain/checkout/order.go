// Package checkout converts a buyer's cart into a persisted order as one
// atomic unit: validation, stock reservation, order materialization, and
// cart clearing either all happen or none do.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// transitions lists the allowed next states for each order status.
// Cancellation and refunds are only reachable while the order has not
// entered fulfilment; delivered, cancelled and refunded are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusRefunded},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in state s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a disallowed order status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Order is a completed checkout. Monetary fields and the shipping snapshot
// are written once at creation and never recomputed; only Status and the
// shipment linkage change afterwards.
type Order struct {
	OrderID    string
	CustomerID string

	Shipping ShippingInfo

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	TotalAmount  decimal.Decimal

	Status Status
	Lines  []Line

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one purchased listing within an order. ListingName and UnitPrice
// snapshot the listing at the moment of checkout; later listing edits do not
// touch them. PayeeID is the party entitled to the proceeds.
type Line struct {
	ListingID   string
	ListingName string
	PayeeID     string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// Shipment tracks the physical delivery attached to a shipped order.
type Shipment struct {
	OrderID           string
	TrackingNumber    string
	Carrier           string
	ShippedAt         *time.Time
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrUnknownStatus is returned when a status update names a state outside
// the order lifecycle.
var ErrUnknownStatus = errors.New("unknown order status")

// ErrDuplicateOrderID is returned by Store.CreateOrder when the generated
// order identifier collides with an existing one.
var ErrDuplicateOrderID = errors.New("duplicate order id")

// Store is the transactional persistence boundary of checkout.
type Store interface {
	// CreateOrder persists the order and its lines, reserves stock for every
	// line, and clears the buyer's cart — all within a single transaction.
	// It returns *listing.InsufficientStockError when a reservation fails and
	// ErrDuplicateOrderID when the order identifier is already taken; in
	// either case nothing is persisted.
	CreateOrder(ctx context.Context, o *Order) error

	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) error
	AttachShipment(ctx context.Context, sh *Shipment) error
}
