package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/cart"
	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/stock"
)

var hundred = decimal.NewFromInt(100)

// ErrEmptyCart is returned when checkout is attempted with no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// Fees is the immutable charge policy applied to every order: a flat
// shipping cost and a percentage tax on subtotal plus shipping.
type Fees struct {
	ShippingCost decimal.Decimal
	TaxPercent   decimal.Decimal
}

// NewFees converts the configured INR shipping fee into the base currency
// at the given rate.
func NewFees(rate, shippingINR, taxPercent decimal.Decimal) Fees {
	return Fees{
		ShippingCost: shippingINR.DivRound(rate, 2),
		TaxPercent:   taxPercent,
	}
}

// Service orchestrates the cart-to-order transition. All validation happens
// before any mutation; the mutation itself is delegated to the Store, which
// executes it as one transaction.
type Service struct {
	carts  *cart.Service
	ledger stock.Ledger
	store  Store
	fees   Fees

	newOrderID func() string
}

// NewService creates a checkout Service with the given charge policy.
func NewService(carts *cart.Service, ledger stock.Ledger, store Store, fees Fees) *Service {
	return &Service{
		carts:      carts,
		ledger:     ledger,
		store:      store,
		fees:       fees,
		newOrderID: NewOrderID,
	}
}

// Checkout validates the buyer's cart and shipping details, then persists
// the order atomically: stock is reserved per line, the order and its line
// snapshots are written, and the cart is cleared — or nothing happens.
//
// The fail-fast stock check here is advisory; the Store re-reserves each
// line with an atomic check-and-decrement, so concurrent checkouts racing
// for the last units cannot oversell.
func (s *Service) Checkout(ctx context.Context, userID string, shipping ShippingInfo) (*Order, error) {
	summary, err := s.carts.Summary(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(summary.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	for _, line := range summary.Lines {
		available, err := s.ledger.Available(ctx, line.Listing.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "check stock for listing %s", line.Listing.ID)
		}
		if line.Quantity > available {
			return nil, &listing.InsufficientStockError{
				ListingID: line.Listing.ID,
				Requested: line.Quantity,
				Available: available,
			}
		}
	}

	o := s.buildOrder(userID, shipping, summary)

	if err := s.store.CreateOrder(ctx, o); err != nil {
		if !errors.Is(err, ErrDuplicateOrderID) {
			return nil, errors.Wrap(err, "create order")
		}
		// One regeneration attempt, then give up.
		o.OrderID = s.newOrderID()
		if err := s.store.CreateOrder(ctx, o); err != nil {
			if errors.Is(err, ErrDuplicateOrderID) {
				return nil, ErrIdentifierExhausted
			}
			return nil, errors.Wrap(err, "create order")
		}
	}

	return o, nil
}

// buildOrder assembles the order snapshot from the cart summary: line
// subtotals from the listings' selling prices, plus the flat shipping fee
// and the percentage tax on subtotal+shipping.
func (s *Service) buildOrder(userID string, shipping ShippingInfo, summary *cart.Summary) *Order {
	lines := make([]Line, len(summary.Lines))
	subtotal := decimal.Zero
	for i, cl := range summary.Lines {
		lineSubtotal := cl.Subtotal()
		lines[i] = Line{
			ListingID:   cl.Listing.ID,
			ListingName: cl.Listing.Name,
			PayeeID:     cl.Listing.PayeeID,
			UnitPrice:   cl.Listing.SellingPrice,
			Quantity:    cl.Quantity,
			Subtotal:    lineSubtotal,
		}
		subtotal = subtotal.Add(lineSubtotal)
	}

	tax := subtotal.Add(s.fees.ShippingCost).
		Mul(s.fees.TaxPercent).Div(hundred).Round(2)

	return &Order{
		OrderID:      s.newOrderID(),
		CustomerID:   userID,
		Shipping:     shipping,
		Subtotal:     subtotal,
		ShippingCost: s.fees.ShippingCost,
		Tax:          tax,
		TotalAmount:  subtotal.Add(s.fees.ShippingCost).Add(tax),
		Status:       StatusPending,
		Lines:        lines,
	}
}

// Get returns a single order with its lines.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.store.GetByOrderID(ctx, orderID)
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.store.ListByCustomer(ctx, customerID)
}

// UpdateStatus moves an order to a new status after checking the transition
// is allowed.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	if !next.Valid() {
		return errors.Wrapf(ErrUnknownStatus, "%q", next)
	}

	o, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}

	if err := s.store.UpdateStatus(ctx, orderID, next); err != nil {
		return errors.Wrap(err, "update order status")
	}
	return nil
}

// AttachShipment links tracking details to a shipped order.
func (s *Service) AttachShipment(ctx context.Context, sh *Shipment) error {
	if _, err := s.store.GetByOrderID(ctx, sh.OrderID); err != nil {
		return err
	}
	if err := s.store.AttachShipment(ctx, sh); err != nil {
		return errors.Wrap(err, "attach shipment")
	}
	return nil
}
