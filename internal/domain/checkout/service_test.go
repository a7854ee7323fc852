package checkout

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanedge/marketplace/internal/domain/cart"
	"github.com/artisanedge/marketplace/internal/domain/listing"
)

// --- Mock implementations ---

type mockListingRepo struct {
	byID map[string]*listing.Listing
}

func (m *mockListingRepo) List(_ context.Context) ([]listing.Listing, error) { return nil, nil }

func (m *mockListingRepo) GetByID(_ context.Context, id string) (*listing.Listing, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	return l, nil
}

func (m *mockListingRepo) GetByIDs(_ context.Context, ids []string) ([]listing.Listing, error) {
	var out []listing.Listing
	for _, id := range ids {
		if l, ok := m.byID[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockListingRepo) Create(_ context.Context, _ *listing.Listing) error { return nil }
func (m *mockListingRepo) Update(_ context.Context, _ *listing.Listing) error { return nil }
func (m *mockListingRepo) Count(_ context.Context) (int64, error)             { return 0, nil }
func (m *mockListingRepo) Latest(_ context.Context) (*listing.Listing, error) {
	return nil, listing.ErrNotFound
}

type mockCartRepo struct {
	lines []cart.Line
}

func (m *mockCartRepo) Lines(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockCartRepo) GetLine(_ context.Context, userID, listingID string) (*cart.Line, error) {
	for _, l := range m.lines {
		if l.UserID == userID && l.ListingID == listingID {
			return &l, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (m *mockCartRepo) UpsertLine(_ context.Context, _ cart.Line) error        { return nil }
func (m *mockCartRepo) DeleteLine(_ context.Context, _ string, _ string) error { return nil }
func (m *mockCartRepo) Clear(_ context.Context, _ string) error                { return nil }

type mockLedger struct {
	available map[string]int
	err       error
}

func (m *mockLedger) Available(_ context.Context, listingID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.available[listingID], nil
}

func (m *mockLedger) Reserve(_ context.Context, _ string, _ int) error { return nil }

type mockStore struct {
	created    []*Order
	byOrderID  map[string]*Order
	createErrs []error // consumed one per CreateOrder call
	updateErr  error
	statusSets []Status
	shipments  []*Shipment
}

func newMockStore() *mockStore {
	return &mockStore{byOrderID: make(map[string]*Order)}
}

func (m *mockStore) CreateOrder(_ context.Context, o *Order) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	m.created = append(m.created, o)
	m.byOrderID[o.OrderID] = o
	return nil
}

func (m *mockStore) GetByOrderID(_ context.Context, orderID string) (*Order, error) {
	o, ok := m.byOrderID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockStore) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byOrderID {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateStatus(_ context.Context, orderID string, status Status) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.byOrderID[orderID].Status = status
	m.statusSets = append(m.statusSets, status)
	return nil
}

func (m *mockStore) AttachShipment(_ context.Context, sh *Shipment) error {
	m.shipments = append(m.shipments, sh)
	return nil
}

// --- Helpers ---

func validShipping() ShippingInfo {
	return ShippingInfo{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Phone:      "+91 98765 43210",
		Address:    "12 Potter's Lane",
		City:       "Jaipur",
		State:      "Rajasthan",
		PostalCode: "302001",
		Country:    "India",
	}
}

func testFees() Fees {
	// 50 INR shipping at rate 83, no tax.
	return NewFees(decimal.NewFromInt(83), decimal.NewFromInt(50), decimal.Zero)
}

func newTestListing(id, name, payee, selling string, stock int) listing.Listing {
	price := decimal.RequireFromString(selling)
	return listing.Listing{
		ID:            id,
		ArtisanID:     payee,
		PayeeID:       payee,
		Name:          name,
		RawPrice:      price,
		OriginalPrice: price,
		SellingPrice:  price,
		StockQuantity: stock,
		Status:        listing.StatusActive,
	}
}

type fixture struct {
	svc    *Service
	store  *mockStore
	ledger *mockLedger
}

func newFixture(lines []cart.Line, listings ...listing.Listing) *fixture {
	byID := make(map[string]*listing.Listing, len(listings))
	available := make(map[string]int, len(listings))
	for i := range listings {
		byID[listings[i].ID] = &listings[i]
		available[listings[i].ID] = listings[i].StockQuantity
	}

	carts := cart.NewService(&mockCartRepo{lines: lines}, &mockListingRepo{byID: byID})
	ledger := &mockLedger{available: available}
	store := newMockStore()

	return &fixture{
		svc:    NewService(carts, ledger, store, testFees()),
		store:  store,
		ledger: ledger,
	}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_IncompleteShipping(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)

	shipping := validShipping()
	shipping.PostalCode = ""

	_, err := f.svc.Checkout(context.Background(), "u1", shipping)

	var shipErr *IncompleteShippingError
	require.ErrorAs(t, err, &shipErr)
	assert.Equal(t, "postal_code", shipErr.Field)
	assert.Empty(t, f.store.created)
}

func TestCheckout_StockPreCheckFails(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 3}},
		newTestListing("l1", "Vase", "a1", "10.00", 3),
	)
	// Stock dropped between adding to cart and checking out.
	f.ledger.available["l1"] = 1

	_, err := f.svc.Checkout(context.Background(), "u1", validShipping())

	var stockErr *listing.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "l1", stockErr.ListingID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Empty(t, f.store.created)
}

func TestCheckout_Totals(t *testing.T) {
	f := newFixture(
		[]cart.Line{
			{UserID: "u1", ListingID: "l1", Quantity: 2},
			{UserID: "u1", ListingID: "l2", Quantity: 3},
		},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
		newTestListing("l2", "Shawl", "a2", "20.00", 5),
	)

	o, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)

	// 2×10.00 + 3×20.00 = 80.00, plus 50 INR shipping at rate 83 = 0.60.
	assert.True(t, decimal.RequireFromString("80.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, decimal.RequireFromString("0.60").Equal(o.ShippingCost), "shipping %s", o.ShippingCost)
	assert.True(t, decimal.Zero.Equal(o.Tax), "tax %s", o.Tax)
	assert.True(t, decimal.RequireFromString("80.60").Equal(o.TotalAmount), "total %s", o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, f.store.created, 1)
}

func TestCheckout_TaxOnSubtotalPlusShipping(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)
	f.svc.fees = NewFees(decimal.NewFromInt(83), decimal.NewFromInt(50),
		decimal.RequireFromString("18"))

	o, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)

	// (10.00 + 0.60) × 18% = 1.908, rounded half-up.
	assert.True(t, decimal.RequireFromString("1.91").Equal(o.Tax), "tax %s", o.Tax)
	assert.True(t, decimal.RequireFromString("12.51").Equal(o.TotalAmount), "total %s", o.TotalAmount)
}

func TestCheckout_LineSnapshots(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 2}},
		newTestListing("l1", "Terracotta Vase", "payee-7", "15.50", 5),
	)

	o, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)

	require.Len(t, o.Lines, 1)
	line := o.Lines[0]
	assert.Equal(t, "l1", line.ListingID)
	assert.Equal(t, "Terracotta Vase", line.ListingName)
	assert.Equal(t, "payee-7", line.PayeeID)
	assert.True(t, decimal.RequireFromString("15.50").Equal(line.UnitPrice))
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, decimal.RequireFromString("31.00").Equal(line.Subtotal))
}

func TestCheckout_OrderIDFormat(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)

	o, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, o.OrderID)
}

func TestCheckout_RetriesOnDuplicateOrderID(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)
	f.store.createErrs = []error{ErrDuplicateOrderID}

	ids := []string{"ORD-AAAAAAAA", "ORD-BBBBBBBB"}
	f.svc.newOrderID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	o, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.NoError(t, err)

	assert.Equal(t, "ORD-BBBBBBBB", o.OrderID)
	require.Len(t, f.store.created, 1)
}

func TestCheckout_IdentifierExhausted(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)
	f.store.createErrs = []error{ErrDuplicateOrderID, ErrDuplicateOrderID}

	_, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.ErrorIs(t, err, ErrIdentifierExhausted)
	assert.Empty(t, f.store.created)
}

func TestCheckout_StoreFailure(t *testing.T) {
	f := newFixture(
		[]cart.Line{{UserID: "u1", ListingID: "l1", Quantity: 1}},
		newTestListing("l1", "Vase", "a1", "10.00", 5),
	)
	f.store.createErrs = []error{errors.New("db write failed")}

	_, err := f.svc.Checkout(context.Background(), "u1", validShipping())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(nil)

	err := f.svc.UpdateStatus(context.Background(), "ORD-AAAAAAAA", Status("lost"))
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newFixture(nil)

	err := f.svc.UpdateStatus(context.Background(), "ORD-AAAAAAAA", StatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newFixture(nil)
	f.store.byOrderID["ORD-AAAAAAAA"] = &Order{OrderID: "ORD-AAAAAAAA", Status: StatusDelivered}

	err := f.svc.UpdateStatus(context.Background(), "ORD-AAAAAAAA", StatusPending)

	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusDelivered, trErr.From)
	assert.Equal(t, StatusPending, trErr.To)
}

func TestUpdateStatus_AllowedTransition(t *testing.T) {
	f := newFixture(nil)
	f.store.byOrderID["ORD-AAAAAAAA"] = &Order{OrderID: "ORD-AAAAAAAA", Status: StatusPending}

	require.NoError(t, f.svc.UpdateStatus(context.Background(), "ORD-AAAAAAAA", StatusConfirmed))
	assert.Equal(t, []Status{StatusConfirmed}, f.store.statusSets)
}

func TestAttachShipment_OrderNotFound(t *testing.T) {
	f := newFixture(nil)

	err := f.svc.AttachShipment(context.Background(), &Shipment{OrderID: "ORD-MISSING"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAttachShipment(t *testing.T) {
	f := newFixture(nil)
	f.store.byOrderID["ORD-AAAAAAAA"] = &Order{OrderID: "ORD-AAAAAAAA", Status: StatusShipped}

	sh := &Shipment{OrderID: "ORD-AAAAAAAA", TrackingNumber: "TRK123", Carrier: "IndiaPost"}
	require.NoError(t, f.svc.AttachShipment(context.Background(), sh))
	require.Len(t, f.store.shipments, 1)
}
