//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanedge/marketplace/internal/domain/checkout"
	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/postgres"
)

func TestReserveStock(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 5)

	ledger := postgres.NewStockLedger(pool)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "l1", 3))
	assert.Equal(t, 2, stockOf(t, "l1"))

	err := ledger.Reserve(ctx, "l1", 3)
	var stockErr *listing.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// The failed reservation must not have touched the row.
	assert.Equal(t, 2, stockOf(t, "l1"))
}

func TestReserveStock_UnknownListing(t *testing.T) {
	resetDB(t)

	err := postgres.NewStockLedger(pool).Reserve(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, listing.ErrNotFound)
}

func TestReserveStock_ConcurrentNeverNegative(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 5)

	ledger := postgres.NewStockLedger(pool)

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.Reserve(context.Background(), "l1", 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			var stockErr *listing.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
		}
	}

	assert.Equal(t, 5, succeeded, "exactly the available stock may be reserved")
	assert.Equal(t, 0, stockOf(t, "l1"))
}

func TestCreateOrder_RollsBackOnInsufficientStock(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 5)
	seedListing(t, "l2", "a2", nil, "20.00", 1)

	store := postgres.NewCheckoutStore(pool)
	o := &checkout.Order{
		OrderID:      "ORD-TESTROLL",
		CustomerID:   "u1",
		Shipping:     validShipping(),
		Subtotal:     dec("80.00"),
		ShippingCost: dec("0.60"),
		Tax:          decimal.Zero,
		TotalAmount:  dec("80.60"),
		Status:       checkout.StatusPending,
		Lines: []checkout.Line{
			{ListingID: "l1", ListingName: "Listing l1", PayeeID: "a1",
				UnitPrice: dec("10.00"), Quantity: 2, Subtotal: dec("20.00")},
			// More than l2 has: the whole transaction must fail.
			{ListingID: "l2", ListingName: "Listing l2", PayeeID: "a2",
				UnitPrice: dec("20.00"), Quantity: 3, Subtotal: dec("60.00")},
		},
	}

	err := store.CreateOrder(context.Background(), o)
	var stockErr *listing.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "l2", stockErr.ListingID)

	// Nothing persisted, including the first line's decrement.
	assert.Equal(t, 0, orderCount(t))
	assert.Equal(t, 5, stockOf(t, "l1"))
	assert.Equal(t, 1, stockOf(t, "l2"))
}

func TestCreateOrder_DuplicateOrderID(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 10)

	store := postgres.NewCheckoutStore(pool)
	o := &checkout.Order{
		OrderID:      "ORD-DUPLICAT",
		CustomerID:   "u1",
		Shipping:     validShipping(),
		Subtotal:     dec("10.00"),
		ShippingCost: dec("0.60"),
		Tax:          decimal.Zero,
		TotalAmount:  dec("10.60"),
		Status:       checkout.StatusPending,
		Lines: []checkout.Line{
			{ListingID: "l1", ListingName: "Listing l1", PayeeID: "a1",
				UnitPrice: dec("10.00"), Quantity: 1, Subtotal: dec("10.00")},
		},
	}

	require.NoError(t, store.CreateOrder(context.Background(), o))

	err := store.CreateOrder(context.Background(), o)
	require.ErrorIs(t, err, checkout.ErrDuplicateOrderID)

	// The duplicate attempt must not consume stock.
	assert.Equal(t, 9, stockOf(t, "l1"))
}

func TestCheckout_EndToEnd(t *testing.T) {
	resetDB(t)
	seedTeam(t, "team-1", "Terracotta Collective", "payee-9")
	teamID := "team-1"
	seedListing(t, "l1", "a1", &teamID, "10.00", 5)
	seedListing(t, "l2", "a2", nil, "20.00", 5)

	svc, carts := newCheckoutService()
	ctx := context.Background()

	require.NoError(t, carts.AddOrMerge(ctx, "u1", "l1", 2))
	require.NoError(t, carts.AddOrMerge(ctx, "u1", "l2", 3))

	o, err := svc.Checkout(ctx, "u1", validShipping())
	require.NoError(t, err)

	assert.True(t, dec("80.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, dec("0.60").Equal(o.ShippingCost))
	assert.True(t, dec("80.60").Equal(o.TotalAmount))
	assert.Equal(t, checkout.StatusPending, o.Status)

	// Stock decremented, cart cleared.
	assert.Equal(t, 3, stockOf(t, "l1"))
	assert.Equal(t, 2, stockOf(t, "l2"))
	assert.Equal(t, 0, cartLineCount(t, "u1"))

	// Reload and check the line snapshots, including the team payee.
	persisted, err := svc.Get(ctx, o.OrderID)
	require.NoError(t, err)
	require.Len(t, persisted.Lines, 2)

	byListing := make(map[string]checkout.Line, 2)
	for _, line := range persisted.Lines {
		byListing[line.ListingID] = line
	}
	assert.Equal(t, "payee-9", byListing["l1"].PayeeID, "team listing pays the team payee")
	assert.Equal(t, "a2", byListing["l2"].PayeeID, "solo listing pays the artisan")
	assert.True(t, dec("10.00").Equal(byListing["l1"].UnitPrice))
}

func TestCheckout_ConcurrentOversell(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 1)

	svc, carts := newCheckoutService()
	ctx := context.Background()

	// Two buyers both managed to cart the last unit.
	require.NoError(t, carts.AddOrMerge(ctx, "u1", "l1", 1))
	require.NoError(t, carts.AddOrMerge(ctx, "u2", "l1", 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, user, validShipping())
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var stockErr *listing.InsufficientStockError
			require.ErrorAs(t, err, &stockErr, "loser must see an insufficient stock error")
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one checkout wins the last unit")
	assert.Equal(t, 0, stockOf(t, "l1"))
	assert.Equal(t, 1, orderCount(t))
}

func TestOrderStatusAndShipment(t *testing.T) {
	resetDB(t)
	seedListing(t, "l1", "a1", nil, "10.00", 5)

	svc, carts := newCheckoutService()
	ctx := context.Background()

	require.NoError(t, carts.AddOrMerge(ctx, "u1", "l1", 1))
	o, err := svc.Checkout(ctx, "u1", validShipping())
	require.NoError(t, err)

	// Walk the order through its lifecycle.
	for _, next := range []checkout.Status{
		checkout.StatusConfirmed, checkout.StatusProcessing, checkout.StatusShipped,
	} {
		require.NoError(t, svc.UpdateStatus(ctx, o.OrderID, next))
	}

	err = svc.UpdateStatus(ctx, o.OrderID, checkout.StatusCancelled)
	var trErr *checkout.InvalidTransitionError
	require.ErrorAs(t, err, &trErr)

	require.NoError(t, svc.AttachShipment(ctx, &checkout.Shipment{
		OrderID:        o.OrderID,
		TrackingNumber: "TRK-0001",
		Carrier:        "IndiaPost",
	}))

	require.NoError(t, svc.UpdateStatus(ctx, o.OrderID, checkout.StatusDelivered))

	persisted, err := svc.Get(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusDelivered, persisted.Status)
}
