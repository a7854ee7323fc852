// Package stock defines the ledger contract for listing inventory. The
// check-and-decrement pair must be a single atomic operation per listing;
// implementations that read, compare, and then write separately are subject
// to lost updates under concurrent checkouts.
package stock

import "context"

// Ledger tracks available quantity per listing.
type Ledger interface {
	// Available returns the quantity currently in stock for a listing.
	Available(ctx context.Context, listingID string) (int, error)

	// Reserve atomically decrements the listing's stock by qty. It returns
	// *listing.InsufficientStockError (carrying the remaining quantity) when
	// fewer than qty units are available, leaving the stock untouched. Stock
	// never goes negative.
	Reserve(ctx context.Context, listingID string, qty int) error
}
