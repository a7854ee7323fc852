package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/stock"
)

var _ stock.Ledger = (*StockLedger)(nil)

// StockLedger implements stock.Ledger on the listings table. Reservation is
// a single conditional UPDATE, so two checkouts racing for the same units
// serialize on the row lock and the loser observes the decremented value.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger returns a StockLedger that uses the given pool.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// Available returns the quantity currently in stock for a listing.
func (s *StockLedger) Available(ctx context.Context, listingID string) (int, error) {
	return stockAvailable(ctx, s.pool, listingID)
}

// Reserve atomically decrements the listing's stock by qty.
func (s *StockLedger) Reserve(ctx context.Context, listingID string, qty int) error {
	return reserveStock(ctx, s.pool, listingID, qty)
}

func stockAvailable(ctx context.Context, q querier, listingID string) (int, error) {
	var available int
	err := q.QueryRow(ctx,
		`SELECT stock_quantity FROM listings WHERE id = $1`, listingID).
		Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, listing.ErrNotFound
		}
		return 0, errors.Wrapf(err, "read stock for listing %q", listingID)
	}
	return available, nil
}

// reserveStock performs the check-and-decrement as one statement. The guard
// in the WHERE clause is what prevents oversell: when the remaining stock
// is short the update matches no row and nothing changes.
func reserveStock(ctx context.Context, q querier, listingID string, qty int) error {
	tag, err := q.Exec(ctx, `
		UPDATE listings
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`,
		listingID, qty)
	if err != nil {
		return errors.Wrapf(err, "reserve stock for listing %q", listingID)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	available, err := stockAvailable(ctx, q, listingID)
	if err != nil {
		return err
	}
	return &listing.InsufficientStockError{
		ListingID: listingID,
		Requested: qty,
		Available: available,
	}
}
