package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanedge/marketplace/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. The
// (user_id, listing_id) primary key enforces one line per listing per cart.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Lines returns the buyer's cart lines in insertion order.
func (r *CartRepository) Lines(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, listing_id, quantity, added_at, updated_at
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY added_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.UserID, &l.ListingID, &l.Quantity, &l.AddedAt, &l.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan cart line")
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cart lines")
	}
	return lines, nil
}

// GetLine returns the buyer's line for a listing, or cart.ErrLineNotFound.
func (r *CartRepository) GetLine(ctx context.Context, userID, listingID string) (*cart.Line, error) {
	var l cart.Line
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, listing_id, quantity, added_at, updated_at
		FROM cart_lines
		WHERE user_id = $1 AND listing_id = $2`, userID, listingID).
		Scan(&l.UserID, &l.ListingID, &l.Quantity, &l.AddedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, errors.Wrap(err, "get cart line")
	}
	return &l, nil
}

// UpsertLine inserts a line or replaces the quantity of an existing one.
func (r *CartRepository) UpsertLine(ctx context.Context, line cart.Line) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_lines (user_id, listing_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, listing_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		line.UserID, line.ListingID, line.Quantity, line.AddedAt, line.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "upsert cart line")
	}
	return nil
}

// DeleteLine removes the buyer's line for a listing. Deleting a missing
// line is not an error.
func (r *CartRepository) DeleteLine(ctx context.Context, userID, listingID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID)
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	return nil
}

// Clear removes every line from the buyer's cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
