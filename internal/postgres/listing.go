package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/listing"
)

var _ listing.Repository = (*ListingRepository)(nil)

// ListingRepository implements listing.Repository backed by PostgreSQL.
// The payee is resolved in SQL: the team's designated payee when the
// listing belongs to a team, the artisan otherwise.
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository returns a ListingRepository that uses the given pool.
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

const listingColumns = `
	l.id, l.artisan_id, l.team_id,
	COALESCE(t.payee_id, l.artisan_id) AS payee_id,
	l.name, l.description, l.category,
	l.raw_price, l.original_price, l.discount_percent, l.selling_price, l.cost_price,
	l.stock_quantity, l.status, l.created_at, l.updated_at`

const listingFrom = ` FROM listings l LEFT JOIN teams t ON t.id = l.team_id`

// List returns all listings, newest first.
func (r *ListingRepository) List(ctx context.Context) ([]listing.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+listingColumns+listingFrom+` ORDER BY l.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list listings")
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetByID returns a single listing. It returns listing.ErrNotFound when no
// matching row exists.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+listingColumns+listingFrom+` WHERE l.id = $1`, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listing.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get listing %q", id)
	}
	return l, nil
}

// GetByIDs returns the listings matching ids in a single query. Missing ids
// are simply absent from the result.
func (r *ListingRepository) GetByIDs(ctx context.Context, ids []string) ([]listing.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+listingColumns+listingFrom+` WHERE l.id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get listings by ids")
	}
	defer rows.Close()

	return scanListings(rows)
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO listings (
			id, artisan_id, team_id, name, description, category,
			raw_price, original_price, discount_percent, selling_price, cost_price,
			stock_quantity, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.ArtisanID, l.TeamID, l.Name, l.Description, l.Category,
		l.RawPrice, l.OriginalPrice, nullDecimal(l.DiscountPercent),
		l.SellingPrice, nullDecimal(l.CostPrice),
		l.StockQuantity, l.Status)
	if err != nil {
		return errors.Wrapf(err, "create listing %q", l.ID)
	}
	return nil
}

// Upsert inserts a listing or rewrites its mutable columns. Used by the
// seeding and bulk-import tools, which must be safe to rerun.
func (r *ListingRepository) Upsert(ctx context.Context, l *listing.Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO listings (
			id, artisan_id, team_id, name, description, category,
			raw_price, original_price, discount_percent, selling_price, cost_price,
			stock_quantity, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			artisan_id = EXCLUDED.artisan_id,
			team_id = EXCLUDED.team_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			raw_price = EXCLUDED.raw_price,
			original_price = EXCLUDED.original_price,
			discount_percent = EXCLUDED.discount_percent,
			selling_price = EXCLUDED.selling_price,
			cost_price = EXCLUDED.cost_price,
			stock_quantity = EXCLUDED.stock_quantity,
			status = EXCLUDED.status,
			updated_at = now()`,
		l.ID, l.ArtisanID, l.TeamID, l.Name, l.Description, l.Category,
		l.RawPrice, l.OriginalPrice, nullDecimal(l.DiscountPercent),
		l.SellingPrice, nullDecimal(l.CostPrice),
		l.StockQuantity, l.Status)
	if err != nil {
		return errors.Wrapf(err, "upsert listing %q", l.ID)
	}
	return nil
}

// Update rewrites a listing's mutable columns.
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings SET
			team_id = $2, name = $3, description = $4, category = $5,
			raw_price = $6, original_price = $7, discount_percent = $8,
			selling_price = $9, cost_price = $10,
			stock_quantity = $11, status = $12, updated_at = now()
		WHERE id = $1`,
		l.ID, l.TeamID, l.Name, l.Description, l.Category,
		l.RawPrice, l.OriginalPrice, nullDecimal(l.DiscountPercent),
		l.SellingPrice, nullDecimal(l.CostPrice),
		l.StockQuantity, l.Status)
	if err != nil {
		return errors.Wrapf(err, "update listing %q", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return listing.ErrNotFound
	}
	return nil
}

// Count returns the total number of listings.
func (r *ListingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM listings`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count listings")
	}
	return n, nil
}

// Latest returns the most recently created listing, or listing.ErrNotFound
// when the catalog is empty.
func (r *ListingRepository) Latest(ctx context.Context) (*listing.Listing, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+listingColumns+listingFrom+` ORDER BY l.created_at DESC LIMIT 1`)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listing.ErrNotFound
		}
		return nil, errors.Wrap(err, "get latest listing")
	}
	return l, nil
}

func scanListing(row pgx.Row) (*listing.Listing, error) {
	var (
		l        listing.Listing
		original decimal.NullDecimal
		discount decimal.NullDecimal
		selling  decimal.NullDecimal
		cost     decimal.NullDecimal
	)
	err := row.Scan(
		&l.ID, &l.ArtisanID, &l.TeamID, &l.PayeeID,
		&l.Name, &l.Description, &l.Category,
		&l.RawPrice, &original, &discount, &selling, &cost,
		&l.StockQuantity, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if original.Valid {
		l.OriginalPrice = original.Decimal
	}
	if selling.Valid {
		l.SellingPrice = selling.Decimal
	}
	if discount.Valid {
		l.DiscountPercent = &discount.Decimal
	}
	if cost.Valid {
		l.CostPrice = &cost.Decimal
	}
	return &l, nil
}

func scanListings(rows pgx.Rows) ([]listing.Listing, error) {
	var out []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan listing")
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate listings")
	}
	return out, nil
}

// nullDecimal adapts an optional decimal to its NULL-aware column type.
func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
