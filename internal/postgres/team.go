package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanedge/marketplace/internal/domain/listing"
)

// TeamRepository persists artisan teams.
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository returns a TeamRepository that uses the given pool.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// Upsert inserts a team or refreshes its name and payee.
func (r *TeamRepository) Upsert(ctx context.Context, t *listing.Team) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teams (id, name, payee_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			payee_id = EXCLUDED.payee_id`,
		t.ID, t.Name, t.PayeeID)
	if err != nil {
		return errors.Wrapf(err, "upsert team %q", t.ID)
	}
	return nil
}

// EnsureExists inserts a team only when no row with its ID exists, leaving
// an already-configured team untouched.
func (r *TeamRepository) EnsureExists(ctx context.Context, t *listing.Team) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teams (id, name, payee_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Name, t.PayeeID)
	if err != nil {
		return errors.Wrapf(err, "ensure team %q", t.ID)
	}
	return nil
}
