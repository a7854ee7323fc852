// Command seed-db populates the database with demo teams and listings.
// Prices are assigned deterministically from the listing index so reruns
// produce the same catalog, then normalized the same way the API does it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/pricing"
	"github.com/artisanedge/marketplace/internal/postgres"
)

var teams = []listing.Team{
	{ID: "team-terracotta", Name: "Terracotta Collective", PayeeID: "artisan-01"},
	{ID: "team-loomworks", Name: "Loomworks Guild", PayeeID: "artisan-03"},
}

var artisans = []string{
	"artisan-01", "artisan-02", "artisan-03",
	"artisan-04", "artisan-05", "artisan-06",
}

var categories = []string{
	"pottery", "textiles", "woodwork", "jewelry", "metalwork", "paintings",
}

func main() {
	var (
		databaseURL string
		count       int
		rateINR     int
		minINR      int
		maxINR      int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&count, "listings", 24, "number of demo listings to seed")
	flag.IntVar(&rateINR, "currency-rate", 83, "INR per base currency unit")
	flag.IntVar(&minINR, "min-price-inr", 500, "minimum listing price in INR")
	flag.IntVar(&maxINR, "max-price-inr", 5000, "maximum listing price in INR")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rate := decimal.NewFromInt(int64(rateINR))
	bounds := pricing.NewBounds(rate,
		decimal.NewFromInt(int64(minINR)),
		decimal.NewFromInt(int64(maxINR)))

	if err := run(ctx, databaseURL, count, rate, bounds, minINR, maxINR); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, count int, rate decimal.Decimal, bounds pricing.Bounds, minINR, maxINR int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	teamRepo := postgres.NewTeamRepository(pool)
	listingRepo := postgres.NewListingRepository(pool)

	if err := seedTeams(ctx, teamRepo); err != nil {
		return errors.Wrap(err, "seed teams")
	}

	if err := seedListings(ctx, listingRepo, count, rate, bounds, minINR, maxINR); err != nil {
		return errors.Wrap(err, "seed listings")
	}

	return nil
}

func seedTeams(ctx context.Context, repo *postgres.TeamRepository) error {
	slog.Info("upserting teams", slog.Int("count", len(teams)))

	for i := range teams {
		if err := repo.Upsert(ctx, &teams[i]); err != nil {
			return err
		}
		slog.Info("upserted team", slog.String("id", teams[i].ID), slog.String("name", teams[i].Name))
	}

	return nil
}

func seedListings(ctx context.Context, repo *postgres.ListingRepository, count int, rate decimal.Decimal, bounds pricing.Bounds, minINR, maxINR int) error {
	slog.Info("upserting listings", slog.Int("count", count))

	window := int64(maxINR - minINR + 1)

	for i := 1; i <= count; i++ {
		// Deterministic INR price and discount per index.
		priceINR := int64(minINR) + (int64(i)*1237)%window
		raw := decimal.NewFromInt(priceINR).DivRound(rate, 2)

		l := listing.Listing{
			ID:            fmt.Sprintf("demo-listing-%03d", i),
			ArtisanID:     artisans[i%len(artisans)],
			Name:          fmt.Sprintf("Handcrafted %s #%d", categories[i%len(categories)], i),
			Description:   "Demo listing seeded for local development.",
			Category:      categories[i%len(categories)],
			RawPrice:      raw,
			StockQuantity: 5 + (i*7)%40,
			Status:        listing.StatusActive,
		}

		// Every third listing is discounted.
		if i%3 != 0 {
			disc := decimal.NewFromInt(int64(5 + (i*97)%36))
			l.DiscountPercent = &disc
		}

		// Listings by the team leads sell through their teams.
		for _, t := range teams {
			if t.PayeeID == l.ArtisanID {
				teamID := t.ID
				l.TeamID = &teamID
			}
		}

		if err := l.NormalizePricing(bounds); err != nil {
			return errors.Wrapf(err, "normalize listing %s", l.ID)
		}

		if err := repo.Upsert(ctx, &l); err != nil {
			return err
		}

		slog.Info("upserted listing",
			slog.String("id", l.ID),
			slog.String("selling_price", l.SellingPrice.String()),
		)
	}

	return nil
}
