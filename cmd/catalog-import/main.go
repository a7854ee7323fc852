// Command catalog-import ingests a legacy catalog export: one or more
// gzip-compressed JSON-lines files, one listing record per line. Files are
// streamed and decoded concurrently; a bloom filter deduplicates SKUs across
// files (first occurrence wins); prices are normalized before each upsert.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/pricing"
	"github.com/artisanedge/marketplace/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// record is one legacy catalog line.
type record struct {
	SKU             string
	ArtisanID       string
	TeamID          *string
	Name            string
	Description     string
	Category        string
	Price           decimal.Decimal
	OriginalPrice   *decimal.Decimal
	DiscountPercent *decimal.Decimal
	CostPrice       *decimal.Decimal
	Stock           int
}

func main() {
	var (
		dataDir     string
		databaseURL string
		rateINR     int
		minINR      int
		maxINR      int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog-*.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL, bounds); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, bounds pricing.Bounds) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob catalog files")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog-*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewListingRepository(pool)
	teamRepo := postgres.NewTeamRepository(pool)

	// Readers decode lines into records; the single writer deduplicates and
	// upserts, so the bloom filter needs no locking.
	records := make(chan record, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)

	for i, f := range files {
		readers.Go(streamFile(ctx, i, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})
	g.Go(writeRecords(ctx, repo, teamRepo, bounds, records))

	return g.Wait()
}

// streamFile decodes one gzipped JSON-lines file and sends its records.
func streamFile(ctx context.Context, idx int, path string, out chan<- record) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count, bad uint64

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			rec, err := decodeRecord(line)
			if err != nil {
				bad++
				continue
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("read progress", slog.Int("file", idx+1), slog.Uint64("records", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.Uint64("records", count),
			slog.Uint64("malformed", bad),
		)
		return nil
	}
}

// decodeRecord parses one catalog line. Price fields keep their exact
// decimal representation.
func decodeRecord(line []byte) (record, error) {
	var rec record

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			rec.SKU, err = d.Str()
		case "artisan":
			rec.ArtisanID, err = d.Str()
		case "team":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var team string
			if team, err = d.Str(); err == nil && team != "" {
				rec.TeamID = &team
			}
		case "name":
			rec.Name, err = d.Str()
		case "description":
			rec.Description, err = d.Str()
		case "category":
			rec.Category, err = d.Str()
		case "price":
			rec.Price, err = decodeDecimal(d)
		case "originalPrice":
			rec.OriginalPrice, err = decodeOptDecimal(d)
		case "discountPercent":
			rec.DiscountPercent, err = decodeOptDecimal(d)
		case "costPrice":
			rec.CostPrice, err = decodeOptDecimal(d)
		case "stock":
			rec.Stock, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return record{}, err
	}

	if rec.SKU == "" || rec.ArtisanID == "" || rec.Name == "" {
		return record{}, errors.New("missing required field")
	}
	return rec, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	num, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(num.String())
}

func decodeOptDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// writeRecords deduplicates SKUs, normalizes prices, and upserts listings.
func writeRecords(ctx context.Context, repo *postgres.ListingRepository, teamRepo *postgres.TeamRepository, bounds pricing.Bounds, in <-chan record) func() error {
	return func() error {
		// TestAndAdd: a hit means the SKU was already ingested (modulo the
		// filter's false-positive rate).
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		seenTeams := make(map[string]struct{})

		var written, dupes, invalid uint64

		for rec := range in {
			if err := ctx.Err(); err != nil {
				return err
			}

			if filter.TestAndAddString(rec.SKU) {
				dupes++
				continue
			}

			// The export does not carry team records, so referenced teams are
			// created as stubs paying out to the first artisan seen.
			if rec.TeamID != nil {
				if _, ok := seenTeams[*rec.TeamID]; !ok {
					t := listing.Team{ID: *rec.TeamID, Name: *rec.TeamID, PayeeID: rec.ArtisanID}
					if err := teamRepo.EnsureExists(ctx, &t); err != nil {
						return err
					}
					seenTeams[*rec.TeamID] = struct{}{}
				}
			}

			l := listing.Listing{
				ID:              rec.SKU,
				ArtisanID:       rec.ArtisanID,
				TeamID:          rec.TeamID,
				Name:            rec.Name,
				Description:     rec.Description,
				Category:        rec.Category,
				RawPrice:        rec.Price,
				DiscountPercent: rec.DiscountPercent,
				CostPrice:       rec.CostPrice,
				StockQuantity:   rec.Stock,
				Status:          listing.StatusActive,
			}
			if rec.OriginalPrice != nil {
				l.OriginalPrice = *rec.OriginalPrice
			}
			if l.StockQuantity < 0 {
				l.StockQuantity = 0
			}

			if err := l.NormalizePricing(bounds); err != nil {
				invalid++
				continue
			}

			if err := repo.Upsert(ctx, &l); err != nil {
				return errors.Wrapf(err, "upsert listing %s", l.ID)
			}

			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}

		slog.Info("write complete",
			slog.Uint64("written", written),
			slog.Uint64("duplicates", dupes),
			slog.Uint64("invalid", invalid),
		)
		return nil
	}
}
