package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artisanedge/marketplace/internal/domain/cart"
	"github.com/artisanedge/marketplace/internal/domain/checkout"
	"github.com/artisanedge/marketplace/internal/domain/pricing"
	"github.com/artisanedge/marketplace/internal/handler"
	"github.com/artisanedge/marketplace/internal/postgres"
	"github.com/artisanedge/marketplace/pkg/health"
	"github.com/artisanedge/marketplace/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Repositories.
	listingRepo := postgres.NewListingRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	stockLedger := postgres.NewStockLedger(pool)
	checkoutStore := postgres.NewCheckoutStore(pool)

	// Immutable pricing and charge policy from configuration.
	rate := decimal.NewFromInt(int64(cfg.Pricing.CurrencyRate))
	fees := checkout.NewFees(rate,
		decimal.NewFromInt(int64(cfg.Checkout.ShippingFeeINR)),
		decimal.NewFromFloat(cfg.Checkout.TaxPercent))
	bounds := pricing.NewBounds(rate,
		decimal.NewFromInt(int64(cfg.Pricing.MinPriceINR)),
		decimal.NewFromInt(int64(cfg.Pricing.MaxPriceINR)))

	// Domain services.
	cartService := cart.NewService(cartRepo, listingRepo)
	checkoutService := checkout.NewService(cartService, stockLedger, checkoutStore, fees)

	// Health check service, including the catalog connectivity diagnostic.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("catalog", 5*time.Second, health.CatalogCheck(
		listingRepo.Count,
		func(ctx context.Context) error {
			_, err := listingRepo.Latest(ctx)
			return err
		},
	))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP routes.
	h := handler.New(listingRepo, cartService, checkoutService, bounds)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-User-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
