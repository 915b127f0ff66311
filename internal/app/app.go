package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/flashsale-storefront/internal/api"
	"github.com/xenking/flashsale-storefront/internal/catalog"
	"github.com/xenking/flashsale-storefront/internal/domain/cart"
	"github.com/xenking/flashsale-storefront/internal/domain/checkout"
	"github.com/xenking/flashsale-storefront/internal/domain/session"
	"github.com/xenking/flashsale-storefront/internal/repository"
	"github.com/xenking/flashsale-storefront/internal/upstream"
	"github.com/xenking/flashsale-storefront/pkg/health"
	"github.com/xenking/flashsale-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Catalog read path: repository behind the known-product filter.
	productRepo := repository.NewProductRepository(pool)
	catalogSvc := catalog.NewProvider(productRepo, productRepo)
	if err := catalogSvc.Rebuild(ctx); err != nil {
		return errors.Wrap(err, "build product filter")
	}
	catalogSvc.StartRefresh(ctx, cfg.Catalog.RefreshInterval)

	// Session carts and their eviction janitor.
	carts := cart.NewStore(cfg.Cart.TTL)
	carts.StartJanitor(ctx, cfg.Cart.JanitorInterval)

	// External order service client and the checkout flow on top of it.
	ordersClient := upstream.NewOrders(cfg.OrderServiceURL)
	checkoutSvc := checkout.NewService(session.ContextGate{}, ordersClient)

	verifier := session.NewTokenVerifier([]byte(cfg.SessionSecret))

	// HTTP handlers.
	h := api.NewHandler(
		api.HandlerConfig{
			ImageBaseURL:  cfg.ImageBaseURL,
			SecureCookies: cfg.SecureCookies,
		},
		catalogSvc,
		carts,
		checkoutSvc,
		ordersClient,
		verifier.Verify,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

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
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
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
