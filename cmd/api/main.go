package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/bridal-quote-platform/cmd/mainconfig"
	"github.com/wolfman30/bridal-quote-platform/internal/api/router"
	"github.com/wolfman30/bridal-quote-platform/internal/app/bootstrap"
	"github.com/wolfman30/bridal-quote-platform/internal/availability"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	appconfig "github.com/wolfman30/bridal-quote-platform/internal/config"
	"github.com/wolfman30/bridal-quote-platform/internal/draftstore"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/bridal-quote-platform/internal/http/middleware"
	"github.com/wolfman30/bridal-quote-platform/internal/notify"
	"github.com/wolfman30/bridal-quote-platform/internal/observability/metrics"
	"github.com/wolfman30/bridal-quote-platform/internal/payments"
	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
	"github.com/wolfman30/bridal-quote-platform/migrations"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bridal-quote-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := dependencies{
		pool:  bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger),
		redis: bootstrap.BuildRedisClient(ctx, cfg, logger, true),
	}
	defer deps.close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("AWS config unavailable; S3, SQS and SES disabled", "error", err)
	} else {
		deps.aws = mainconfig.NewAWSClients(awsCfg, cfg)
	}

	metricsHandler, quoteMetrics := setupMetrics()
	a, err := buildApp(ctx, cfg, deps, quoteMetrics, metricsHandler, logger)
	if err != nil {
		return err
	}

	sup := bootstrap.NewSupervisor(logger)
	if a.deliverer != nil {
		sup.Go(ctx, "outbox", a.deliverer.Start)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		sup.Wait(5 * time.Second)
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	sup.Wait(10 * time.Second)
	logger.Info("server stopped")
	return nil
}

// dependencies are the optional backing services. Any of them may be nil,
// in which case the API runs on in-memory stores.
type dependencies struct {
	pool  *pgxpool.Pool
	redis *redis.Client
	aws   *mainconfig.AWSClients
}

func (d dependencies) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

type app struct {
	handler   http.Handler
	deliverer *events.Deliverer
}

// processedTracker mirrors the payments dedupe contract so a missing
// database passes a true nil.
type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

func buildApp(ctx context.Context, cfg *appconfig.Config, deps dependencies, quoteMetrics *metrics.QuoteMetrics, metricsHandler http.Handler, logger *logging.Logger) (*app, error) {
	table, err := pricing.LoadRateTable(cfg.RateTablePath)
	if err != nil {
		return nil, fmt.Errorf("load rate table: %w", err)
	}
	loc := cfg.Location()
	gate := availability.NewGate(cfg.MinAdvanceDays, cfg.MaxAdvanceDays, loc)

	var (
		bookingRepo bookings.Repository
		paymentRepo interface {
			payments.Store
			payments.ScreenshotStore
		}
		processed processedTracker
		deliverer *events.Deliverer
	)
	if deps.pool != nil {
		bookingRepo = bookings.NewPostgresRepository(deps.pool)
		paymentRepo = payments.NewRepository(deps.pool)
		processed = events.NewProcessedStore(deps.pool)
		deliverer = events.NewDeliverer(events.NewOutboxStore(deps.pool), bootstrap.BuildDeliveryHandler(cfg, deps.sqsClient(), logger), logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
	} else {
		logger.Warn("DATABASE_URL not set or unreachable; using in-memory stores")
		bookingRepo = bookings.NewInMemoryRepository()
		paymentRepo = payments.NewInMemoryStore()
	}

	email := bootstrap.BuildEmailSender(cfg, deps.sesClient(), logger)
	bookingSvc := bookings.NewService(bookingRepo, pricing.NewCalculator(table), gate, logger).
		WithMetrics(quoteMetrics).
		WithAnalytics(notify.MultiSink{notify.NewLogSink(logger), notify.NewMetricsSink(quoteMetrics)}).
		WithQuoteBaseURL(cfg.QuoteBaseURL)
	if cfg.StudioEmail != "" {
		bookingSvc.WithNotifier(notify.MultiNotifier{notify.NewLogNotifier(logger), notify.NewEmailNotifier(email, cfg.StudioEmail)})
		bookingSvc.WithStudioInbox(email, cfg.StudioEmail)
	}
	bookingSvc.WithPaymentMailer(notify.NewService(email, cfg.StudioEmail, loc, logger))

	var velocity *payments.VelocityChecker
	if deps.redis != nil {
		velocity = payments.NewVelocityChecker(deps.redis, payments.VelocityConfig{
			MaxCheckoutsPerBooking: cfg.CheckoutVelocityMax,
			CheckoutWindowHours:    cfg.CheckoutVelocityWindow,
			MaxUploadsPerBooking:   cfg.UploadVelocityMax,
			UploadWindowHours:      cfg.UploadVelocityWindow,
			EnableCheckoutCheck:    cfg.CheckoutVelocityMax > 0,
			EnableUploadCheck:      cfg.UploadVelocityMax > 0,
		}, logger)
	}
	paymentSvc := payments.NewService(bookingSvc, paymentRepo, logger).WithVelocity(velocity)

	routerCfg := &router.Config{
		Logger:             logger,
		Bookings:           bookings.NewHandler(bookingSvc, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		AdminAuthIssuer:    cfg.AdminJWTIssuer,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       map[string]router.HealthCheck{},
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimiter = httpmiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Card checkout.
	var checkout payments.CheckoutProvider
	provider := payments.ResolveCheckoutProvider(cfg.CheckoutMode, cfg.StripeSecretKey != "", cfg.AllowFakePayments)
	switch provider {
	case payments.ProviderStripe:
		checkout = payments.NewStripeCheckoutService(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL, logger)
	case payments.ProviderFake:
		if cfg.IsProduction() {
			logger.Warn("fake payments enabled in production")
		}
		checkout = payments.NewFakeCheckoutService(cfg.PublicBaseURL, logger)
		routerCfg.FakePayments = payments.NewFakePaymentsHandler(paymentSvc, processed, cfg.StripeSuccessURL, logger)
	default:
		logger.Warn("card checkout disabled", "mode", cfg.CheckoutMode)
	}
	routerCfg.Checkout = payments.NewCheckoutHandler(paymentSvc, checkout, provider, logger)
	if cfg.StripeWebhookSecret != "" {
		routerCfg.StripeWebhook = payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc, processed, logger)
	}

	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		client := payments.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, payments.PayPalBaseURL(cfg.PayPalMode), logger)
		routerCfg.PayPal = payments.NewPayPalHandler(paymentSvc, client, processed, logger)
	}

	interacCfg := payments.InteracConfig{
		RecipientEmail: cfg.InteracRecipientEmail,
		Bucket:         cfg.ScreenshotBucket,
		MaxUploadBytes: cfg.ScreenshotMaxBytes,
		URLExpiry:      cfg.ScreenshotURLExpiry,
		AuthBaseURL:    cfg.InteracAuthBaseURL,
		ClientID:       cfg.InteracClientID,
		RedirectURL:    cfg.InteracRedirectURL,
	}
	var interac *payments.InteracService
	if deps.aws != nil {
		interac = payments.NewInteracService(paymentSvc, paymentRepo, deps.aws.S3, interacCfg, logger).
			WithPresigner(deps.aws.Presign)
	} else {
		interac = payments.NewInteracService(paymentSvc, paymentRepo, nil, interacCfg, logger)
	}
	routerCfg.Interac = payments.NewInteracHandler(interac.WithVelocity(velocity), logger)

	if deps.redis != nil {
		routerCfg.Drafts = draftstore.NewHandler(draftstore.NewStore(deps.redis, cfg.DraftTTL), logger)
		routerCfg.HealthChecks["redis"] = func(ctx context.Context) error { return deps.redis.Ping(ctx).Err() }
	}
	if deps.pool != nil {
		sqlDB := stdlib.OpenDBFromPool(deps.pool)
		routerCfg.AdminDeposits = handlers.NewAdminDepositsHandler(sqlDB, loc, logger)
		routerCfg.HealthChecks["postgres"] = deps.pool.Ping
		if want, err := bootstrap.LatestMigrationVersion(migrations.FS); err == nil {
			routerCfg.HealthChecks["schema"] = bootstrap.SchemaCheck(sqlDB, want)
		}
	}

	logger.Info("api wired",
		"database", deps.pool != nil,
		"redis", deps.redis != nil,
		"card_checkout", provider,
		"paypal", routerCfg.PayPal != nil,
		"screenshot_bucket", cfg.ScreenshotBucket,
	)
	return &app{handler: router.New(routerCfg), deliverer: deliverer}, nil
}

func (d dependencies) sqsClient() *sqs.Client {
	if d.aws == nil {
		return nil
	}
	return d.aws.SQS
}

func (d dependencies) sesClient() *sesv2.Client {
	if d.aws == nil {
		return nil
	}
	return d.aws.SES
}

// setupMetrics builds a registry with process collectors and the quote
// metrics.
func setupMetrics() (http.Handler, *metrics.QuoteMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	quoteMetrics := metrics.NewQuoteMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), quoteMetrics
}
