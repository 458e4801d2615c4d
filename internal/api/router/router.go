package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/draftstore"
	"github.com/wolfman30/bridal-quote-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/bridal-quote-platform/internal/http/middleware"
	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/payments"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger   *logging.Logger
	Bookings *bookings.Handler
	Drafts   *draftstore.Handler

	Checkout      *payments.CheckoutHandler
	StripeWebhook *payments.StripeWebhookHandler
	PayPal        *payments.PayPalHandler
	Interac       *payments.InteracHandler
	FakePayments  *payments.FakePaymentsHandler

	AdminDeposits *handlers.AdminDepositsHandler

	AdminAuthSecret    string
	AdminAuthIssuer    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Provider callbacks and probes: no rate limit, providers retry on 429.
	r.Group(func(public chi.Router) {
		public.Get("/health", health(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.StripeWebhook != nil {
			public.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
		}
		if cfg.FakePayments != nil {
			cfg.FakePayments.Routes(public)
		}
	})

	// Wizard API.
	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		if cfg.Bookings != nil {
			cfg.Bookings.Routes(api)
		}
		if cfg.Drafts != nil {
			cfg.Drafts.Routes(api)
		}
		if cfg.Checkout != nil {
			cfg.Checkout.Routes(api)
		}
		if cfg.PayPal != nil {
			cfg.PayPal.Routes(api)
		}
		if cfg.Interac != nil {
			cfg.Interac.Routes(api)
		}
	})

	if cfg.AdminAuthSecret != "" && (cfg.Interac != nil || cfg.AdminDeposits != nil) {
		var opts []httpmiddleware.AdminOption
		if cfg.AdminAuthIssuer != "" {
			opts = append(opts, httpmiddleware.WithAdminIssuer(cfg.AdminAuthIssuer))
		}
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, append(opts, httpmiddleware.WithAdminLeeway(30*time.Second))...))
			if cfg.Interac != nil {
				cfg.Interac.AdminRoutes(admin)
			}
			if cfg.AdminDeposits != nil {
				cfg.AdminDeposits.Routes(admin)
			}
		})
	}

	return r
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		respond.JSON(w, status, body)
	}
}
