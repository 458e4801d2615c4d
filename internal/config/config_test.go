package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "PAYMENT_CHECKOUT_MODE", "MIN_ADVANCE_DAYS",
		"CORS_ALLOWED_ORIGINS", "STUDIO_TIMEZONE", "SCREENSHOT_MAX_BYTES", "DRAFT_TTL", "PAYPAL_MODE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CheckoutMode != "auto" {
		t.Fatalf("expected auto checkout mode, got %s", cfg.CheckoutMode)
	}
	if cfg.MinAdvanceDays != 2 {
		t.Fatalf("expected min advance 2, got %d", cfg.MinAdvanceDays)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Fatalf("expected wildcard CORS, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ScreenshotMaxBytes != 10<<20 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.ScreenshotMaxBytes)
	}
	if cfg.DraftTTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day draft ttl, got %s", cfg.DraftTTL)
	}
	if cfg.PayPalMode != "sandbox" {
		t.Fatalf("expected sandbox paypal, got %s", cfg.PayPalMode)
	}
	if cfg.IsProduction() {
		t.Fatalf("development must not be production")
	}
	if cfg.Location().String() != "America/Toronto" {
		t.Fatalf("expected Toronto timezone, got %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("PUBLIC_BASE_URL", "https://api.studio.example/")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("PAYMENT_CHECKOUT_MODE", " Stripe ")
	t.Setenv("ALLOW_FAKE_PAYMENTS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://book.studio.example, ,https://*.studio.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SCREENSHOT_URL_EXPIRY", "5m")
	t.Setenv("CHECKOUT_VELOCITY_MAX", "3")
	t.Setenv("MIN_ADVANCE_DAYS", "7")
	t.Setenv("STUDIO_TIMEZONE", "America/Vancouver")
	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production")
	}
	if cfg.PublicBaseURL != "https://api.studio.example" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.CheckoutMode != "stripe" {
		t.Fatalf("expected normalized checkout mode, got %q", cfg.CheckoutMode)
	}
	if !cfg.AllowFakePayments {
		t.Fatalf("expected fake payments allowed")
	}
	want := []string{"https://book.studio.example", "https://*.studio.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("expected %v, got %v", want, cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.ScreenshotURLExpiry != 5*time.Minute {
		t.Fatalf("expected 5m expiry, got %s", cfg.ScreenshotURLExpiry)
	}
	if cfg.CheckoutVelocityMax != 3 {
		t.Fatalf("expected velocity override, got %d", cfg.CheckoutVelocityMax)
	}
	if cfg.MinAdvanceDays != 7 {
		t.Fatalf("expected min advance override, got %d", cfg.MinAdvanceDays)
	}
	if cfg.Location().String() != "America/Vancouver" {
		t.Fatalf("expected Vancouver timezone, got %s", cfg.Location())
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("REDIS_TLS", "maybe")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	cfg := Load()
	if cfg.RateLimitBurst != 20 {
		t.Fatalf("expected default burst, got %d", cfg.RateLimitBurst)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls default false")
	}
	if cfg.OutboxPollInterval != 5*time.Second {
		t.Fatalf("expected default poll interval, got %s", cfg.OutboxPollInterval)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}
