package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // studio timezone lookups in minimal containers
)

// Config holds all application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Studio
	Timezone       string
	MinAdvanceDays int
	MaxAdvanceDays int
	RateTablePath  string
	QuoteBaseURL   string
	StudioEmail    string

	// HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	AdminJWTSecret     string
	AdminJWTIssuer     string

	// Card checkout
	CheckoutMode        string
	AllowFakePayments   bool
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeSuccessURL    string
	StripeCancelURL     string

	// PayPal
	PayPalClientID     string
	PayPalClientSecret string
	PayPalMode         string

	// Interac e-transfer
	InteracRecipientEmail string
	InteracAuthBaseURL    string
	InteracClientID       string
	InteracRedirectURL    string
	ScreenshotBucket      string
	ScreenshotMaxBytes    int64
	ScreenshotURLExpiry   time.Duration

	// Velocity limits
	CheckoutVelocityMax    int
	CheckoutVelocityWindow int // hours
	UploadVelocityMax      int
	UploadVelocityWindow   int // hours

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DraftTTL      time.Duration

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string

	// Outbox delivery
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		Timezone:       getEnv("STUDIO_TIMEZONE", "America/Toronto"),
		MinAdvanceDays: getEnvAsInt("MIN_ADVANCE_DAYS", 2),
		MaxAdvanceDays: getEnvAsInt("MAX_ADVANCE_DAYS", 0),
		RateTablePath:  getEnv("RATE_TABLE_PATH", ""),
		QuoteBaseURL:   getEnv("QUOTE_BASE_URL", ""),
		StudioEmail:    getEnv("STUDIO_EMAIL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminJWTIssuer:     getEnv("ADMIN_JWT_ISSUER", ""),

		CheckoutMode:        strings.ToLower(strings.TrimSpace(getEnv("PAYMENT_CHECKOUT_MODE", "auto"))),
		AllowFakePayments:   getEnvAsBool("ALLOW_FAKE_PAYMENTS", false),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", ""),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalMode:         getEnv("PAYPAL_MODE", "sandbox"),

		InteracRecipientEmail: getEnv("INTERAC_RECIPIENT_EMAIL", ""),
		InteracAuthBaseURL:    getEnv("INTERAC_AUTH_BASE_URL", ""),
		InteracClientID:       getEnv("INTERAC_CLIENT_ID", ""),
		InteracRedirectURL:    getEnv("INTERAC_REDIRECT_URL", ""),
		ScreenshotBucket:      getEnv("SCREENSHOT_BUCKET", ""),
		ScreenshotMaxBytes:    int64(getEnvAsInt("SCREENSHOT_MAX_BYTES", 10<<20)),
		ScreenshotURLExpiry:   getEnvAsDuration("SCREENSHOT_URL_EXPIRY", 15*time.Minute),

		CheckoutVelocityMax:    getEnvAsInt("CHECKOUT_VELOCITY_MAX", 10),
		CheckoutVelocityWindow: getEnvAsInt("CHECKOUT_VELOCITY_WINDOW_HOURS", 1),
		UploadVelocityMax:      getEnvAsInt("UPLOAD_VELOCITY_MAX", 5),
		UploadVelocityWindow:   getEnvAsInt("UPLOAD_VELOCITY_WINDOW_HOURS", 24),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DraftTTL:      getEnvAsDuration("DRAFT_TTL", 30*24*time.Hour),

		AWSRegion:           getEnv("AWS_REGION", "ca-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Bridal Bookings"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod":
		return true
	}
	return false
}

// Location resolves the studio timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
