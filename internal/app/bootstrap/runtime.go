package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/bridal-quote-platform/internal/config"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/notify"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to Postgres, or returns nil when no URL is set
// or the database is unreachable. Callers fall back to in-memory stores.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildEmailSender picks the outbound mail provider. EMAIL_PROVIDER may be
// sendgrid, ses, stub, or auto (SendGrid, then SES, then the log stub).
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	sendGrid := func() notify.EmailSender {
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if s == nil {
			return nil
		}
		return s
	}
	ses := func() notify.EmailSender {
		if sesClient == nil || strings.TrimSpace(cfg.SESFromEmail) == "" {
			return nil
		}
		return notify.NewSESSender(sesClient, notify.SESConfig{FromEmail: cfg.SESFromEmail, FromName: cfg.SendGridFromName}, logger)
	}

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		sender = sendGrid()
	case "ses":
		sender = ses()
	case "stub", "log":
	default:
		if sender = sendGrid(); sender == nil {
			sender = ses()
		}
	}
	if sender == nil {
		logger.Warn("no email provider configured; emails will be logged", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger)
	}
	return sender
}

// BuildDeliveryHandler publishes outbox events to SQS when a queue is
// configured and logs them otherwise.
func BuildDeliveryHandler(cfg *appconfig.Config, sqsClient *sqs.Client, logger *logging.Logger) events.DeliveryHandler {
	if sqsClient != nil && strings.TrimSpace(cfg.EventsQueueURL) != "" {
		return events.NewSQSPublisher(sqsClient, cfg.EventsQueueURL)
	}
	return events.NewLogHandler(logger)
}
