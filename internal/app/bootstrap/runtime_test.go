package bootstrap

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/bridal-quote-platform/internal/config"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/notify"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func TestBuildRedisClient(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, quietLogger(), true); client != nil {
		t.Fatalf("expected nil client without address")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "  ", quietLogger()); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildEmailSender(t *testing.T) {
	sesClient := sesv2.New(sesv2.Options{Region: "ca-central-1"})

	cases := []struct {
		name string
		cfg  appconfig.Config
		ses  *sesv2.Client
		want string
	}{
		{name: "auto prefers sendgrid", cfg: appconfig.Config{EmailProvider: "auto", SendGridAPIKey: "SG.key", SESFromEmail: "studio@example.com"}, ses: sesClient, want: "sendgrid"},
		{name: "auto falls back to ses", cfg: appconfig.Config{EmailProvider: "auto", SESFromEmail: "studio@example.com"}, ses: sesClient, want: "ses"},
		{name: "auto without credentials", cfg: appconfig.Config{EmailProvider: "auto"}, want: "stub"},
		{name: "ses without client", cfg: appconfig.Config{EmailProvider: "ses", SESFromEmail: "studio@example.com"}, want: "stub"},
		{name: "sendgrid forced", cfg: appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.key"}, want: "sendgrid"},
		{name: "stub forced", cfg: appconfig.Config{EmailProvider: "stub", SendGridAPIKey: "SG.key"}, want: "stub"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := BuildEmailSender(&tc.cfg, tc.ses, quietLogger())
			var got string
			switch sender.(type) {
			case *notify.SendGridSender:
				got = "sendgrid"
			case *notify.SESSender:
				got = "ses"
			case *notify.StubEmailSender:
				got = "stub"
			default:
				t.Fatalf("unexpected sender %T", sender)
			}
			if got != tc.want {
				t.Fatalf("expected %s sender, got %s", tc.want, got)
			}
		})
	}
}

func TestBuildDeliveryHandler(t *testing.T) {
	logger := quietLogger()
	if _, ok := BuildDeliveryHandler(&appconfig.Config{}, nil, logger).(*events.LogHandler); !ok {
		t.Fatalf("expected log handler without queue")
	}

	client := sqs.NewFromConfig(aws.Config{Region: "ca-central-1"})
	cfg := &appconfig.Config{EventsQueueURL: "http://localhost:4566/000000000000/bridal-events"}
	if _, ok := BuildDeliveryHandler(cfg, client, logger).(*events.SQSPublisher); !ok {
		t.Fatalf("expected sqs publisher when queue configured")
	}
	if _, ok := BuildDeliveryHandler(cfg, nil, logger).(*events.LogHandler); !ok {
		t.Fatalf("expected log handler without client")
	}
}
