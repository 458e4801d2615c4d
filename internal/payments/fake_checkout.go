package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// FakeCheckoutService is a dev/demo checkout provider that generates an internal URL
// and lets the client "complete" a payment without Stripe credentials.
//
// This MUST be gated by configuration (ALLOW_FAKE_PAYMENTS) and should never be
// enabled in production.
type FakeCheckoutService struct {
	publicBaseURL string
	logger        *logging.Logger
}

func NewFakeCheckoutService(publicBaseURL string, logger *logging.Logger) *FakeCheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeCheckoutService{
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		logger:        logger,
	}
}

func (s *FakeCheckoutService) CreatePaymentLink(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error) {
	_ = ctx
	if params.PaymentID == uuid.Nil {
		return nil, fmt.Errorf("payments: fake checkout requires payment id")
	}
	if s.publicBaseURL == "" {
		return nil, fmt.Errorf("payments: fake checkout requires PUBLIC_BASE_URL")
	}
	if !isValidBaseURL(s.publicBaseURL) {
		return nil, fmt.Errorf("payments: fake checkout PUBLIC_BASE_URL must be an absolute http(s) URL")
	}

	s.logger.Debug("fake checkout created", "payment_id", params.PaymentID, "booking_id", params.BookingID)
	return &CheckoutResponse{
		URL:        fmt.Sprintf("%s/payments/fake/%s", s.publicBaseURL, params.PaymentID),
		ProviderID: "fake:" + params.PaymentID.String(),
	}, nil
}

func isValidBaseURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
