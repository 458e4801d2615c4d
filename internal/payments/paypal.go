package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

var paypalTracer = otel.Tracer("bridal.internal.payments.paypal")

// PayPal API hosts.
const (
	PayPalSandboxURL = "https://api-m.sandbox.paypal.com"
	PayPalLiveURL    = "https://api-m.paypal.com"
)

// PayPalClient talks to the PayPal REST v2 orders API. Access tokens are
// cached until shortly before they expire.
type PayPalClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// PayPalOrder is the subset of a v2 order the booking flow reads.
type PayPalOrder struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	PurchaseUnits []payPalPurchaseUnit `json:"purchase_units"`
}

type payPalPurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Payments    struct {
		Captures []struct {
			ID     string       `json:"id"`
			Status string       `json:"status"`
			Amount payPalAmount `json:"amount"`
		} `json:"captures"`
	} `json:"payments"`
}

type payPalUnitRequest struct {
	ReferenceID string       `json:"reference_id"`
	CustomID    string       `json:"custom_id"`
	Description string       `json:"description,omitempty"`
	Amount      payPalAmount `json:"amount"`
}

type payPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// CaptureID returns the first capture id, if the order was captured.
func (o *PayPalOrder) CaptureID() string {
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}

// CapturedAmount sums completed captures.
func (o *PayPalOrder) CapturedAmount() money.Amount {
	var total money.Amount
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.Status != "" && c.Status != "COMPLETED" {
				continue
			}
			if a, err := money.Parse(c.Amount.Value); err == nil {
				total += a
			}
		}
	}
	return total
}

// CustomID returns the payment id stored on the order at creation.
func (o *PayPalOrder) CustomID() string {
	for _, pu := range o.PurchaseUnits {
		if pu.CustomID != "" {
			return pu.CustomID
		}
	}
	return ""
}

func NewPayPalClient(clientID, clientSecret, baseURL string, logger *logging.Logger) *PayPalClient {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = PayPalSandboxURL
	}
	return &PayPalClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// PayPalBaseURL maps PAYPAL_MODE onto an API host.
func PayPalBaseURL(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), "live") {
		return PayPalLiveURL
	}
	return PayPalSandboxURL
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("payments: paypal token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payments: paypal token http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("payments: paypal token status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("payments: paypal token decode: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("payments: paypal token missing")
	}
	ttl := time.Duration(parsed.ExpiresIn-60) * time.Second
	if ttl < 0 {
		ttl = 0
	}
	c.token = parsed.AccessToken
	c.tokenExpiry = c.now().Add(ttl)
	return c.token, nil
}

// CreateOrder opens a CAPTURE-intent order for params.Amount.
func (c *PayPalClient) CreateOrder(ctx context.Context, params CheckoutParams) (*PayPalOrder, error) {
	ctx, span := paypalTracer.Start(ctx, "paypal.create_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.booking_id", params.BookingID),
		attribute.Int64("bridal.amount_cents", params.Amount.Cents()),
	)

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []payPalUnitRequest{{
			ReferenceID: params.BookingID,
			CustomID:    params.PaymentID.String(),
			Description: params.Description,
			Amount:      payPalAmount{CurrencyCode: money.Currency, Value: params.Amount.String()},
		}},
	}
	var order PayPalOrder
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", params.PaymentID.String(), body, &order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved order.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	ctx, span := paypalTracer.Start(ctx, "paypal.capture_order")
	defer span.End()
	span.SetAttributes(attribute.String("paypal.order_id", orderID))

	var order PayPalOrder
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, "capture-"+orderID, struct{}{}, &order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &order, nil
}

func (c *PayPalClient) do(ctx context.Context, method, path, requestID string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("payments: paypal marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("payments: paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: paypal http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("payments: paypal api status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: paypal decode: %w", err)
	}
	return nil
}
