package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// StripeWebhookHandler applies completed checkout sessions to bookings.
type StripeWebhookHandler struct {
	webhookSecret string
	service       *Service
	processed     processedTracker
	logger        *logging.Logger
	now           func() time.Time
}

// NewStripeWebhookHandler creates a new handler for Stripe webhooks.
func NewStripeWebhookHandler(webhookSecret string, service *Service, processed processedTracker, logger *logging.Logger) *StripeWebhookHandler {
	if service == nil {
		panic("payments: service required")
	}
	if processed == nil {
		panic("payments: processed tracker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		service:       service,
		processed:     processed,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if !verifyStripeSignature(h.webhookSecret, payload, sigHeader, h.now()) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if evt.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if processed, err := h.processed.AlreadyProcessed(r.Context(), ProviderStripe, evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if processed {
		w.WriteHeader(http.StatusOK)
		return
	}

	session := evt.Data.Object
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		h.logger.Info("stripe session not paid yet", "event_id", evt.ID, "payment_status", session.PaymentStatus)
		w.WriteHeader(http.StatusOK)
		return
	}
	paymentID, err := uuid.Parse(session.Metadata["payment_id"])
	if err != nil {
		h.logger.Warn("stripe webhook missing payment metadata", "event_id", evt.ID, "metadata", session.Metadata)
		// Acknowledge so Stripe stops retrying; nothing here can be applied.
		w.WriteHeader(http.StatusOK)
		return
	}
	providerRef := session.PaymentIntent
	if providerRef == "" {
		providerRef = session.ID
	}

	ctx := r.Context()
	p, err := h.service.Payment(ctx, paymentID)
	if err == nil {
		_, err = h.service.Complete(ctx, p, providerRef, money.FromCents(session.AmountTotal), time.Unix(evt.Created, 0))
	}
	if err != nil {
		if terminal(err) {
			h.logger.Warn("stripe payment not applied", "error", err, "event_id", evt.ID, "payment_id", paymentID)
			h.markProcessed(r, evt.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("stripe payment failed", "error", err, "event_id", evt.ID, "payment_id", paymentID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.markProcessed(r, evt.ID)
	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) markProcessed(r *http.Request, eventID string) {
	if _, err := h.processed.MarkProcessed(r.Context(), ProviderStripe, eventID); err != nil {
		h.logger.Error("failed to record processed event", "error", err)
	}
}

type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object stripeSessionObject `json:"object"`
	} `json:"data"`
}

// stripeSessionObject is the checkout.session object from the webhook.
type stripeSessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// verifyStripeSignature verifies a Stripe webhook signature.
// Stripe signs with HMAC-SHA256 and sends the signature in the Stripe-Signature header
// as: t=<timestamp>,v1=<signature>[,v0=<test_signature>]
func verifyStripeSignature(secret string, payload []byte, header string, now time.Time) bool {
	if secret == "" {
		return true // bypass for development
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(now.Unix()-ts) > 300 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, payload)))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
