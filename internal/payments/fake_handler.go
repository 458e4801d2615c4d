package payments

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// FakePaymentsHandler exposes a tiny demo UI to "complete" payments without Stripe.
// Only mount this handler when ALLOW_FAKE_PAYMENTS=true.
type FakePaymentsHandler struct {
	service    *Service
	processed  processedTracker
	successURL string
	logger     *logging.Logger
}

func NewFakePaymentsHandler(service *Service, processed processedTracker, successURL string, logger *logging.Logger) *FakePaymentsHandler {
	if service == nil {
		panic("payments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FakePaymentsHandler{
		service:    service,
		processed:  processed,
		successURL: strings.TrimSpace(successURL),
		logger:     logger,
	}
}

func (h *FakePaymentsHandler) Routes(r chi.Router) {
	r.Get("/payments/fake/{paymentID}", h.HandleCheckout)
	r.Post("/payments/fake/{paymentID}/complete", h.HandleComplete)
	r.Get("/payments/fake/{paymentID}/success", h.HandleSuccess)
}

func (h *FakePaymentsHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parseUUIDParam(w, r, "paymentID")
	if !ok {
		return
	}
	p, err := h.service.Payment(r.Context(), paymentID)
	if err != nil {
		http.Error(w, "payment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Demo Checkout</title>
    <style>
      body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Ubuntu,Cantarell,Noto Sans,sans-serif;max-width:680px;margin:40px auto;padding:0 16px;}
      .card{border:1px solid #e5e7eb;border-radius:12px;padding:18px;}
      .btn{display:inline-block;background:#111827;color:#fff;padding:12px 16px;border-radius:10px;text-decoration:none;border:0;cursor:pointer;}
      .muted{color:#6b7280;font-size:14px;}
      code{background:#f3f4f6;padding:2px 6px;border-radius:6px;}
    </style>
  </head>
  <body>
    <h1>Demo Checkout</h1>
    <div class="card">
      <p><strong>%s:</strong> %s</p>
      <p class="muted">This is a demo-only payment page (no real payment is processed).</p>
      <form method="POST" action="/payments/fake/%s/complete">
        <button class="btn" type="submit">Complete Payment</button>
      </form>
      <p class="muted">Booking: <code>%s</code></p>
    </div>
  </body>
</html>`, html.EscapeString(paymentDescription(nil, p.Type)), p.Amount.FormatCAD(), p.ID, html.EscapeString(p.BookingID))
}

func (h *FakePaymentsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parseUUIDParam(w, r, "paymentID")
	if !ok {
		return
	}
	p, err := h.service.Payment(r.Context(), paymentID)
	if err != nil {
		http.Error(w, "payment not found", http.StatusNotFound)
		return
	}

	key := "fake:" + paymentID.String()
	already := false
	if h.processed != nil {
		if done, err := h.processed.AlreadyProcessed(r.Context(), ProviderFake, key); err == nil {
			already = done
		}
	}
	if !already {
		if _, err := h.service.Complete(r.Context(), p, key, 0, h.service.now()); err != nil && !terminal(err) {
			h.logger.Error("fake payment completion failed", "error", err, "payment_id", paymentID)
			http.Error(w, "failed to complete payment", http.StatusInternalServerError)
			return
		}
		if h.processed != nil {
			if _, err := h.processed.MarkProcessed(r.Context(), ProviderFake, key); err != nil {
				h.logger.Warn("payments: failed to record processed fake payment", "error", err, "payment_id", paymentID)
			}
		}
	}

	target := fmt.Sprintf("/payments/fake/%s/success", paymentID)
	if h.successURL != "" {
		target = withSessionPlaceholder(h.successURL, p.BookingID)
		target = strings.Replace(target, "{CHECKOUT_SESSION_ID}", key, 1)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *FakePaymentsHandler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parseUUIDParam(w, r, "paymentID")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Payment Completed</title>
  </head>
  <body>
    <h1>Payment Completed</h1>
    <p>Thanks, your demo payment is marked as paid.</p>
    <p>Payment ID: <code>%s</code></p>
  </body>
</html>`, paymentID)
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return parsed, true
}
