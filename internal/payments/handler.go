package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// CheckoutHandler opens hosted card checkouts for deposits and balances.
type CheckoutHandler struct {
	service  *Service
	checkout CheckoutProvider
	provider string
	logger   *logging.Logger
}

// checkoutRequest accepts the booking id in any of the shapes the wizard
// sends: top level, or nested under the saved booking.
type checkoutRequest struct {
	BookingID    string `json:"bookingId"`
	BookingIDAlt string `json:"booking_id"`
	Booking      struct {
		BookingID string `json:"booking_id"`
		UniqueID  string `json:"unique_id"`
	} `json:"booking"`
	PaymentType string `json:"paymentType"`
	SuccessURL  string `json:"success_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

func (r checkoutRequest) bookingID() string {
	for _, v := range []string{r.BookingID, r.BookingIDAlt, r.Booking.BookingID, r.Booking.UniqueID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type checkoutResponse struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Provider    string            `json:"provider"`
	PaymentID   string            `json:"payment_id"`
	PaymentType quote.PaymentType `json:"payment_type"`
	Amount      money.Amount      `json:"amount"`
}

// NewCheckoutHandler serves card checkout through checkout, which is either
// Stripe or the fake provider. provider names it in payment records.
func NewCheckoutHandler(service *Service, checkout CheckoutProvider, provider string, logger *logging.Logger) *CheckoutHandler {
	if service == nil {
		panic("payments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutHandler{service: service, checkout: checkout, provider: provider, logger: logger}
}

func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Post("/stripe/create-checkout-session", h.createSession(quote.PaymentDeposit))
	r.Post("/stripe/create-remaining-payment-session", h.createSession(quote.PaymentRemainingBalance))
}

func (h *CheckoutHandler) createSession(defaultType quote.PaymentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, "invalid payload")
			return
		}
		paymentType := defaultType
		if strings.TrimSpace(req.PaymentType) != "" {
			parsed, err := quote.ParsePaymentType(req.PaymentType)
			if err != nil {
				respond.Error(w, h.logger, err)
				return
			}
			paymentType = parsed
		}

		p, link, err := h.service.Checkout(r.Context(), h.provider, h.checkout, req.bookingID(), paymentType,
			req.SuccessURL, req.CancelURL)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, checkoutResponse{
			ID:          link.ProviderID,
			URL:         link.URL,
			Provider:    h.provider,
			PaymentID:   p.ID.String(),
			PaymentType: p.Type,
			Amount:      p.Amount,
		})
	}
}

func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	if errors.Is(err, ErrTooManyAttempts) {
		respond.JSON(w, http.StatusTooManyRequests, respond.ErrorBody{Error: "too many payment attempts, try again later"})
		return
	}
	respond.Error(w, logger, err)
}
