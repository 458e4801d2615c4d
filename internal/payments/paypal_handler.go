package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

type payPalOrders interface {
	CreateOrder(ctx context.Context, params CheckoutParams) (*PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*PayPalOrder, error)
}

// PayPalHandler serves the wizard's create-order / capture-order pair.
type PayPalHandler struct {
	service   *Service
	orders    payPalOrders
	processed processedTracker
	logger    *logging.Logger
}

func NewPayPalHandler(service *Service, orders payPalOrders, processed processedTracker, logger *logging.Logger) *PayPalHandler {
	if service == nil {
		panic("payments: service required")
	}
	if orders == nil {
		panic("payments: paypal client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PayPalHandler{service: service, orders: orders, processed: processed, logger: logger}
}

func (h *PayPalHandler) Routes(r chi.Router) {
	r.Post("/paypal/create-order", h.CreateOrder)
	r.Post("/paypal/capture-order/{orderID}", h.CaptureOrder)
}

func (h *PayPalHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid payload")
		return
	}
	paymentType, err := quote.ParsePaymentType(req.PaymentType)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	ctx := r.Context()
	p, b, err := h.service.Begin(ctx, req.bookingID(), paymentType, ProviderPayPal)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	order, err := h.orders.CreateOrder(ctx, CheckoutParams{
		PaymentID:     p.ID,
		BookingID:     b.ID,
		PaymentType:   paymentType,
		Amount:        p.Amount,
		Description:   paymentDescription(b, paymentType),
		CustomerEmail: b.Client.Email,
	})
	if err != nil {
		respond.Error(w, h.logger, fmt.Errorf("payments: paypal create order: %w: %w", booking.ErrPaymentProvider, err))
		return
	}
	if err := h.service.Attach(ctx, p.ID, order.ID); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Info("paypal order created", "booking_id", b.ID, "payment_id", p.ID, "order_id", order.ID)
	respond.JSON(w, http.StatusOK, map[string]any{
		"id":           order.ID,
		"status":       order.Status,
		"payment_id":   p.ID.String(),
		"payment_type": p.Type,
		"amount":       p.Amount,
	})
}

func (h *PayPalHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		respond.BadRequest(w, "missing order id")
		return
	}
	ctx := r.Context()

	if h.processed != nil {
		done, err := h.processed.AlreadyProcessed(ctx, ProviderPayPal, orderID)
		if err != nil {
			respond.Error(w, h.logger, fmt.Errorf("payments: processed lookup: %w: %w", booking.ErrPersistence, err))
			return
		}
		if done {
			respond.JSON(w, http.StatusOK, map[string]any{"success": true, "orderId": orderID})
			return
		}
	}

	p, err := h.service.PaymentByProviderRef(ctx, ProviderPayPal, orderID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	order, err := h.orders.CaptureOrder(ctx, orderID)
	if err != nil {
		respond.Error(w, h.logger, fmt.Errorf("payments: paypal capture: %w: %w", booking.ErrPaymentProvider, err))
		return
	}
	if order.Status != "COMPLETED" {
		h.logger.Warn("paypal capture not completed", "order_id", orderID, "status", order.Status)
		respond.JSON(w, http.StatusPaymentRequired, map[string]any{"success": false, "status": order.Status})
		return
	}
	if custom := order.CustomID(); custom != "" {
		if id, err := uuid.Parse(custom); err == nil && id != p.ID {
			h.logger.Warn("paypal custom id mismatch", "order_id", orderID, "custom_id", custom, "payment_id", p.ID)
		}
	}

	b, err := h.service.Complete(ctx, p, orderID, order.CapturedAmount(), h.service.now())
	if err != nil && !errors.Is(err, booking.ErrSnapshotLocked) {
		respond.Error(w, h.logger, err)
		return
	}
	if h.processed != nil {
		if _, err := h.processed.MarkProcessed(ctx, ProviderPayPal, orderID); err != nil {
			h.logger.Error("failed to record processed paypal order", "error", err, "order_id", orderID)
		}
	}
	resp := map[string]any{"success": true, "orderId": orderID, "captureId": order.CaptureID()}
	if b != nil {
		resp["payment_status"] = b.PaymentStatus()
		resp["remaining_balance"] = b.RemainingBalance()
	}
	respond.JSON(w, http.StatusOK, resp)
}
