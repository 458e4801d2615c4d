package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/http/middleware"
	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// InteracHandler serves e-transfer info, uploads, and admin verification.
type InteracHandler struct {
	service *InteracService
	logger  *logging.Logger
}

func NewInteracHandler(service *InteracService, logger *logging.Logger) *InteracHandler {
	if service == nil {
		panic("payments: interac service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InteracHandler{service: service, logger: logger}
}

// Routes mounts the public endpoints.
func (h *InteracHandler) Routes(r chi.Router) {
	r.Get("/interac/payment-info/{bookingID}", h.PaymentInfo)
	r.Get("/interac/auth-url", h.AuthURL)
	r.Post("/interac/upload-screenshot", h.UploadScreenshot)
}

// AdminRoutes mounts verification; callers wrap r with admin auth.
func (h *InteracHandler) AdminRoutes(r chi.Router) {
	r.Post("/interac/screenshots/{screenshotID}/verify", h.VerifyScreenshot)
}

func (h *InteracHandler) PaymentInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.PaymentInfo(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

func (h *InteracHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.AuthURL(r.URL.Query().Get("bookingId"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}

func (h *InteracHandler) UploadScreenshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.service.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.JSON(w, http.StatusRequestEntityTooLarge, respond.ErrorBody{Error: "screenshot too large"})
			return
		}
		respond.BadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("screenshot")
	if err != nil {
		respond.Error(w, h.logger, booking.NewFieldError(booking.ErrInvalidDraft, "screenshot", "required"))
		return
	}
	defer file.Close()

	paymentType, err := quote.ParsePaymentType(r.FormValue("paymentType"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	bookingID := strings.TrimSpace(r.FormValue("bookingId"))
	if bookingID == "" {
		respond.Error(w, h.logger, booking.NewFieldError(booking.ErrInvalidDraft, "bookingId", "required"))
		return
	}

	shot, err := h.service.Upload(r.Context(), UploadInput{
		BookingID:   bookingID,
		PaymentType: paymentType,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "screenshot": shot})
}

type verifyRequest struct {
	Approved *bool `json:"approved"`
}

func (h *InteracHandler) VerifyScreenshot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "screenshotID")
	if !ok {
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Approved == nil {
		respond.BadRequest(w, "approved is required")
		return
	}
	reviewer := "admin"
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		reviewer = claims.Subject
	}

	shot, b, err := h.service.Verify(r.Context(), id, *req.Approved, reviewer)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	resp := map[string]any{"success": true, "screenshot": shot}
	if b != nil {
		resp["payment_status"] = b.PaymentStatus()
		resp["remaining_balance"] = b.RemainingBalance()
	}
	respond.JSON(w, http.StatusOK, resp)
}
