package bookings

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// Handler exposes booking and quote endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the booking endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/bookings", h.CreateBooking)
	r.Post("/bookings/lookup-by-email", h.LookupByEmail)
	r.Get("/bookings/lookup/{bookingID}", h.Lookup)
	r.Get("/bookings/{bookingID}/packages", h.Packages)
	r.Put("/bookings/{bookingID}/quote-selections", h.SaveQuoteSelections)
	r.Get("/quote/{bookingID}", h.GetQuote)
	r.Post("/quotes/preview", h.PreviewQuote)
}

type bookingView struct {
	*Booking
	PaymentStatus    quote.PaymentStatus `json:"payment_status"`
	RemainingBalance money.Amount        `json:"remaining_balance"`
	ReadyTimeDisplay string              `json:"ready_time_display,omitempty"`
	Itemized         []string            `json:"itemized_services,omitempty"`
	Summary          []string            `json:"summary_services,omitempty"`
}

func newBookingView(b *Booking) bookingView {
	v := bookingView{
		Booking:          b,
		PaymentStatus:    b.PaymentStatus(),
		RemainingBalance: b.RemainingBalance(),
	}
	if b.ReadyTime != "" {
		v.ReadyTimeDisplay = booking.FormatReadyTime(b.ReadyTime)
	}
	if b.Pricing != nil {
		v.Itemized, v.Summary = quote.SplitServices(b.Pricing.Services)
	}
	return v
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var draft booking.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respond.BadRequest(w, "invalid payload")
		return
	}
	b, err := h.service.CreateBooking(r.Context(), draft)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"booking": newBookingView(b)})
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetQuote(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, newBookingView(b))
}

func (h *Handler) Packages(w http.ResponseWriter, r *http.Request) {
	var date availability.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := availability.ParseDate(raw)
		if err != nil {
			respond.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	res, err := h.service.Packages(r.Context(), chi.URLParam(r, "bookingID"), date)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type previewRequest struct {
	Draft  booking.Draft  `json:"draft"`
	Artist booking.Artist `json:"artist"`
}

type quoteView struct {
	pricing.Quote
	Itemized []string `json:"itemized_services"`
	Summary  []string `json:"summary_services"`
}

func (h *Handler) PreviewQuote(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid payload")
		return
	}
	q, err := h.service.PreviewQuote(r.Context(), req.Draft, req.Artist)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	v := quoteView{Quote: q}
	v.Itemized, v.Summary = quote.SplitServices(q.Services)
	respond.JSON(w, http.StatusOK, v)
}

type selectionsRequest struct {
	SelectedDate    string           `json:"selectedDate"`
	SelectedArtist  string           `json:"selectedArtist"`
	SelectedService string           `json:"selectedService"`
	SelectedTime    string           `json:"selectedTime"`
	SelectedAddress *booking.Address `json:"selectedAddress"`
	AgreedToTerms   bool             `json:"agreedToTerms"`
	Signature       string           `json:"signature"`
	SignatureDate   string           `json:"signatureDate"`
}

func (h *Handler) SaveQuoteSelections(w http.ResponseWriter, r *http.Request) {
	var req selectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid payload")
		return
	}
	signed, err := parseSignatureDate(req.SignatureDate)
	if err != nil {
		respond.BadRequest(w, "signatureDate must be RFC3339 or YYYY-MM-DD")
		return
	}
	b, err := h.service.SaveQuoteSelections(r.Context(), chi.URLParam(r, "bookingID"), Selections{
		Date:          req.SelectedDate,
		Artist:        req.SelectedArtist,
		Service:       req.SelectedService,
		Time:          req.SelectedTime,
		Address:       req.SelectedAddress,
		AgreedToTerms: req.AgreedToTerms,
		Signature:     req.Signature,
		SignatureDate: signed,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "booking": newBookingView(b)})
}

func parseSignatureDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := availability.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.In(time.UTC), nil
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Lookup(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "booking": newBookingView(b)})
}

type lookupByEmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) LookupByEmail(w http.ResponseWriter, r *http.Request) {
	var req lookupByEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid payload")
		return
	}
	found, err := h.service.LookupByEmail(r.Context(), req.Email)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	views := make([]bookingView, 0, len(found))
	for _, b := range found {
		views = append(views, newBookingView(b))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "bookings": views})
}
