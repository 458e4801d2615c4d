package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/notify"
	"github.com/wolfman30/bridal-quote-platform/internal/observability/metrics"
	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("bridal.internal.bookings")

type paymentMailer interface {
	NotifyPaymentRecorded(ctx context.Context, n notify.PaymentNotice) error
}

// Service orchestrates bookings: it prices drafts through the shared
// calculator, persists snapshots and applies confirmed payments.
type Service struct {
	repo      Repository
	calc      *pricing.Calculator
	catalog   *pricing.Catalog
	gate      *availability.Gate
	logger    *logging.Logger
	notifier  notify.Notifier
	analytics notify.AnalyticsSink
	mailer    paymentMailer
	studio    notify.EmailSender
	studioTo  string
	metrics   *metrics.QuoteMetrics
	quoteURL  string
	now       func() time.Time
}

// NewService constructs a bookings service.
func NewService(repo Repository, calc *pricing.Calculator, gate *availability.Gate, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if calc == nil {
		panic("bookings: calculator required")
	}
	if gate == nil {
		gate = availability.NewGate(availability.DefaultMinAdvanceDays, 0, time.Local)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		calc:      calc,
		catalog:   pricing.NewCatalog(calc),
		gate:      gate,
		logger:    logger,
		notifier:  notify.NewLogNotifier(logger),
		analytics: notify.NewLogSink(logger),
		now:       time.Now,
	}
}

func (s *Service) WithNotifier(n notify.Notifier) *Service {
	if n != nil {
		s.notifier = n
	}
	return s
}

func (s *Service) WithAnalytics(a notify.AnalyticsSink) *Service {
	if a != nil {
		s.analytics = a
	}
	return s
}

func (s *Service) WithPaymentMailer(m paymentMailer) *Service {
	s.mailer = m
	return s
}

// WithStudioInbox sends a summary of every new booking request to the studio.
func (s *Service) WithStudioInbox(sender notify.EmailSender, to string) *Service {
	s.studio = sender
	s.studioTo = strings.TrimSpace(to)
	return s
}

func (s *Service) WithMetrics(m *metrics.QuoteMetrics) *Service {
	s.metrics = m
	return s
}

// WithQuoteBaseURL sets the public origin used in client links.
func (s *Service) WithQuoteBaseURL(base string) *Service {
	s.quoteURL = strings.TrimRight(strings.TrimSpace(base), "/")
	return s
}

// Gate exposes the date gate so handlers can report the bookable window.
func (s *Service) Gate() *availability.Gate {
	return s.gate
}

// QuoteLink is the client-facing URL of a booking's quote page.
func (s *Service) QuoteLink(bookingID string) string {
	if s.quoteURL == "" {
		return ""
	}
	return s.quoteURL + "/quote/" + bookingID
}

// CreateBooking validates and stores a new booking request.
func (s *Service) CreateBooking(ctx context.Context, draft booking.Draft) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()

	draft = normalizeDraft(draft)
	span.SetAttributes(attribute.String("bridal.service_type", string(draft.ServiceType)))
	if err := draft.ValidateForBooking(s.gate); err != nil {
		span.RecordError(err)
		return nil, err
	}

	b := &Booking{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Draft:  draft,
	}
	evt := events.BookingCreatedV1{
		BookingID:   b.ID,
		ServiceType: string(draft.ServiceType),
		EventDate:   draft.EventDate.String(),
		ClientEmail: normalizeEmail(draft.Client.Email),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, b, evt); err != nil {
		span.RecordError(err)
		s.logger.Error("booking create failed", "error", err, "service_type", draft.ServiceType)
		return nil, err
	}
	span.SetAttributes(attribute.String("bridal.booking_id", b.ID))

	s.analytics.Track(ctx, notify.EventLead, map[string]any{
		"booking_id":   b.ID,
		"service_type": string(draft.ServiceType),
	})
	s.sendStudioSummary(ctx, b)
	s.logger.Info("booking created", "booking_id", b.ID, "service_type", draft.ServiceType, "event_date", draft.EventDate.String())
	return b, nil
}

// GetQuote loads a booking for the quote page.
func (s *Service) GetQuote(ctx context.Context, bookingID string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.get_quote")
	defer span.End()
	span.SetAttributes(attribute.String("bridal.booking_id", bookingID))

	b, err := s.repo.Get(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.analytics.Track(ctx, notify.EventViewContent, map[string]any{"booking_id": b.ID})
	return b, nil
}

// PackagesResult is the package list for one candidate date.
type PackagesResult struct {
	Available bool              `json:"available"`
	Date      availability.Date `json:"date"`
	Earliest  availability.Date `json:"earliest_date"`
	Reason    string            `json:"reason,omitempty"`
	Packages  []pricing.Package `json:"packages"`
}

// Packages prices every artist tier for the booking on the given date. A
// zero date prices the booking's own date. Dates outside the bookable window
// report Available=false rather than failing.
func (s *Service) Packages(ctx context.Context, bookingID string, date availability.Date) (PackagesResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.packages")
	defer span.End()

	b, err := s.repo.Get(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		span.RecordError(err)
		return PackagesResult{}, err
	}
	draft := b.Draft
	if !date.IsZero() {
		draft.EventDate = date
	}
	res := PackagesResult{
		Date:     draft.EventDate,
		Earliest: s.gate.Earliest(),
		Packages: []pricing.Package{},
	}
	if !draft.EventDate.IsZero() {
		if err := s.gate.Check(draft.EventDate); err != nil {
			res.Reason = err.Error()
			return res, nil
		}
	}

	start := s.now()
	pkgs, err := s.catalog.Packages(draft)
	s.metrics.ObserveLatency("packages", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return PackagesResult{}, err
	}
	if len(pkgs) == 0 {
		res.Reason = "pricing unavailable"
		return res, nil
	}
	res.Available = true
	res.Packages = pkgs
	return res, nil
}

// PreviewQuote prices a draft without persisting anything.
func (s *Service) PreviewQuote(ctx context.Context, draft booking.Draft, artist booking.Artist) (pricing.Quote, error) {
	_, span := bookingsTracer.Start(ctx, "bookings.preview_quote")
	defer span.End()
	return s.calculate(normalizeDraft(draft), artist, "preview")
}

func (s *Service) calculate(draft booking.Draft, artist booking.Artist, op string) (pricing.Quote, error) {
	start := s.now()
	q, err := s.calc.Calculate(draft, artist)
	s.metrics.ObserveLatency(op, time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObserveQuote(string(draft.ServiceType), "error")
		return pricing.Quote{}, err
	}
	s.metrics.ObserveQuote(string(q.ServiceType), "ok")
	for _, w := range q.Warnings {
		s.metrics.ObserveClamp(w.Field)
	}
	return q, nil
}

// Selections is what the client confirms on the review step.
type Selections struct {
	Date          string
	Artist        string
	Service       string
	Time          string
	Address       *booking.Address
	AgreedToTerms bool
	Signature     string
	SignatureDate time.Time
}

// SaveQuoteSelections recomputes the quote server-side from the stored draft
// plus the client's selections and freezes it as the pricing snapshot.
func (s *Service) SaveQuoteSelections(ctx context.Context, bookingID string, sel Selections) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.save_quote_selections")
	defer span.End()
	span.SetAttributes(attribute.String("bridal.booking_id", bookingID))

	b, err := s.repo.Get(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if b.Pricing != nil && b.Pricing.Locked() {
		return nil, fmt.Errorf("bookings: %s is %s: %w", b.ID, b.Pricing.PaymentStatus, booking.ErrSnapshotLocked)
	}

	draft, agreement, err := s.applySelections(b.Draft, sel)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	q, err := s.calculate(draft, draft.Artist, "finalize")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	snap := quote.BuildSnapshot(q, q.DepositPercentage)

	updated, err := s.repo.SaveSelections(ctx, SelectionUpdate{
		BookingID: b.ID,
		Draft:     draft,
		Agreement: agreement,
		Snapshot:  snap,
		Events: []events.CanonicalEvent{events.QuoteFinalizedV1{
			BookingID:    b.ID,
			Artist:       string(q.Artist),
			TotalCents:   q.Total.Cents(),
			DepositCents: q.Deposit.Cents(),
			Clamped:      q.Clamped,
			FinalizedAt:  s.now().UTC(),
		}},
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("save quote selections failed", "error", err, "booking_id", b.ID)
		_ = s.notifier.Notify(ctx, "Failed to update booking. Please try again.", notify.LevelError)
		return nil, err
	}

	if q.Clamped {
		_ = s.notifier.Notify(ctx, fmt.Sprintf("Some party counts were adjusted for booking %s", b.ID), notify.LevelWarning)
	}
	s.analytics.Track(ctx, notify.EventInitiateCheckout, map[string]any{
		"booking_id":   b.ID,
		"value":        q.Deposit.String(),
		"currency":     money.Currency,
		"content_type": "product",
	})
	s.logger.Info("quote finalized", "booking_id", b.ID, "artist", q.Artist, "total", q.Total.String(), "deposit", q.Deposit.String())
	return updated, nil
}

func (s *Service) applySelections(d booking.Draft, sel Selections) (booking.Draft, Agreement, error) {
	var errs []error
	d.PartyCounts = d.PartyCounts.Clone()

	if strings.TrimSpace(sel.Date) != "" {
		date, err := availability.ParseDate(sel.Date)
		if err != nil {
			errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "selectedDate", "expected YYYY-MM-DD"))
		} else {
			d.EventDate = date
		}
	}
	if strings.TrimSpace(sel.Artist) != "" {
		artist, ok := booking.ParseArtist(sel.Artist)
		if !ok {
			artist, ok = s.artistByName(sel.Artist)
		}
		if !ok {
			errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "selectedArtist", fmt.Sprintf("unrecognized %q", sel.Artist)))
		} else {
			d.Artist = artist
		}
	}
	if d.Artist == "" {
		errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "selectedArtist", "required"))
	}
	if strings.TrimSpace(sel.Service) != "" {
		if st, ok := booking.ParseServiceType(sel.Service); ok {
			d.ServiceType = st
		} else if bs, ok := booking.ParseBrideService(sel.Service); ok {
			d.BrideService = bs
		} else {
			errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "selectedService", fmt.Sprintf("unrecognized %q", sel.Service)))
		}
	}
	if strings.TrimSpace(sel.Time) != "" {
		d.ReadyTime = strings.TrimSpace(sel.Time)
	}
	if sel.Address != nil {
		addr := sel.Address.Normalized()
		d.Address = &addr
	}
	if !sel.AgreedToTerms {
		errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "agreedToTerms", "terms must be accepted"))
	}
	if strings.TrimSpace(sel.Signature) == "" {
		errs = append(errs, booking.NewFieldError(booking.ErrInvalidDraft, "signature", "required"))
	}
	if err := d.ValidateForBooking(s.gate); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return booking.Draft{}, Agreement{}, errors.Join(errs...)
	}

	signed := sel.SignatureDate
	if signed.IsZero() {
		signed = s.now()
	}
	return d, Agreement{AgreedToTerms: true, Signature: sel.Signature, SignatureDate: signed.UTC()}, nil
}

func (s *Service) artistByName(name string) (booking.Artist, bool) {
	for _, tier := range s.calc.Table().Artists {
		if strings.EqualFold(strings.TrimSpace(name), tier.Name) {
			return tier.Key, true
		}
	}
	return "", false
}

// PaymentConfirmation is a provider-confirmed payment against a booking.
type PaymentConfirmation struct {
	BookingID   string
	PaymentID   string
	Provider    string
	ProviderRef string
	Type        quote.PaymentType
	Amount      money.Amount
	OccurredAt  time.Time
}

// RecordPayment advances the booking's snapshot. Replays of an already
// applied payment return the booking unchanged.
func (s *Service) RecordPayment(ctx context.Context, p PaymentConfirmation) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.record_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.booking_id", p.BookingID),
		attribute.String("bridal.payment_type", string(p.Type)),
		attribute.String("bridal.provider", p.Provider),
	)

	b, err := s.repo.Get(ctx, strings.TrimSpace(p.BookingID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if b.Pricing == nil {
		err := fmt.Errorf("bookings: %s has no saved quote: %w", b.ID, booking.ErrNotFound)
		span.RecordError(err)
		return nil, err
	}
	from := b.PaymentStatus()
	next, err := quote.ApplyPayment(*b.Pricing, p.Type)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("payment rejected", "error", err, "booking_id", b.ID, "payment_type", p.Type)
		return nil, err
	}
	if next.PaymentStatus == from {
		s.logger.Info("payment already applied", "booking_id", b.ID, "payment_status", from)
		return b, nil
	}
	if p.Amount != 0 && p.Amount != next.AmountPaid-b.Pricing.AmountPaid {
		s.logger.Warn("payment amount differs from snapshot", "booking_id", b.ID,
			"paid", p.Amount.String(), "expected", (next.AmountPaid - b.Pricing.AmountPaid).String())
	}
	occurred := p.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}

	updated, err := s.repo.UpdatePayment(ctx, PaymentUpdate{
		BookingID: b.ID,
		From:      from,
		Snapshot:  next,
		Events: []events.CanonicalEvent{events.PaymentRecordedV1{
			BookingID:     b.ID,
			PaymentID:     p.PaymentID,
			Provider:      p.Provider,
			ProviderRef:   p.ProviderRef,
			PaymentType:   string(p.Type),
			AmountCents:   (next.AmountPaid - b.Pricing.AmountPaid).Cents(),
			PaymentStatus: string(next.PaymentStatus),
			OccurredAt:    occurred.UTC(),
		}},
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("record payment failed", "error", err, "booking_id", b.ID)
		return nil, err
	}

	s.metrics.ObservePayment(p.Provider, string(p.Type), string(next.PaymentStatus))
	s.analytics.Track(ctx, notify.EventPurchase, map[string]any{
		"booking_id": b.ID,
		"value":      (next.AmountPaid - b.Pricing.AmountPaid).String(),
		"currency":   money.Currency,
	})
	if s.mailer != nil {
		if err := s.mailer.NotifyPaymentRecorded(ctx, s.paymentNotice(updated, p, next.AmountPaid-b.Pricing.AmountPaid, occurred)); err != nil {
			s.logger.Warn("payment email failed", "error", err, "booking_id", b.ID)
		}
	}
	s.logger.Info("payment recorded", "booking_id", b.ID, "provider", p.Provider, "payment_status", next.PaymentStatus)
	return updated, nil
}

func (s *Service) paymentNotice(b *Booking, p PaymentConfirmation, amount money.Amount, at time.Time) notify.PaymentNotice {
	n := notify.PaymentNotice{
		BookingID:   b.ID,
		ClientName:  b.Client.Name,
		ClientEmail: b.Client.Email,
		ServiceType: string(b.ServiceType),
		EventDate:   b.EventDate.String(),
		Provider:    p.Provider,
		PaymentType: string(p.Type),
		Amount:      amount,
		OccurredAt:  at,
		QuoteURL:    s.QuoteLink(b.ID),
	}
	if b.Pricing != nil {
		n.Total = b.Pricing.Total
		n.Balance = b.Pricing.Balance()
		n.Services = b.Pricing.Services
	}
	return n
}

// Lookup returns a booking with a saved quote for the remaining-balance page.
func (s *Service) Lookup(ctx context.Context, bookingID string) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.lookup")
	defer span.End()

	b, err := s.repo.Get(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if b.Pricing == nil {
		return nil, fmt.Errorf("bookings: %s has no saved quote: %w", b.ID, booking.ErrNotFound)
	}
	return b, nil
}

// LookupByEmail returns the client's quoted bookings that still have a
// balance, most recent first.
func (s *Service) LookupByEmail(ctx context.Context, email string) ([]*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.lookup_by_email")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "email", "required")
	}
	all, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]*Booking, 0, len(all))
	for _, b := range all {
		if b.Pricing != nil && b.PaymentStatus() != quote.StatusFullyPaid {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Service) sendStudioSummary(ctx context.Context, b *Booking) {
	if s.studio == nil || s.studioTo == "" {
		return
	}
	msg := notify.EmailMessage{
		To:      s.studioTo,
		Subject: fmt.Sprintf("New booking request - %s (%s)", displayClient(b.Client.Name), b.ServiceType),
		Body:    FormatBookingSummary(b, s.QuoteLink(b.ID)),
		HTML:    FormatBookingSummaryHTML(b, s.QuoteLink(b.ID)),
	}
	if err := s.studio.Send(ctx, msg); err != nil {
		s.logger.Warn("studio summary email failed", "error", err, "booking_id", b.ID)
	}
}

func normalizeDraft(d booking.Draft) booking.Draft {
	if st, ok := booking.ParseServiceType(string(d.ServiceType)); ok {
		d.ServiceType = st
	}
	if d.Artist != "" {
		if a, ok := booking.ParseArtist(string(d.Artist)); ok {
			d.Artist = a
		}
	}
	if d.BrideService != "" {
		if bs, ok := booking.ParseBrideService(string(d.BrideService)); ok {
			d.BrideService = bs
		}
	}
	if d.Address != nil {
		addr := d.Address.Normalized()
		d.Address = &addr
	}
	d.Client.Name = strings.TrimSpace(d.Client.Name)
	d.Client.Email = strings.TrimSpace(d.Client.Email)
	d.Region = strings.TrimSpace(d.Region)
	return d
}
