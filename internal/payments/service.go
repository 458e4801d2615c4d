package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

var paymentsTracer = otel.Tracer("bridal.internal.payments")

// Service opens payment attempts against a booking's frozen snapshot and
// records confirmed ones back on the booking. Every provider goes through it.
type Service struct {
	ledger   bookingLedger
	store    Store
	velocity *VelocityChecker
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(ledger bookingLedger, store Store, logger *logging.Logger) *Service {
	if ledger == nil {
		panic("payments: booking ledger required")
	}
	if store == nil {
		panic("payments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{ledger: ledger, store: store, logger: logger, now: time.Now}
}

// WithVelocity limits how many checkouts a booking may open per window.
func (s *Service) WithVelocity(v *VelocityChecker) *Service {
	s.velocity = v
	return s
}

// Begin creates a pending payment for the amount the snapshot says is due.
// The amount never comes from the client.
func (s *Service) Begin(ctx context.Context, bookingID string, t quote.PaymentType, provider string) (*Payment, *bookings.Booking, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.begin")
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.booking_id", bookingID),
		attribute.String("bridal.payment_type", string(t)),
		attribute.String("bridal.provider", provider),
	)

	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, nil, booking.NewFieldError(booking.ErrInvalidDraft, "bookingId", "required")
	}
	b, err := s.ledger.Lookup(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	if b.Pricing == nil {
		return nil, nil, fmt.Errorf("payments: booking %s has no saved quote: %w", b.ID, booking.ErrNotFound)
	}
	due, err := b.Pricing.AmountDue(t)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	if due <= 0 {
		return nil, nil, fmt.Errorf("payments: nothing due on %s: %w", b.ID, booking.ErrSnapshotLocked)
	}

	if s.velocity != nil {
		res, err := s.velocity.CheckCheckoutVelocity(ctx, b.ID)
		if err != nil {
			return nil, nil, err
		}
		if !res.Allowed {
			return nil, nil, fmt.Errorf("%w: %s", ErrTooManyAttempts, res.Message)
		}
	}

	now := s.now().UTC()
	p := &Payment{
		ID:        uuid.New(),
		BookingID: b.ID,
		Provider:  provider,
		Type:      t,
		Amount:    due,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int64("bridal.amount_cents", due.Cents()))
	return p, b, nil
}

// Attach stores the provider's checkout or order id on a pending payment.
func (s *Service) Attach(ctx context.Context, id uuid.UUID, providerRef string) error {
	return s.store.SetProviderRef(ctx, id, providerRef)
}

// Checkout begins a payment and opens a hosted page for it.
func (s *Service) Checkout(ctx context.Context, provider string, checkout CheckoutProvider, bookingID string, t quote.PaymentType, successURL, cancelURL string) (*Payment, *CheckoutResponse, error) {
	if checkout == nil {
		return nil, nil, fmt.Errorf("payments: %s checkout not configured: %w", provider, booking.ErrConfiguration)
	}
	p, b, err := s.Begin(ctx, bookingID, t, provider)
	if err != nil {
		return nil, nil, err
	}
	link, err := checkout.CreatePaymentLink(ctx, CheckoutParams{
		PaymentID:     p.ID,
		BookingID:     b.ID,
		PaymentType:   t,
		Amount:        p.Amount,
		Description:   paymentDescription(b, t),
		CustomerEmail: b.Client.Email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	})
	if err != nil {
		s.logger.Error("checkout creation failed", "error", err, "booking_id", b.ID, "provider", provider)
		return nil, nil, fmt.Errorf("payments: %s checkout: %w: %w", provider, booking.ErrPaymentProvider, err)
	}
	if link.ProviderID != "" {
		if err := s.Attach(ctx, p.ID, link.ProviderID); err != nil {
			return nil, nil, err
		}
		p.ProviderRef = link.ProviderID
	}
	s.logger.Info("checkout created", "booking_id", b.ID, "payment_id", p.ID, "provider", provider,
		"payment_type", t, "amount", p.Amount.String())
	return p, link, nil
}

// Complete marks p succeeded and applies it to the booking. Replays are safe:
// both the payment row and the snapshot transition are idempotent.
func (s *Service) Complete(ctx context.Context, p *Payment, providerRef string, paid money.Amount, occurredAt time.Time) (*bookings.Booking, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.payment_id", p.ID.String()),
		attribute.String("bridal.booking_id", p.BookingID),
		attribute.String("bridal.provider", p.Provider),
	)

	updated, err := s.store.MarkSucceeded(ctx, p.ID, providerRef)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if paid == 0 {
		paid = updated.Amount
	}
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	b, err := s.ledger.RecordPayment(ctx, bookings.PaymentConfirmation{
		BookingID:   updated.BookingID,
		PaymentID:   updated.ID.String(),
		Provider:    updated.Provider,
		ProviderRef: updated.ProviderRef,
		Type:        updated.Type,
		Amount:      paid,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return b, nil
}

// Payment loads a payment attempt.
func (s *Service) Payment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.store.Get(ctx, id)
}

// PaymentByProviderRef loads a payment by the provider's own id.
func (s *Service) PaymentByProviderRef(ctx context.Context, provider, ref string) (*Payment, error) {
	return s.store.GetByProviderRef(ctx, provider, ref)
}

// Lookup exposes the booking ledger to provider handlers.
func (s *Service) Lookup(ctx context.Context, bookingID string) (*bookings.Booking, error) {
	return s.ledger.Lookup(ctx, bookingID)
}

// Record applies a payment confirmed outside a hosted checkout, such as a
// verified e-transfer.
func (s *Service) Record(ctx context.Context, c bookings.PaymentConfirmation) (*bookings.Booking, error) {
	return s.ledger.RecordPayment(ctx, c)
}

// terminal reports errors a provider retry cannot fix.
func terminal(err error) bool {
	return errors.Is(err, booking.ErrNotFound) || errors.Is(err, booking.ErrSnapshotLocked) ||
		errors.Is(err, booking.ErrInvalidDraft)
}
