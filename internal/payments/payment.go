package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

// Provider names recorded on payments and events.
const (
	ProviderStripe  = "stripe"
	ProviderPayPal  = "paypal"
	ProviderInterac = "interac"
	ProviderFake    = "fake"
)

// Status is the lifecycle of a single payment attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var (
	// ErrTooManyAttempts is returned when a booking opens too many checkouts.
	ErrTooManyAttempts = errors.New("payments: too many checkout attempts")
	// ErrAlreadyReviewed is returned when a screenshot was already verified or rejected.
	ErrAlreadyReviewed = fmt.Errorf("payments: screenshot already reviewed: %w", booking.ErrSnapshotLocked)
)

// Payment is one attempt to collect money for a booking.
type Payment struct {
	ID          uuid.UUID         `json:"id"`
	BookingID   string            `json:"booking_id"`
	Provider    string            `json:"provider"`
	ProviderRef string            `json:"provider_ref,omitempty"`
	Type        quote.PaymentType `json:"payment_type"`
	Amount      money.Amount      `json:"amount"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Screenshot is an uploaded Interac e-transfer receipt awaiting review.
type Screenshot struct {
	ID          uuid.UUID         `json:"id"`
	BookingID   string            `json:"booking_id"`
	PaymentType quote.PaymentType `json:"payment_type"`
	ObjectKey   string            `json:"-"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy  string            `json:"reviewed_by,omitempty"`
	Approved    bool              `json:"admin_verified"`
	URL         string            `json:"screenshot_url,omitempty"`
}

// Reviewed reports whether an admin has acted on the screenshot.
func (s *Screenshot) Reviewed() bool {
	return s.ReviewedAt != nil
}

// Store persists payment attempts. Lookups that miss wrap booking.ErrNotFound.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByProviderRef(ctx context.Context, provider, ref string) (*Payment, error)
	SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error
	MarkSucceeded(ctx context.Context, id uuid.UUID, ref string) (*Payment, error)
}

// ScreenshotStore persists Interac receipts together with their domain events.
type ScreenshotStore interface {
	CreateScreenshot(ctx context.Context, s *Screenshot, evts ...events.CanonicalEvent) error
	GetScreenshot(ctx context.Context, id uuid.UUID) (*Screenshot, error)
	ListScreenshots(ctx context.Context, bookingID string) ([]Screenshot, error)
	ReviewScreenshot(ctx context.Context, id uuid.UUID, approved bool, by string, at time.Time, evts ...events.CanonicalEvent) (*Screenshot, error)
}

// bookingLedger is the part of the bookings service payments depend on.
type bookingLedger interface {
	Lookup(ctx context.Context, bookingID string) (*bookings.Booking, error)
	RecordPayment(ctx context.Context, p bookings.PaymentConfirmation) (*bookings.Booking, error)
}

// processedTracker dedupes provider callbacks.
type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// CheckoutParams describes a hosted checkout to open.
type CheckoutParams struct {
	PaymentID     uuid.UUID
	BookingID     string
	PaymentType   quote.PaymentType
	Amount        money.Amount
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutResponse is the provider's hosted page.
type CheckoutResponse struct {
	URL        string
	ProviderID string
}

// CheckoutProvider creates hosted checkout links.
type CheckoutProvider interface {
	CreatePaymentLink(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error)
}

func paymentDescription(b *bookings.Booking, t quote.PaymentType) string {
	label := "Deposit"
	switch t {
	case quote.PaymentRemainingBalance:
		label = "Remaining balance"
	case quote.PaymentFinal:
		label = "Full payment"
	}
	if b == nil || b.ServiceType == "" {
		return label
	}
	return fmt.Sprintf("%s - %s booking", label, b.ServiceType)
}
