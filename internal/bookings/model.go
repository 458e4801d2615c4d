package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

// Status is the booking lifecycle stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQuoted    Status = "quoted"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
)

// Agreement is the signed contract captured at the review step.
type Agreement struct {
	AgreedToTerms bool      `json:"agreed_to_terms"`
	Signature     string    `json:"signature"`
	SignatureDate time.Time `json:"signature_date"`
}

// Booking is a stored booking request. The embedded draft holds the wizard
// selections; Pricing is nil until quote selections are saved.
type Booking struct {
	ID     string `json:"booking_id"`
	Status Status `json:"status"`
	booking.Draft
	Agreement *Agreement      `json:"agreement,omitempty"`
	Pricing   *quote.Snapshot `json:"pricing,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PaymentStatus reports unpaid until a snapshot exists.
func (b *Booking) PaymentStatus() quote.PaymentStatus {
	if b.Pricing == nil || b.Pricing.PaymentStatus == "" {
		return quote.StatusUnpaid
	}
	return b.Pricing.PaymentStatus
}

// RemainingBalance is what the client still owes on the saved quote.
func (b *Booking) RemainingBalance() money.Amount {
	if b.Pricing == nil {
		return 0
	}
	return b.Pricing.Balance()
}

func (b *Booking) clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.PartyCounts = b.PartyCounts.Clone()
	if b.Address != nil {
		addr := *b.Address
		out.Address = &addr
	}
	if b.Agreement != nil {
		a := *b.Agreement
		out.Agreement = &a
	}
	if b.Pricing != nil {
		snap := *b.Pricing
		snap.Services = append([]string(nil), b.Pricing.Services...)
		out.Pricing = &snap
	}
	return &out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SelectionUpdate replaces a booking's draft and pricing snapshot at review.
type SelectionUpdate struct {
	BookingID string
	Draft     booking.Draft
	Agreement Agreement
	Snapshot  quote.Snapshot
	Events    []events.CanonicalEvent
}

// PaymentUpdate advances a snapshot after a confirmed payment. From is the
// status the caller read; the write fails if another payment got there first.
type PaymentUpdate struct {
	BookingID string
	From      quote.PaymentStatus
	Snapshot  quote.Snapshot
	Events    []events.CanonicalEvent
}

// Repository persists bookings and their pricing snapshots. Implementations
// return errors wrapping booking.ErrNotFound, booking.ErrSnapshotLocked or
// booking.ErrPersistence.
type Repository interface {
	Create(ctx context.Context, b *Booking, evts ...events.CanonicalEvent) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListByEmail(ctx context.Context, email string) ([]*Booking, error)
	SaveSelections(ctx context.Context, u SelectionUpdate) (*Booking, error)
	UpdatePayment(ctx context.Context, u PaymentUpdate) (*Booking, error)
}

func statusForPayment(ps quote.PaymentStatus) Status {
	switch ps {
	case quote.StatusFullyPaid:
		return StatusPaid
	case quote.StatusDepositPaid:
		return StatusConfirmed
	default:
		return StatusQuoted
	}
}
