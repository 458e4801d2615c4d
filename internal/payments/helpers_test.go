package payments

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

const testBookingID = "6f1c2d9e-8a47-4b52-9d1e-0c3b7a5e2f10"

var fixedNow = time.Date(2029, 12, 1, 15, 0, 0, 0, time.UTC)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func quotedSnapshot() *quote.Snapshot {
	return &quote.Snapshot{
		ServiceType:       booking.ServiceBridal,
		Artist:            booking.ArtistLead,
		Services:          []string{"Bride Hair & Makeup", "Subtotal: $870.00"},
		Subtotal:          money.MustParse("870.00"),
		HST:               money.MustParse("113.10"),
		Total:             money.MustParse("983.10"),
		Deposit:           money.MustParse("294.93"),
		Remaining:         money.MustParse("688.17"),
		DepositPercentage: 3000,
		PaymentStatus:     quote.StatusUnpaid,
	}
}

// stubLedger stands in for the bookings service.
type stubLedger struct {
	mu        sync.Mutex
	bookings  map[string]*bookings.Booking
	confirmed []bookings.PaymentConfirmation
}

func newStubLedger() *stubLedger {
	l := &stubLedger{bookings: map[string]*bookings.Booking{}}
	b := &bookings.Booking{ID: testBookingID, Status: bookings.StatusQuoted, Pricing: quotedSnapshot()}
	b.ServiceType = booking.ServiceBridal
	b.Client = booking.ClientDetails{Name: "Sara Khan", Email: "sara@example.com"}
	l.bookings[testBookingID] = b
	return l
}

func (l *stubLedger) Lookup(ctx context.Context, bookingID string) (*bookings.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("stub: %s: %w", bookingID, booking.ErrNotFound)
	}
	cp := *b
	if b.Pricing != nil {
		snap := *b.Pricing
		cp.Pricing = &snap
	}
	return &cp, nil
}

func (l *stubLedger) RecordPayment(ctx context.Context, p bookings.PaymentConfirmation) (*bookings.Booking, error) {
	l.mu.Lock()
	b, ok := l.bookings[p.BookingID]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("stub: %s: %w", p.BookingID, booking.ErrNotFound)
	}
	next, err := quote.ApplyPayment(*b.Pricing, p.Type)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	b.Pricing = &next
	l.confirmed = append(l.confirmed, p)
	l.mu.Unlock()
	return l.Lookup(ctx, p.BookingID)
}

func (l *stubLedger) status(t *testing.T) quote.PaymentStatus {
	t.Helper()
	b, err := l.Lookup(context.Background(), testBookingID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return b.PaymentStatus()
}

type stubProcessedTracker struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (s *stubProcessedTracker) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[provider+":"+eventID], nil
}

func (s *stubProcessedTracker) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	key := provider + ":" + eventID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

type stubCheckout struct {
	params []CheckoutParams
	err    error
}

func (s *stubCheckout) CreatePaymentLink(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.params = append(s.params, params)
	return &CheckoutResponse{URL: "https://pay.example.com/" + params.PaymentID.String(), ProviderID: "cs_" + params.PaymentID.String()[:8]}, nil
}

func newTestService(t *testing.T) (*Service, *stubLedger, *InMemoryStore) {
	t.Helper()
	ledger := newStubLedger()
	store := NewInMemoryStore()
	svc := NewService(ledger, store, quietLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, ledger, store
}
