package bookings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
)

// InMemoryRepository is a Repository for local development and tests.
type InMemoryRepository struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	events   []events.CanonicalEvent
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
		now:      time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, b *Booking, evts ...events.CanonicalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bookings[b.ID]; exists {
		return fmt.Errorf("%w: booking %s already exists", booking.ErrPersistence, b.ID)
	}
	now := r.now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.bookings[b.ID] = b.clone()
	r.events = append(r.events, evts...)
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("bookings: %s: %w", id, booking.ErrNotFound)
	}
	return b.clone(), nil
}

func (r *InMemoryRepository) ListByEmail(ctx context.Context, email string) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := normalizeEmail(email)
	var out []*Booking
	for _, b := range r.bookings {
		if normalizeEmail(b.Client.Email) == want {
			out = append(out, b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) SaveSelections(ctx context.Context, u SelectionUpdate) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[u.BookingID]
	if !ok {
		return nil, fmt.Errorf("bookings: %s: %w", u.BookingID, booking.ErrNotFound)
	}
	if b.Pricing != nil && b.Pricing.Locked() {
		return nil, fmt.Errorf("bookings: %s is %s: %w", u.BookingID, b.Pricing.PaymentStatus, booking.ErrSnapshotLocked)
	}
	updated := b.clone()
	updated.Draft = u.Draft
	agreement := u.Agreement
	updated.Agreement = &agreement
	snap := u.Snapshot
	updated.Pricing = &snap
	updated.Status = StatusQuoted
	updated.UpdatedAt = r.now().UTC()
	r.bookings[u.BookingID] = updated.clone()
	r.events = append(r.events, u.Events...)
	return updated, nil
}

func (r *InMemoryRepository) UpdatePayment(ctx context.Context, u PaymentUpdate) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[u.BookingID]
	if !ok {
		return nil, fmt.Errorf("bookings: %s: %w", u.BookingID, booking.ErrNotFound)
	}
	if b.PaymentStatus() != u.From || b.Pricing == nil {
		return nil, fmt.Errorf("bookings: %s payment status changed: %w", u.BookingID, booking.ErrSnapshotLocked)
	}
	updated := b.clone()
	snap := u.Snapshot
	updated.Pricing = &snap
	updated.Status = statusForPayment(snap.PaymentStatus)
	updated.UpdatedAt = r.now().UTC()
	r.bookings[u.BookingID] = updated.clone()
	r.events = append(r.events, u.Events...)
	return updated, nil
}

// Events returns the domain events recorded so far.
func (r *InMemoryRepository) Events() []events.CanonicalEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.CanonicalEvent(nil), r.events...)
}

var _ Repository = (*InMemoryRepository)(nil)
