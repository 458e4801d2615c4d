package payments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
)

// InMemoryStore backs payments when no database is configured.
type InMemoryStore struct {
	mu          sync.Mutex
	payments    map[uuid.UUID]*Payment
	screenshots map[uuid.UUID]*Screenshot
	events      []events.CanonicalEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		payments:    make(map[uuid.UUID]*Payment),
		screenshots: make(map[uuid.UUID]*Screenshot),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return fmt.Errorf("%w: payment %s already exists", booking.ErrPersistence, p.ID)
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) GetByProviderRef(ctx context.Context, provider, ref string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.Provider == provider && p.ProviderRef == ref && ref != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("payments: %s ref %s: %w", provider, ref, booking.ErrNotFound)
}

func (s *InMemoryStore) SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	p.ProviderRef = ref
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) MarkSucceeded(ctx context.Context, id uuid.UUID, ref string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	p.Status = StatusSucceeded
	if ref != "" {
		p.ProviderRef = ref
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) CreateScreenshot(ctx context.Context, shot *Screenshot, evts ...events.CanonicalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *shot
	s.screenshots[shot.ID] = &cp
	s.events = append(s.events, evts...)
	return nil
}

func (s *InMemoryStore) GetScreenshot(ctx context.Context, id uuid.UUID) (*Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shot, ok := s.screenshots[id]
	if !ok {
		return nil, fmt.Errorf("payments: screenshot %s: %w", id, booking.ErrNotFound)
	}
	cp := *shot
	return &cp, nil
}

func (s *InMemoryStore) ListScreenshots(ctx context.Context, bookingID string) ([]Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Screenshot
	for _, shot := range s.screenshots {
		if shot.BookingID == bookingID {
			out = append(out, *shot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemoryStore) ReviewScreenshot(ctx context.Context, id uuid.UUID, approved bool, by string, at time.Time, evts ...events.CanonicalEvent) (*Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shot, ok := s.screenshots[id]
	if !ok {
		return nil, fmt.Errorf("payments: screenshot %s: %w", id, booking.ErrNotFound)
	}
	if shot.Reviewed() {
		return nil, ErrAlreadyReviewed
	}
	reviewed := at
	shot.ReviewedAt = &reviewed
	shot.ReviewedBy = by
	shot.Approved = approved
	s.events = append(s.events, evts...)
	cp := *shot
	return &cp, nil
}

// Events returns the domain events recorded so far.
func (s *InMemoryStore) Events() []events.CanonicalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.CanonicalEvent(nil), s.events...)
}

var (
	_ Store           = (*InMemoryStore)(nil)
	_ ScreenshotStore = (*InMemoryStore)(nil)
)
