// Package draftstore keeps the booking wizard's in-progress state in redis so
// a client can resume on another device or after a reload.
package draftstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
	"github.com/wolfman30/bridal-quote-platform/internal/booking"
)

// Keys the wizard persists between steps.
const (
	KeySelectedDates = "event_selected_dates"
	KeyDateTimes     = "event_date_times"
	KeyActiveDate    = "event_active_date"
	KeyBookingDraft  = "booking_draft"

	inspirationPrefix = "inspiration_"
)

const (
	// DefaultTTL keeps a draft for a month after its last write.
	DefaultTTL = 30 * 24 * time.Hour
	// MaxValueBytes caps one stored value.
	MaxValueBytes = 64 << 10
)

var (
	sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)
	bookingPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	timePattern    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// InspirationKey names the inspiration-photo list stored for a booking.
func InspirationKey(bookingID string) string {
	return inspirationPrefix + bookingID
}

// Store reads and writes wizard draft values.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a draft store. A non-positive ttl uses DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("draftstore: redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(sessionID, key string) string {
	return fmt.Sprintf("draft:%s:%s", sessionID, key)
}

// Get returns the stored JSON value and refreshes its expiry.
func (s *Store) Get(ctx context.Context, sessionID, key string) (json.RawMessage, error) {
	if err := validateAddress(sessionID, key); err != nil {
		return nil, err
	}
	rk := s.key(sessionID, key)
	data, err := s.redis.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("draftstore: %s: %w", key, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("draftstore: get %s: %w: %w", key, booking.ErrPersistence, err)
	}
	if err := s.redis.Expire(ctx, rk, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("draftstore: touch %s: %w: %w", key, booking.ErrPersistence, err)
	}
	return json.RawMessage(data), nil
}

// Put validates value for key and stores it, replacing any previous value.
func (s *Store) Put(ctx context.Context, sessionID, key string, value json.RawMessage) error {
	if err := validateAddress(sessionID, key); err != nil {
		return err
	}
	value = bytes.TrimSpace(value)
	if len(value) > MaxValueBytes {
		return booking.NewFieldError(booking.ErrOutOfRange, key, fmt.Sprintf("larger than %d bytes", MaxValueBytes))
	}
	if err := validateValue(key, value); err != nil {
		return err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return booking.NewFieldError(booking.ErrInvalidDraft, key, "malformed JSON")
	}
	if err := s.redis.Set(ctx, s.key(sessionID, key), compact.Bytes(), s.ttl).Err(); err != nil {
		return fmt.Errorf("draftstore: set %s: %w: %w", key, booking.ErrPersistence, err)
	}
	return nil
}

// Delete removes one value. Missing values are not an error.
func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	if err := validateAddress(sessionID, key); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, s.key(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("draftstore: delete %s: %w: %w", key, booking.ErrPersistence, err)
	}
	return nil
}

func validateAddress(sessionID, key string) error {
	if !sessionPattern.MatchString(sessionID) {
		return booking.NewFieldError(booking.ErrInvalidDraft, "session_id", "must be 8-128 letters, digits, '-' or '_'")
	}
	switch key {
	case KeySelectedDates, KeyDateTimes, KeyActiveDate, KeyBookingDraft:
		return nil
	}
	if id, ok := strings.CutPrefix(key, inspirationPrefix); ok && bookingPattern.MatchString(id) {
		return nil
	}
	return booking.NewFieldError(booking.ErrInvalidDraft, "key", fmt.Sprintf("unsupported draft key %q", key))
}

// validateValue checks the shape the wizard reads back for each key.
func validateValue(key string, value json.RawMessage) error {
	invalid := func(reason string) error {
		return booking.NewFieldError(booking.ErrInvalidDraft, key, reason)
	}
	if !json.Valid(value) {
		return invalid("malformed JSON")
	}
	switch key {
	case KeySelectedDates:
		var dates []availability.Date
		if err := json.Unmarshal(value, &dates); err != nil {
			return invalid("expected a list of YYYY-MM-DD dates")
		}
	case KeyDateTimes:
		var times map[string]string
		if err := json.Unmarshal(value, &times); err != nil {
			return invalid("expected an object of date to HH:MM")
		}
		for date, hhmm := range times {
			if _, err := availability.ParseDate(date); err != nil {
				return invalid(fmt.Sprintf("bad date %q", date))
			}
			if hhmm != "" && !timePattern.MatchString(hhmm) {
				return invalid(fmt.Sprintf("bad time %q for %s", hhmm, date))
			}
		}
	case KeyActiveDate:
		var d availability.Date
		if err := json.Unmarshal(value, &d); err != nil {
			return invalid("expected a YYYY-MM-DD date")
		}
	case KeyBookingDraft:
		var d booking.Draft
		if err := json.Unmarshal(value, &d); err != nil {
			return invalid("not a booking draft")
		}
	default:
		var urls []string
		if err := json.Unmarshal(value, &urls); err != nil {
			return invalid("expected a list of image URLs")
		}
	}
	return nil
}
