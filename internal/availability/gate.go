// Package availability decides which event dates a client may book.
package availability

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMinAdvanceDays is how far ahead of today the earliest bookable date sits.
const DefaultMinAdvanceDays = 2

var (
	ErrDateTooSoon = errors.New("availability: date is before the earliest bookable day")
	ErrDateTooLate = errors.New("availability: date is after the latest bookable day")
	ErrRangeOrder  = errors.New("availability: end date must be after start date")
)

// MinDate returns local midnight today plus minAdvanceDays, as a calendar day.
func MinDate(now time.Time, loc *time.Location, minAdvanceDays int) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc)).AddDays(minAdvanceDays)
}

// IsDateAllowed reports whether date falls within [minDate, maxDate]. A nil
// maxDate leaves the range open-ended.
func IsDateAllowed(date, minDate Date, maxDate *Date) bool {
	if date.Before(minDate) {
		return false
	}
	if maxDate != nil && date.After(*maxDate) {
		return false
	}
	return true
}

// ValidateRange requires end to be strictly after start.
func ValidateRange(start, end Date) error {
	if !end.After(start) {
		return fmt.Errorf("%w: start %s, end %s", ErrRangeOrder, start, end)
	}
	return nil
}

// Gate bundles the clock and zone used to evaluate booking dates.
type Gate struct {
	MinAdvanceDays int
	MaxAdvanceDays int // zero means no upper bound
	Location       *time.Location
	Now            func() time.Time
}

// NewGate builds a gate for the given zone. A negative minAdvance falls back to the default.
func NewGate(minAdvanceDays, maxAdvanceDays int, loc *time.Location) *Gate {
	if minAdvanceDays < 0 {
		minAdvanceDays = DefaultMinAdvanceDays
	}
	if loc == nil {
		loc = time.Local
	}
	return &Gate{
		MinAdvanceDays: minAdvanceDays,
		MaxAdvanceDays: maxAdvanceDays,
		Location:       loc,
		Now:            time.Now,
	}
}

func (g *Gate) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// Earliest returns the first bookable day.
func (g *Gate) Earliest() Date {
	return MinDate(g.now(), g.Location, g.MinAdvanceDays)
}

// Latest returns the last bookable day, or nil when unbounded.
func (g *Gate) Latest() *Date {
	if g.MaxAdvanceDays <= 0 {
		return nil
	}
	latest := MinDate(g.now(), g.Location, g.MaxAdvanceDays)
	return &latest
}

// Allows reports whether date is bookable right now.
func (g *Gate) Allows(date Date) bool {
	return IsDateAllowed(date, g.Earliest(), g.Latest())
}

// Check explains why a date is not bookable.
func (g *Gate) Check(date Date) error {
	earliest := g.Earliest()
	if date.Before(earliest) {
		return fmt.Errorf("%w: %s < %s", ErrDateTooSoon, date, earliest)
	}
	if latest := g.Latest(); latest != nil && date.After(*latest) {
		return fmt.Errorf("%w: %s > %s", ErrDateTooLate, date, *latest)
	}
	return nil
}

// CheckRange validates a multi-day booking: the start must be bookable and the
// end, when present, strictly after it.
func (g *Gate) CheckRange(start Date, end *Date) error {
	if err := g.Check(start); err != nil {
		return err
	}
	if end == nil || end.IsZero() {
		return nil
	}
	return ValidateRange(start, *end)
}
