package booking

import (
	"fmt"
	"time"
)

// ParseReadyTime parses a 24h "HH:MM" value.
func ParseReadyTime(raw string) (time.Time, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("booking: ready time %q: %w", raw, err)
	}
	return t, nil
}

// FormatReadyTime turns "14:30" into "2:30 PM". Unparseable input is returned as-is.
func FormatReadyTime(raw string) string {
	t, err := ParseReadyTime(raw)
	if err != nil {
		return raw
	}
	return t.Format("3:04 PM")
}
