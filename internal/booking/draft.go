// Package booking defines the booking draft the wizard accumulates and the
// error kinds shared by pricing, persistence and payments.
package booking

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
)

// ServiceType is the top-level service category.
type ServiceType string

const (
	ServiceBridal      ServiceType = "Bridal"
	ServiceSemiBridal  ServiceType = "Semi-Bridal"
	ServiceNonBridal   ServiceType = "Non-Bridal"
	ServiceDestination ServiceType = "Destination"
)

// ServiceTypes lists every category in display order.
var ServiceTypes = []ServiceType{ServiceBridal, ServiceSemiBridal, ServiceNonBridal, ServiceDestination}

// ParseServiceType accepts the canonical names plus common spellings
// ("non_bridal", "semi bridal").
func ParseServiceType(raw string) (ServiceType, bool) {
	switch squash(raw) {
	case "bridal":
		return ServiceBridal, true
	case "semibridal":
		return ServiceSemiBridal, true
	case "nonbridal":
		return ServiceNonBridal, true
	case "destination", "destinationwedding":
		return ServiceDestination, true
	default:
		return "", false
	}
}

// Valid reports whether s is a known category.
func (s ServiceType) Valid() bool {
	_, ok := ParseServiceType(string(s))
	return ok
}

// Normalize returns the canonical spelling, or s unchanged if unknown.
func (s ServiceType) Normalize() ServiceType {
	if v, ok := ParseServiceType(string(s)); ok {
		return v
	}
	return s
}

// Artist is the artist tier.
type Artist string

const (
	ArtistLead Artist = "lead"
	ArtistTeam Artist = "team"
)

// ParseArtist accepts "Lead", "lead artist", "Team", etc.
func ParseArtist(raw string) (Artist, bool) {
	switch strings.TrimSuffix(squash(raw), "artist") {
	case "lead":
		return ArtistLead, true
	case "team":
		return ArtistTeam, true
	default:
		return "", false
	}
}

// BrideService selects which bride services are priced.
type BrideService string

const (
	BrideBoth   BrideService = "both"
	BrideHair   BrideService = "hair"
	BrideMakeup BrideService = "makeup"
)

// ParseBrideService accepts the option labels used by the wizard
// ("Both Hair & Makeup", "Hair Only", "Makeup Only"). Blank means both.
func ParseBrideService(raw string) (BrideService, bool) {
	s := squash(raw)
	switch {
	case s == "" || s == "both" || strings.HasPrefix(s, "bothhair"):
		return BrideBoth, true
	case s == "hair" || s == "haironly":
		return BrideHair, true
	case s == "makeup" || s == "makeuponly":
		return BrideMakeup, true
	default:
		return "", false
	}
}

func squash(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Party add-on keys.
const (
	PartyBoth         = "both"
	PartyMakeup       = "makeup"
	PartyHair         = "hair"
	PartyDupatta      = "dupatta"
	PartyExtensions   = "extensions"
	PartySareeDraping = "saree_draping"
	PartyHijabSetting = "hijab_setting"
	PartyAirbrush     = "airbrush"
)

// PartyCounts maps an add-on key to a headcount.
type PartyCounts map[string]int

// Clone returns an independent copy.
func (p PartyCounts) Clone() PartyCounts {
	out := make(PartyCounts, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ClientDetails identifies who is booking.
type ClientDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Draft is the mutable state of a booking before a quote is finalized.
type Draft struct {
	ServiceType  ServiceType       `json:"service_type"`
	BrideService BrideService      `json:"bride_service,omitempty"`
	EventDate    availability.Date `json:"event_date"`
	EventEndDate availability.Date `json:"event_end_date"`
	Region       string            `json:"region,omitempty"`
	Artist       Artist            `json:"artist,omitempty"`
	PartyCounts  PartyCounts       `json:"party_counts,omitempty"`
	Address      *Address          `json:"address,omitempty"`
	ReadyTime    string            `json:"ready_time,omitempty"`
	Client       ClientDetails     `json:"client"`
}

// EventDays is the number of calendar days the booking spans (at least 1).
func (d Draft) EventDays() int {
	if d.EventDate.IsZero() || d.EventEndDate.IsZero() || !d.EventEndDate.After(d.EventDate) {
		return 1
	}
	return d.EventDate.DaysUntil(d.EventEndDate) + 1
}

// ValidateForBooking checks everything needed before a booking is stored.
// All field problems are returned together.
func (d Draft) ValidateForBooking(gate *availability.Gate) error {
	var errs []error

	if strings.TrimSpace(d.Client.Name) == "" {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "client.name", "required"))
	}
	if strings.TrimSpace(d.Client.Email) == "" {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "client.email", "required"))
	} else if _, err := mail.ParseAddress(d.Client.Email); err != nil {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "client.email", "not a valid address"))
	}
	if d.ServiceType == "" {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "service_type", "required"))
	} else if !d.ServiceType.Valid() {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "service_type", "unrecognized"))
	}
	if d.BrideService != "" {
		if _, ok := ParseBrideService(string(d.BrideService)); !ok {
			errs = append(errs, NewFieldError(ErrInvalidDraft, "bride_service", "unrecognized"))
		}
	}
	if d.Artist != "" {
		if _, ok := ParseArtist(string(d.Artist)); !ok {
			errs = append(errs, NewFieldError(ErrInvalidDraft, "artist", "unrecognized"))
		}
	}

	errs = append(errs, d.validateDates(gate)...)

	if d.ReadyTime != "" {
		if _, err := ParseReadyTime(d.ReadyTime); err != nil {
			errs = append(errs, NewFieldError(ErrInvalidDraft, "ready_time", "expected HH:MM"))
		}
	}
	if d.Address != nil {
		if err := d.Address.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for key, n := range d.PartyCounts {
		if n < 0 {
			errs = append(errs, NewFieldError(ErrOutOfRange, "party_counts."+key, "must not be negative"))
		}
	}
	return errors.Join(errs...)
}

func (d Draft) validateDates(gate *availability.Gate) []error {
	if d.EventDate.IsZero() {
		return []error{NewFieldError(ErrInvalidDraft, "event_date", "required")}
	}
	var errs []error
	if gate != nil {
		if err := gate.Check(d.EventDate); err != nil {
			errs = append(errs, NewFieldError(ErrInvalidDraft, "event_date", err.Error()))
		}
	}
	if d.ServiceType.Normalize() == ServiceDestination && !d.EventEndDate.IsZero() {
		if err := availability.ValidateRange(d.EventDate, d.EventEndDate); err != nil {
			errs = append(errs, NewFieldError(ErrInvalidDraft, "event_end_date", err.Error()))
		}
	}
	return errs
}
