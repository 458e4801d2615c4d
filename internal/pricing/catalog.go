package pricing

import (
	"fmt"
	"strings"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
)

// Package is one purchasable option shown to the client.
type Package struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Artist      booking.Artist `json:"artist"`
	ArtistName  string         `json:"artist_name"`
	Price       money.Amount   `json:"price"`
	Deposit     money.Amount   `json:"deposit_amount"`
	Services    []string       `json:"services"`
	Warnings    []Warning      `json:"warnings,omitempty"`
}

// Catalog lists one package per configured artist tier.
type Catalog struct {
	calc *Calculator
}

// NewCatalog wraps a calculator.
func NewCatalog(calc *Calculator) *Catalog {
	if calc == nil {
		panic("pricing: calculator required")
	}
	return &Catalog{calc: calc}
}

// Packages prices draft once per artist tier in rate-table order. An empty
// result means the service is not offered; callers should show pricing as
// unavailable.
func (c *Catalog) Packages(draft booking.Draft) ([]Package, error) {
	st, err := resolveServiceType(draft.ServiceType, booking.ErrConfiguration)
	if err != nil {
		return nil, err
	}
	draft.ServiceType = st

	table := c.calc.Table()
	rates, ok := table.Service(st)
	if !ok {
		return nil, nil
	}
	bride, ok := booking.ParseBrideService(string(draft.BrideService))
	if !ok {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "bride_service", fmt.Sprintf("unrecognized %q", draft.BrideService))
	}

	packages := make([]Package, 0, len(table.Artists))
	for _, tier := range table.Artists {
		if _, priced := rates.Bride[bride][tier.Key]; !priced {
			continue
		}
		q, err := c.calc.Calculate(draft, tier.Key)
		if err != nil {
			return nil, err
		}
		packages = append(packages, Package{
			ID:          packageID(st, tier.Key),
			Name:        fmt.Sprintf("%s - %s", rates.Name, tier.DisplayName()),
			Description: rates.Description,
			Artist:      tier.Key,
			ArtistName:  tier.Name,
			Price:       q.Total,
			Deposit:     q.Deposit,
			Services:    q.Services,
			Warnings:    q.Warnings,
		})
	}
	return packages, nil
}

func packageID(st booking.ServiceType, artist booking.Artist) string {
	var b strings.Builder
	for _, r := range strings.ToLower(string(st)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String() + "-" + string(artist)
}
