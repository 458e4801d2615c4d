// Package pricing turns a booking draft into an itemized quote. Every screen
// and endpoint prices through Calculator so totals cannot diverge.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
)

// Summary row prefixes, in the order they trail every services list.
const (
	SummarySubtotal = "Subtotal:"
	SummaryHST      = "HST ("
	SummaryTotal    = "Total:"
	SummaryDeposit  = "Deposit required"
)

// SummaryPrefixes lists the trailing summary row labels in order.
var SummaryPrefixes = []string{SummarySubtotal, SummaryHST, SummaryTotal, SummaryDeposit}

// LineItem is one priced row.
type LineItem struct {
	Key       string       `json:"key"`
	Label     string       `json:"label"`
	Quantity  int          `json:"quantity"`
	UnitPrice money.Amount `json:"unit_price"`
	Amount    money.Amount `json:"amount"`
	perDay    bool
}

// Row renders the display string, e.g. "Saree Draping (x2): $70.00".
func (l LineItem) Row() string {
	switch {
	case l.perDay && l.Quantity > 1:
		return fmt.Sprintf("%s (x%d days): %s", l.Label, l.Quantity, l.Amount.Format())
	case l.Quantity > 1 || (l.Quantity == 1 && isPartyKey(l.Key)):
		return fmt.Sprintf("%s (x%d): %s", l.Label, l.Quantity, l.Amount.Format())
	default:
		return fmt.Sprintf("%s: %s", l.Label, l.Amount.Format())
	}
}

const (
	keyBase    = "base"
	keyTravel  = "travel_fee"
	keyWeekend = "weekend_surcharge"
	keyPeak    = "peak_surcharge"
)

func isPartyKey(key string) bool {
	switch key {
	case keyBase, keyTravel, keyWeekend, keyPeak:
		return false
	}
	return true
}

// Warning records a party count that was clamped to its cap.
type Warning struct {
	Field     string `json:"field"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Message   string `json:"message"`
}

// Quote is the calculator output.
type Quote struct {
	ServiceType       booking.ServiceType  `json:"service_type"`
	BrideService      booking.BrideService `json:"bride_service"`
	Artist            booking.Artist       `json:"artist"`
	ArtistName        string               `json:"artist_name"`
	Region            string               `json:"region"`
	LineItems         []LineItem           `json:"line_items"`
	Services          []string             `json:"services"`
	Subtotal          money.Amount         `json:"subtotal"`
	HST               money.Amount         `json:"hst"`
	Total             money.Amount         `json:"total"`
	Deposit           money.Amount         `json:"deposit_amount"`
	Remaining         money.Amount         `json:"remaining_amount"`
	HSTRate           money.BasisPoints    `json:"hst_rate_bps"`
	DepositPercentage money.BasisPoints    `json:"deposit_percentage_bps"`
	PartyCounts       booking.PartyCounts  `json:"party_counts"`
	Warnings          []Warning            `json:"warnings,omitempty"`
	Clamped           bool                 `json:"clamped"`
}

// Calculator prices drafts against a rate table. It holds no mutable state
// and is safe for concurrent use.
type Calculator struct {
	table *RateTable
}

// NewCalculator builds a calculator for the given table.
func NewCalculator(table *RateTable) *Calculator {
	if table == nil {
		panic("pricing: rate table required")
	}
	return &Calculator{table: table}
}

// Table exposes the tariff the calculator prices against.
func (c *Calculator) Table() *RateTable {
	return c.table
}

// Calculate prices draft for the given artist tier. When artist is empty the
// draft's own artist is used.
func (c *Calculator) Calculate(draft booking.Draft, artist booking.Artist) (Quote, error) {
	st, err := resolveServiceType(draft.ServiceType, booking.ErrInvalidDraft)
	if err != nil {
		return Quote{}, err
	}
	tier, err := c.resolveArtist(artist, draft.Artist)
	if err != nil {
		return Quote{}, err
	}
	bride, ok := booking.ParseBrideService(string(draft.BrideService))
	if !ok {
		return Quote{}, booking.NewFieldError(booking.ErrInvalidDraft, "bride_service", fmt.Sprintf("unrecognized %q", draft.BrideService))
	}

	regionName := strings.TrimSpace(draft.Region)
	if regionName == "" {
		regionName = c.table.DefaultRegion
	}
	region, ok := c.table.Regions[regionName]
	if !ok {
		return Quote{}, booking.NewFieldError(booking.ErrConfiguration, "region", fmt.Sprintf("unknown region %q", regionName))
	}

	rates, ok := c.table.Service(st)
	if !ok {
		return Quote{}, booking.NewFieldError(booking.ErrConfiguration, "service_type", fmt.Sprintf("no rates for %s", st))
	}
	base, ok := rates.Bride[bride][tier.Key]
	if !ok {
		return Quote{}, booking.NewFieldError(booking.ErrConfiguration, "artist",
			fmt.Sprintf("no %s rate for %s (%s)", tier.Key, st, bride))
	}

	counts, warnings, err := c.effectiveCounts(draft.PartyCounts)
	if err != nil {
		return Quote{}, err
	}

	lines, err := c.lineItems(draft, st, bride, tier, rates, base, regionName, region, counts)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		ServiceType:       st,
		BrideService:      bride,
		Artist:            tier.Key,
		ArtistName:        tier.Name,
		Region:            regionName,
		LineItems:         lines,
		HSTRate:           c.table.HSTBPS,
		DepositPercentage: c.table.DepositRate(st),
		PartyCounts:       counts,
		Warnings:          warnings,
		Clamped:           len(warnings) > 0,
	}
	for _, l := range lines {
		q.Subtotal += l.Amount
	}
	q.HST = money.MulBasisPoints(q.Subtotal, q.HSTRate)
	q.Total = q.Subtotal + q.HST
	q.Deposit = money.MulBasisPoints(q.Total, q.DepositPercentage)
	q.Remaining = q.Total - q.Deposit

	q.Services = make([]string, 0, len(lines)+4)
	for _, l := range lines {
		q.Services = append(q.Services, l.Row())
	}
	q.Services = append(q.Services,
		fmt.Sprintf("%s %s", SummarySubtotal, q.Subtotal.Format()),
		fmt.Sprintf("%s%s): %s", SummaryHST, q.HSTRate, q.HST.Format()),
		fmt.Sprintf("%s %s", SummaryTotal, q.Total.Format()),
		fmt.Sprintf("%s (%s): %s", SummaryDeposit, q.DepositPercentage, q.Deposit.Format()),
	)
	return q, nil
}

func resolveServiceType(raw booking.ServiceType, kind error) (booking.ServiceType, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return "", booking.NewFieldError(kind, "service_type", "required")
	}
	st, ok := booking.ParseServiceType(string(raw))
	if !ok {
		return "", booking.NewFieldError(kind, "service_type", fmt.Sprintf("unrecognized %q", raw))
	}
	return st, nil
}

func (c *Calculator) resolveArtist(requested, fallback booking.Artist) (ArtistTier, error) {
	raw := requested
	if strings.TrimSpace(string(raw)) == "" {
		raw = fallback
	}
	if strings.TrimSpace(string(raw)) == "" {
		return ArtistTier{}, booking.NewFieldError(booking.ErrInvalidDraft, "artist", "required")
	}
	key, ok := booking.ParseArtist(string(raw))
	if !ok {
		key = booking.Artist(strings.ToLower(strings.TrimSpace(string(raw))))
	}
	tier, ok := c.table.Artist(key)
	if !ok {
		return ArtistTier{}, booking.NewFieldError(booking.ErrInvalidDraft, "artist", fmt.Sprintf("unrecognized %q", raw))
	}
	return tier, nil
}

// effectiveCounts validates party counts and clamps each to its cap, in
// rate-table order so dependent caps see already-clamped counts.
func (c *Calculator) effectiveCounts(raw booking.PartyCounts) (booking.PartyCounts, []Warning, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if raw[k] < 0 {
			errs = append(errs, booking.NewFieldError(booking.ErrOutOfRange, "party_counts."+k, fmt.Sprintf("negative count %d", raw[k])))
			continue
		}
		if _, ok := c.table.AddOn(k); !ok {
			errs = append(errs, booking.NewFieldError(booking.ErrConfiguration, "party_counts."+k, "unknown add-on"))
		}
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	effective := booking.PartyCounts{}
	var warnings []Warning
	for _, addOn := range c.table.AddOns {
		n := raw[addOn.Key]
		if n == 0 {
			continue
		}
		limit := -1
		if addOn.Max > 0 {
			limit = addOn.Max
		}
		if len(addOn.CappedBy) > 0 {
			sum := 0
			for _, dep := range addOn.CappedBy {
				sum += effective[dep]
			}
			if limit < 0 || sum < limit {
				limit = sum
			}
		}
		if limit >= 0 && n > limit {
			warnings = append(warnings, Warning{
				Field:     "party_counts." + addOn.Key,
				Requested: n,
				Applied:   limit,
				Message:   fmt.Sprintf("%s reduced from %d to %d", addOn.Label, n, limit),
			})
			n = limit
		}
		if n > 0 {
			effective[addOn.Key] = n
		}
	}
	return effective, warnings, nil
}

func (c *Calculator) lineItems(
	draft booking.Draft,
	st booking.ServiceType,
	bride booking.BrideService,
	tier ArtistTier,
	rates ServiceRates,
	base money.Amount,
	regionName string,
	region Region,
	counts booking.PartyCounts,
) ([]LineItem, error) {
	unit := base + money.MulBasisPoints(base, region.AdjustmentBPS)
	days := 1
	if rates.PerDay {
		days = draft.EventDays()
	}
	baseAmount := unit.Mul(days)

	label := fmt.Sprintf("%s - %s", rates.Name, tier.DisplayName())
	if bride != booking.BrideBoth {
		label += " - " + brideLabel(bride)
	}
	lines := []LineItem{{
		Key:       keyBase,
		Label:     label,
		Quantity:  days,
		UnitPrice: unit,
		Amount:    baseAmount,
		perDay:    rates.PerDay,
	}}

	if !draft.EventDate.IsZero() {
		if wd := draft.EventDate.Weekday(); (wd == time.Saturday || wd == time.Sunday) && c.table.Surcharges.WeekendBPS > 0 {
			amt := money.MulBasisPoints(baseAmount, c.table.Surcharges.WeekendBPS)
			lines = append(lines, LineItem{
				Key:       keyWeekend,
				Label:     fmt.Sprintf("Weekend surcharge (%s)", c.table.Surcharges.WeekendBPS),
				Quantity:  1,
				UnitPrice: amt,
				Amount:    amt,
			})
		}
		if c.table.isPeakMonth(int(draft.EventDate.Month)) && c.table.Surcharges.PeakBPS > 0 {
			amt := money.MulBasisPoints(baseAmount, c.table.Surcharges.PeakBPS)
			lines = append(lines, LineItem{
				Key:       keyPeak,
				Label:     fmt.Sprintf("Peak season surcharge (%s)", c.table.Surcharges.PeakBPS),
				Quantity:  1,
				UnitPrice: amt,
				Amount:    amt,
			})
		}
	}

	if region.TravelFee > 0 {
		lines = append(lines, LineItem{
			Key:       keyTravel,
			Label:     fmt.Sprintf("Travel fee (%s)", regionName),
			Quantity:  1,
			UnitPrice: region.TravelFee,
			Amount:    region.TravelFee,
		})
	}

	for _, addOn := range c.table.AddOns {
		n := counts[addOn.Key]
		if n == 0 {
			continue
		}
		rate, ok := addOn.Rates[tier.Key]
		if !ok {
			return nil, booking.NewFieldError(booking.ErrConfiguration, "party_counts."+addOn.Key,
				fmt.Sprintf("no %s rate for %s", tier.Key, st))
		}
		lines = append(lines, LineItem{
			Key:       addOn.Key,
			Label:     addOn.Label,
			Quantity:  n,
			UnitPrice: rate,
			Amount:    rate.Mul(n),
		})
	}
	return lines, nil
}

func brideLabel(b booking.BrideService) string {
	switch b {
	case booking.BrideHair:
		return "Hair Only"
	case booking.BrideMakeup:
		return "Makeup Only"
	default:
		return "Both Hair & Makeup"
	}
}
