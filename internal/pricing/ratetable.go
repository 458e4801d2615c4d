package pricing

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
)

//go:embed ratetable.yaml
var defaultRateTable []byte

// ArtistTier is one purchasable artist level.
type ArtistTier struct {
	Key   booking.Artist `yaml:"key"`
	Name  string         `yaml:"name"`
	Title string         `yaml:"title"`
}

// DisplayName renders "Lead Artist (Anum)".
func (a ArtistTier) DisplayName() string {
	if a.Title == "" || a.Title == a.Name {
		return a.Name
	}
	return fmt.Sprintf("%s (%s)", a.Title, a.Name)
}

// ServiceRates holds base prices for one service category.
type ServiceRates struct {
	Name        string                                                   `yaml:"name"`
	Description string                                                   `yaml:"description"`
	PerDay      bool                                                     `yaml:"per_day"`
	Bride       map[booking.BrideService]map[booking.Artist]money.Amount `yaml:"bride"`
}

// Region adjusts the base price and adds a travel fee.
type Region struct {
	AdjustmentBPS money.BasisPoints `yaml:"adjustment_bps"`
	TravelFee     money.Amount      `yaml:"travel_fee"`
}

// AddOn is a per-person service priced by artist tier. Max caps the count
// outright; CappedBy caps it at the sum of the listed add-on counts.
type AddOn struct {
	Key      string                          `yaml:"key"`
	Label    string                          `yaml:"label"`
	Max      int                             `yaml:"max"`
	CappedBy []string                        `yaml:"capped_by"`
	Rates    map[booking.Artist]money.Amount `yaml:"rates"`
}

// Surcharges are date-driven percentages of the base price.
type Surcharges struct {
	WeekendBPS money.BasisPoints `yaml:"weekend_bps"`
	PeakBPS    money.BasisPoints `yaml:"peak_bps"`
	PeakMonths []int             `yaml:"peak_months"`
}

// RateTable is the complete tariff. It is read-only after Load.
type RateTable struct {
	Currency      string                               `yaml:"currency"`
	HSTBPS        money.BasisPoints                    `yaml:"hst_bps"`
	DepositBPS    map[string]money.BasisPoints         `yaml:"deposit_bps"`
	DefaultRegion string                               `yaml:"default_region"`
	Artists       []ArtistTier                         `yaml:"artists"`
	Services      map[booking.ServiceType]ServiceRates `yaml:"services"`
	Regions       map[string]Region                    `yaml:"regions"`
	Surcharges    Surcharges                           `yaml:"surcharges"`
	AddOns        []AddOn                              `yaml:"add_ons"`

	addOnIndex map[string]int
}

// DefaultRateTable returns the embedded tariff.
func DefaultRateTable() (*RateTable, error) {
	return ParseRateTable(defaultRateTable)
}

// LoadRateTable reads a tariff from disk, or the embedded default when path is empty.
func LoadRateTable(path string) (*RateTable, error) {
	if path == "" {
		return DefaultRateTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: read rate table: %w", err)
	}
	return ParseRateTable(data)
}

// ParseRateTable decodes and validates YAML. Unknown fields are rejected so
// typos in a tariff fail loudly.
func ParseRateTable(data []byte) (*RateTable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var table RateTable
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("pricing: decode rate table: %w: %w", booking.ErrConfiguration, err)
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

func (t *RateTable) validate() error {
	var errs []error
	bad := func(field, reason string) {
		errs = append(errs, booking.NewFieldError(booking.ErrConfiguration, field, reason))
	}

	if t.HSTBPS <= 0 {
		bad("hst_bps", "must be positive")
	}
	if _, ok := t.DepositBPS["default"]; !ok {
		bad("deposit_bps.default", "required")
	}
	for key, bps := range t.DepositBPS {
		if bps <= 0 || bps > 10000 {
			bad("deposit_bps."+key, "must be within (0, 10000]")
		}
	}
	if len(t.Artists) == 0 {
		bad("artists", "at least one artist tier required")
	}
	if _, ok := t.Regions[t.DefaultRegion]; !ok {
		bad("default_region", fmt.Sprintf("%q is not a configured region", t.DefaultRegion))
	}
	for st := range t.Services {
		if canonical, ok := booking.ParseServiceType(string(st)); !ok || canonical != st {
			bad("services."+string(st), "unknown service type or non-canonical spelling")
		}
	}

	t.addOnIndex = make(map[string]int, len(t.AddOns))
	for i, addOn := range t.AddOns {
		if addOn.Key == "" {
			bad(fmt.Sprintf("add_ons[%d].key", i), "required")
			continue
		}
		if _, dup := t.addOnIndex[addOn.Key]; dup {
			bad("add_ons."+addOn.Key, "duplicate key")
		}
		for _, dep := range addOn.CappedBy {
			if _, seen := t.addOnIndex[dep]; !seen {
				bad("add_ons."+addOn.Key+".capped_by", fmt.Sprintf("%q must be listed before %q", dep, addOn.Key))
			}
		}
		t.addOnIndex[addOn.Key] = i
	}
	return errors.Join(errs...)
}

// Artist resolves a tier by key.
func (t *RateTable) Artist(key booking.Artist) (ArtistTier, bool) {
	for _, a := range t.Artists {
		if a.Key == key {
			return a, true
		}
	}
	return ArtistTier{}, false
}

// Service resolves rates for a canonical service type.
func (t *RateTable) Service(st booking.ServiceType) (ServiceRates, bool) {
	rates, ok := t.Services[st]
	return rates, ok
}

// AddOn resolves an add-on by key.
func (t *RateTable) AddOn(key string) (AddOn, bool) {
	i, ok := t.addOnIndex[key]
	if !ok {
		return AddOn{}, false
	}
	return t.AddOns[i], true
}

// DepositRate returns the deposit share for a service type.
func (t *RateTable) DepositRate(st booking.ServiceType) money.BasisPoints {
	if bps, ok := t.DepositBPS[string(st)]; ok {
		return bps
	}
	return t.DepositBPS["default"]
}

func (t *RateTable) isPeakMonth(m int) bool {
	for _, pm := range t.Surcharges.PeakMonths {
		if pm == m {
			return true
		}
	}
	return false
}
