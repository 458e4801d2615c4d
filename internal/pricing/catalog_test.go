package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
)

func TestPackagesOnePerArtistInTableOrder(t *testing.T) {
	catalog := NewCatalog(newTestCalculator(t))
	pkgs, err := catalog.Packages(booking.Draft{
		ServiceType: "non-bridal",
		EventDate:   quietDate,
		PartyCounts: booking.PartyCounts{booking.PartyMakeup: 2},
	})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	assert.Equal(t, "non-bridal-lead", pkgs[0].ID)
	assert.Equal(t, "Anum", pkgs[0].ArtistName)
	assert.Equal(t, "non-bridal-team", pkgs[1].ID)
	assert.Equal(t, "Non-Bridal - Lead Artist (Anum)", pkgs[0].Name)
	assert.True(t, pkgs[0].Price > pkgs[1].Price, "lead tier should be priced higher")

	for _, p := range pkgs {
		var totalRow string
		for _, row := range p.Services {
			if strings.HasPrefix(row, SummaryTotal) {
				totalRow = row
			}
		}
		assert.Equal(t, "Total: "+p.Price.Format(), totalRow, "package %s", p.ID)
	}
}

func TestPackagesWithoutEventDateSkipsSurcharges(t *testing.T) {
	catalog := NewCatalog(newTestCalculator(t))
	pkgs, err := catalog.Packages(booking.Draft{ServiceType: booking.ServiceBridal})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	for _, row := range pkgs[0].Services {
		assert.NotContains(t, row, "surcharge")
	}
}

func TestPackagesMatchCalculator(t *testing.T) {
	calc := newTestCalculator(t)
	catalog := NewCatalog(calc)
	draft := booking.Draft{ServiceType: booking.ServiceBridal, EventDate: quietDate, Region: "Calgary"}

	pkgs, err := catalog.Packages(draft)
	require.NoError(t, err)
	q, err := calc.Calculate(draft, booking.ArtistTeam)
	require.NoError(t, err)

	assert.Equal(t, q.Total, pkgs[1].Price)
	assert.Equal(t, q.Services, pkgs[1].Services)
}

func TestPackagesServiceTypeErrors(t *testing.T) {
	catalog := NewCatalog(newTestCalculator(t))

	_, err := catalog.Packages(booking.Draft{})
	if !errors.Is(err, booking.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing service, got %v", err)
	}
	_, err = catalog.Packages(booking.Draft{ServiceType: "Graduation"})
	if !errors.Is(err, booking.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown service, got %v", err)
	}
}

func TestPackagesEmptyWhenServiceNotOffered(t *testing.T) {
	table, err := ParseRateTable([]byte(sharedRatesTable))
	require.NoError(t, err)
	catalog := NewCatalog(NewCalculator(table))

	pkgs, err := catalog.Packages(booking.Draft{ServiceType: booking.ServiceDestination})
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestParseRateTableRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", sharedRatesTable + "discounts: {}\n"},
		{"missing default region", strings.Replace(sharedRatesTable, "default_region: Toronto/GTA", "default_region: Ottawa", 1)},
		{"forward cap reference", strings.Replace(sharedRatesTable, "add_ons: []", `add_ons:
  - {key: airbrush, label: Airbrush, capped_by: [makeup], rates: {lead: 50.00}}
  - {key: makeup, label: Makeup, max: 20, rates: {lead: 100.00}}`, 1)},
		{"bad amount", strings.Replace(sharedRatesTable, "lead: 450.00, team: 360.00}}\n  Non", "lead: free, team: 360.00}}\n  Non", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRateTable([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, booking.ErrConfiguration), "got %v", err)
		})
	}
}

func TestDefaultRateTableDepositRates(t *testing.T) {
	table, err := DefaultRateTable()
	require.NoError(t, err)
	assert.EqualValues(t, 5000, table.DepositRate(booking.ServiceNonBridal))
	assert.EqualValues(t, 3000, table.DepositRate(booking.ServiceBridal))
	assert.EqualValues(t, 3000, table.DepositRate(booking.ServiceDestination))

	tier, ok := table.Artist(booking.ArtistLead)
	require.True(t, ok)
	assert.Equal(t, "Lead Artist (Anum)", tier.DisplayName())
}

func TestLoadRateTableFallsBackToDefault(t *testing.T) {
	table, err := LoadRateTable("")
	require.NoError(t, err)
	assert.Equal(t, "Toronto/GTA", table.DefaultRegion)

	_, err = LoadRateTable("/nonexistent/rates.yaml")
	require.Error(t, err)
}
