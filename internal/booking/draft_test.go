package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
)

func fixedGate() *availability.Gate {
	gate := availability.NewGate(2, 0, time.UTC)
	gate.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return gate
}

func validDraft() Draft {
	return Draft{
		ServiceType: ServiceBridal,
		EventDate:   availability.NewDate(2024, 6, 15),
		Artist:      ArtistLead,
		ReadyTime:   "09:30",
		Client:      ClientDetails{Name: "Sana K", Email: "sana@example.com", Phone: "4165550101"},
		Address: &Address{
			Street:     "100 Queen St W",
			City:       "Toronto",
			Province:   "on",
			PostalCode: "m5h2n2",
		},
	}
}

func TestParseServiceType(t *testing.T) {
	cases := map[string]ServiceType{
		"Bridal":      ServiceBridal,
		"semi-bridal": ServiceSemiBridal,
		"Non-Bridal":  ServiceNonBridal,
		"non_bridal":  ServiceNonBridal,
		"DESTINATION": ServiceDestination,
	}
	for raw, want := range cases {
		got, ok := ParseServiceType(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseServiceType("Birthday")
	assert.False(t, ok)
}

func TestParseArtistAndBrideService(t *testing.T) {
	a, ok := ParseArtist("Lead Artist")
	require.True(t, ok)
	assert.Equal(t, ArtistLead, a)
	a, ok = ParseArtist("team")
	require.True(t, ok)
	assert.Equal(t, ArtistTeam, a)
	_, ok = ParseArtist("apprentice")
	assert.False(t, ok)

	b, ok := ParseBrideService("Both Hair & Makeup")
	require.True(t, ok)
	assert.Equal(t, BrideBoth, b)
	b, ok = ParseBrideService("Hair Only")
	require.True(t, ok)
	assert.Equal(t, BrideHair, b)
	b, ok = ParseBrideService("")
	require.True(t, ok)
	assert.Equal(t, BrideBoth, b)
	_, ok = ParseBrideService("nails")
	assert.False(t, ok)
}

func TestValidateForBookingAcceptsValidDraft(t *testing.T) {
	require.NoError(t, validDraft().ValidateForBooking(fixedGate()))
}

func TestValidateForBookingCollectsFieldErrors(t *testing.T) {
	d := validDraft()
	d.Client.Email = "not-an-email"
	d.ServiceType = "Birthday"
	d.EventDate = availability.NewDate(2024, 6, 2)
	d.PartyCounts = PartyCounts{PartyHair: -1}
	d.Address.PostalCode = "12345"

	err := d.ValidateForBooking(fixedGate())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDraft))
	assert.True(t, errors.Is(err, ErrOutOfRange))

	fields := map[string]bool{}
	for _, fe := range Fields(err) {
		fields[fe.Field] = true
	}
	for _, want := range []string{"client.email", "service_type", "event_date", "party_counts.hair", "address.postal_code"} {
		assert.True(t, fields[want], "missing field error for %s", want)
	}
}

func TestValidateDestinationRange(t *testing.T) {
	d := validDraft()
	d.ServiceType = ServiceDestination
	d.EventEndDate = d.EventDate

	err := d.ValidateForBooking(fixedGate())
	require.Error(t, err)
	fields := Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "event_end_date", fields[0].Field)

	d.EventEndDate = d.EventDate.AddDays(2)
	require.NoError(t, d.ValidateForBooking(fixedGate()))
	assert.Equal(t, 3, d.EventDays())
}

func TestEventDaysDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, Draft{}.EventDays())
	d := validDraft()
	d.EventEndDate = d.EventDate.AddDays(-1)
	assert.Equal(t, 1, d.EventDays())
}

func TestAddressNormalization(t *testing.T) {
	addr := validDraft().Address.Normalized()
	assert.Equal(t, "ON", addr.Province)
	assert.Equal(t, "M5H 2N2", addr.PostalCode)
	assert.Equal(t, "100 Queen St W, Toronto, ON M5H 2N2", addr.OneLine())

	bad := Address{Street: "1 Main", City: "Halifax", Province: "NS", PostalCode: "B3H 1A1"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Equal(t, "address.province", Fields(err)[0].Field)
}

func TestFormatReadyTime(t *testing.T) {
	assert.Equal(t, "2:30 PM", FormatReadyTime("14:30"))
	assert.Equal(t, "9:05 AM", FormatReadyTime("09:05"))
	assert.Equal(t, "soon", FormatReadyTime("soon"))
}

func TestFieldErrorUnwrap(t *testing.T) {
	err := NewFieldError(ErrConfiguration, "region", "unknown region \"Mars\"")
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "region")
}
