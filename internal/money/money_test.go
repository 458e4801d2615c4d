package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMulBasisPointsRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		bps    BasisPoints
		want   Amount
	}{
		{"hst on 500", FromDollars(500), 1300, FromDollars(65)},
		{"half cent rounds up", FromCents(50), 1300, FromCents(7)}, // 6.5 -> 7
		{"below half rounds down", FromCents(3), 1300, FromCents(0)},
		{"deposit thirty percent", MustParse("565.00"), 3000, MustParse("169.50")},
		{"deposit fifty percent odd cent", FromCents(101), 5000, FromCents(51)},
		{"negative symmetric", FromCents(-50), 1300, FromCents(-7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MulBasisPoints(tt.amount, tt.bps))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"565", FromCents(56500)},
		{"565.5", FromCents(56550)},
		{"$1,234.56", FromCents(123456)},
		{"1234.565", FromCents(123457)},
		{"1234.564", FromCents(123456)},
		{".99", FromCents(99)},
		{"-12.30", FromCents(-1230)},
		{"45.00 CAD", FromCents(4500)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "abc", "1.2x", "$"} {
		_, err := Parse(bad)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", bad, err)
		}
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.56", FromCents(123456).Format())
	assert.Equal(t, "$0.05", FromCents(5).Format())
	assert.Equal(t, "-$10.00", FromCents(-1000).Format())
	assert.Equal(t, "$169.50 CAD", MustParse("169.50").FormatCAD())
	assert.Equal(t, "1234567.89", FromCents(123456789).String())
}

func TestJSONRoundTripKeepsCents(t *testing.T) {
	type payload struct {
		Deposit Amount `json:"deposit_amount"`
	}
	data, err := json.Marshal(payload{Deposit: MustParse("169.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"deposit_amount":169.50}`, string(data))
}

func TestUnmarshalJSONShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Amount
	}{
		{"number", `169.5`, MustParse("169.50")},
		{"string", `"169.50"`, MustParse("169.50")},
		{"decimal wrapper", `{"$numberDecimal":"169.50"}`, MustParse("169.50")},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &a))
			assert.Equal(t, tt.want, a)
		})
	}

	var a Amount
	if err := json.Unmarshal([]byte(`"twelve"`), &a); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestUnmarshalYAML(t *testing.T) {
	var doc struct {
		Price Amount `yaml:"price"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("price: 450.00\n"), &doc))
	assert.Equal(t, FromDollars(450), doc.Price)

	err := yaml.Unmarshal([]byte("price: lots\n"), &doc)
	require.Error(t, err)
}

func TestBasisPointsPercent(t *testing.T) {
	assert.Equal(t, "13%", BasisPoints(1300).String())
	assert.Equal(t, "30", BasisPoints(3000).Percent())
	assert.Equal(t, "12.5", BasisPoints(1250).Percent())
	assert.Equal(t, "0.25", BasisPoints(25).Percent())
}

func TestSum(t *testing.T) {
	assert.Equal(t, FromCents(600), Sum(FromCents(100), FromCents(200), FromCents(300)))
	assert.Equal(t, Amount(0), Sum())
}
