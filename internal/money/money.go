// Package money holds currency amounts as integer cents so quote totals never
// drift through floating point arithmetic.
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Currency is the ISO code every amount in this service is denominated in.
const Currency = "CAD"

// ErrInvalidAmount is returned when a decimal string cannot be parsed.
var ErrInvalidAmount = errors.New("money: invalid amount")

// Amount is a monetary value in cents.
type Amount int64

// BasisPoints expresses a percentage in hundredths of a percent (1300 = 13%).
type BasisPoints int64

var printer = message.NewPrinter(language.MustParse("en-CA"))

// FromCents wraps a cent value.
func FromCents(cents int64) Amount { return Amount(cents) }

// FromDollars converts whole dollars to an Amount.
func FromDollars(dollars int64) Amount { return Amount(dollars * 100) }

// Cents returns the raw cent value.
func (a Amount) Cents() int64 { return int64(a) }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a < 0 }

// Mul scales a by an integer quantity.
func (a Amount) Mul(qty int) Amount { return a * Amount(qty) }

// Sum adds amounts together.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// MulBasisPoints returns a × bps / 10000 rounded half away from zero to the cent.
func MulBasisPoints(a Amount, bps BasisPoints) Amount {
	return Amount(roundDiv(int64(a)*int64(bps), 10000))
}

func roundDiv(num, den int64) int64 {
	if num < 0 {
		return -roundDiv(-num, den)
	}
	return (num + den/2) / den
}

// String renders the amount as a plain decimal ("1234.56").
func (a Amount) String() string {
	sign := ""
	c := int64(a)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Format renders the amount with a dollar sign and digit grouping ("$1,234.56").
func (a Amount) Format() string {
	sign := ""
	c := int64(a)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + "$" + printer.Sprintf("%d", c/100) + fmt.Sprintf(".%02d", c%100)
}

// FormatCAD renders the amount for customer-facing copy ("$1,234.56 CAD").
func (a Amount) FormatCAD() string {
	return a.Format() + " " + Currency
}

// Parse reads a decimal amount such as "1,234.5", "$99" or "12.345".
// Digits beyond the cent are rounded half away from zero.
func Parse(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, Currency))
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || dollars < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	var cents int64
	switch {
	case len(frac) == 0:
	case len(frac) == 1:
		cents = int64(frac[0]-'0') * 10
	default:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	}

	total := dollars*100 + cents
	if neg {
		total = -total
	}
	return Amount(total), nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(raw string) Amount {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a number, a decimal string, or a {"$numberDecimal": "..."}
// wrapper as produced by document stores.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	var raw string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("money: decode string: %w", err)
		}
	case '{':
		var wrapped struct {
			NumberDecimal string `json:"$numberDecimal"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("money: decode decimal wrapper: %w", err)
		}
		raw = wrapped.NumberDecimal
	default:
		raw = string(data)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalYAML lets rate tables list prices as plain decimals.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = parsed
	return nil
}

// Percent renders basis points as a human percentage ("13", "12.5").
func (b BasisPoints) Percent() string {
	whole := int64(b) / 100
	rem := int64(b) % 100
	if rem == 0 {
		return strconv.FormatInt(whole, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%02d", whole, rem), "0")
}

// String renders "13%".
func (b BasisPoints) String() string {
	return b.Percent() + "%"
}
