package booking

import (
	"errors"
	"regexp"
	"strings"
)

var postalCodePattern = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z] \d[A-Za-z]\d$`)

// ServiceProvinces are the provinces the business travels to.
var ServiceProvinces = map[string]string{
	"BC": "British Columbia",
	"AB": "Alberta",
	"ON": "Ontario",
	"QC": "Quebec",
}

// Address is where the artists get the client ready.
type Address struct {
	Street       string `json:"street"`
	Unit         string `json:"unit,omitempty"`
	City         string `json:"city"`
	Province     string `json:"province"`
	PostalCode   string `json:"postal_code"`
	VenueName    string `json:"venue_name,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

// NormalizePostalCode uppercases a code and inserts the middle space when missing.
func NormalizePostalCode(raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if len(s) == 6 {
		return s[:3] + " " + s[3:]
	}
	return s
}

// Validate checks the required fields and the Canadian postal format.
func (a Address) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Street) == "" {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "address.street", "required"))
	}
	if strings.TrimSpace(a.City) == "" {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "address.city", "required"))
	}
	if _, ok := ServiceProvinces[strings.ToUpper(strings.TrimSpace(a.Province))]; !ok {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "address.province", "must be one of BC, AB, ON, QC"))
	}
	if !postalCodePattern.MatchString(NormalizePostalCode(a.PostalCode)) {
		errs = append(errs, NewFieldError(ErrInvalidDraft, "address.postal_code", "expected format A1A 1A1"))
	}
	return errors.Join(errs...)
}

// Normalized returns a copy with province and postal code in canonical form.
func (a Address) Normalized() Address {
	a.Province = strings.ToUpper(strings.TrimSpace(a.Province))
	a.PostalCode = NormalizePostalCode(a.PostalCode)
	return a
}

// OneLine renders the address for contract text and emails.
func (a Address) OneLine() string {
	parts := make([]string, 0, 5)
	if a.VenueName != "" {
		parts = append(parts, a.VenueName)
	}
	street := a.Street
	if a.Unit != "" {
		street = a.Unit + "-" + street
	}
	for _, p := range []string{street, a.City, strings.TrimSpace(a.Province + " " + a.PostalCode)} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
