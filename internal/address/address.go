package address

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// HomeCountry is assumed when no segment names a country.
const HomeCountry = "Việt Nam"

// Components is a free-text address split into its parts.
// Nil pointers mean the part was not recognized.
type Components struct {
	Line1         *string
	City          *string
	StateProvince *string
	Country       *string
}

var (
	countryKeywords  = []string{"việt nam"}
	provinceKeywords = []string{"tỉnh", "thành phố"}
	cityKeywords     = []string{"phường", "xã", "đặc khu", "quận"}

	provinceAbbrev = regexp.MustCompile(`^tp[\s.]`)
)

// Parse splits s on commas and classifies segments from right to left:
// the first segment naming the country, then the first naming a province
// or centrally-run city, then the first naming a ward, commune or district.
// Every other segment belongs to the street line, in original order.
func Parse(s string) Components {
	var c Components

	var line1 []string
	parts := splitSegments(s)
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		lower := Fold(part)

		switch {
		case c.Country == nil && containsAny(lower, countryKeywords):
			c.Country = ptr(part)
		case c.StateProvince == nil && (containsAny(lower, provinceKeywords) || provinceAbbrev.MatchString(lower)):
			c.StateProvince = ptr(part)
		case c.City == nil && containsAny(lower, cityKeywords):
			c.City = ptr(part)
		default:
			line1 = append([]string{part}, line1...)
		}
	}

	if len(line1) > 0 {
		c.Line1 = ptr(strings.Join(line1, ", "))
	}
	if c.Country == nil {
		c.Country = ptr(HomeCountry)
	}
	return c
}

// Fold returns s in NFC form, lowercased with Vietnamese casing rules.
func Fold(s string) string {
	return cases.Lower(language.Vietnamese).String(norm.NFC.String(s))
}

func splitSegments(s string) []string {
	var parts []string
	for _, raw := range strings.Split(norm.NFC.String(s), ",") {
		if part := strings.TrimSpace(raw); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func ptr(s string) *string {
	return &s
}

// String dereferences p, returning "" for nil.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
