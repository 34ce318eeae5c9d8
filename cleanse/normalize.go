// Package cleanse turns bronze records into silver records. Every function is
// pure: it reads one raw record set and returns its cleansed counterpart
// without looking at any other entity.
package cleanse

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown marks a value that is missing or not recognised.
const Unknown = "Unknown"

var (
	genders = map[string]string{
		"M":      "Male",
		"MALE":   "Male",
		"F":      "Female",
		"FEMALE": "Female",
	}

	maritalStatuses = map[string]string{
		"M":       "Married",
		"MARRIED": "Married",
		"S":       "Single",
		"SINGLE":  "Single",
	}

	productLines = map[string]string{
		"M":           "Mountain",
		"MOUNTAIN":    "Mountain",
		"R":           "Road",
		"ROAD":        "Road",
		"S":           "Other Sales",
		"OTHER SALES": "Other Sales",
		"T":           "Touring",
		"TOURING":     "Touring",
	}

	countries = map[string]string{
		"US":  "United States",
		"USA": "United States",
		"DE":  "Germany",
	}
)

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// lookup maps a code through table after trimming and upper-casing it.
// Anything unmapped becomes Unknown.
func lookup(table map[string]string, s *string) string {
	if v, ok := table[strings.ToUpper(trimmed(s))]; ok {
		return v
	}
	return Unknown
}

// Gender maps F/M codes or the full words to Female/Male.
func Gender(s *string) string { return lookup(genders, s) }

// MaritalStatus maps S/M codes or the full words to Single/Married.
func MaritalStatus(s *string) string { return lookup(maritalStatuses, s) }

// ProductLine maps the one-letter product line codes (M, R, S, T) to names.
func ProductLine(s *string) string { return lookup(productLines, s) }

// Name trims a person name; blanks become Unknown.
func Name(s *string) string {
	if v := trimmed(s); v != "" {
		return v
	}
	return Unknown
}

// countryNormalizer holds a title caser, which is stateful and not safe for
// concurrent use.
type countryNormalizer struct {
	title cases.Caser
}

func newCountryNormalizer() *countryNormalizer {
	return &countryNormalizer{title: cases.Title(language.English)}
}

// Normalize maps known country codes to names and title-cases the rest.
func (n *countryNormalizer) Normalize(s *string) string {
	v := strings.ToUpper(trimmed(s))
	if v == "" {
		return Unknown
	}
	if name, ok := countries[v]; ok {
		return name
	}
	return n.title.String(v)
}

// Country normalizes a single country value.
func Country(s *string) string {
	return newCountryNormalizer().Normalize(s)
}
