// Package phone normalizes free-form phone numbers to E.164.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize returns the E.164 form of raw (e.g. "+14155551234").
// defaultRegion (ISO 3166-1 alpha-2) only applies when raw has no explicit country prefix.
// Blank, unparseable and invalid numbers yield ok=false; errors never escape.
func Normalize(raw, defaultRegion string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	formatted := phonenumbers.Format(num, phonenumbers.E164)
	if formatted == "" {
		return "", false
	}
	return formatted, true
}

// Valid reports whether raw normalizes under defaultRegion.
func Valid(raw, defaultRegion string) bool {
	_, ok := Normalize(raw, defaultRegion)
	return ok
}
