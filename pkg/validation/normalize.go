package validation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CollapseSpaces trims s and replaces every run of whitespace with one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is the canonical form used to compare species, towns and
// continents: trimmed, single-spaced and title-cased, so "  rosa  CANINA" and
// "Rosa canina" compare equal.
func NormalizeName(s string) string {
	s = CollapseSpaces(s)
	if s == "" {
		return ""
	}
	// Casers keep state between calls, so each call gets its own.
	return cases.Title(language.Und).String(s)
}

// NormalizeCountryCode upper-cases and trims an ISO country code.
func NormalizeCountryCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SplitName splits a full name into first name and the remainder. A single
// word yields an empty last name.
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// IsValidEmail reports whether v is a usable email address. Only the presence
// of "@" is checked; anything else is treated as no email at all.
func IsValidEmail(v any) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, "@")
}
