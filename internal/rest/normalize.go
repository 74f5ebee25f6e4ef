package rest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeLabel lowercases, strips diacritics and collapses whitespace so
// league names from the pregame feed match regardless of accent or casing
// variants ("Süper Lig" vs "super lig").
func normalizeLabel(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing (combining accents)
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchLeagueFilter reports whether a league name matches any of the
// requested filters under normalization. An empty filter set matches all.
func MatchLeagueFilter(league string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	want := normalizeLabel(league)
	for _, f := range filters {
		if normalizeLabel(f) == want {
			return true
		}
	}
	return false
}
