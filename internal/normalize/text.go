package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

var (
	recCtrPattern = regexp.MustCompile(`(?i)\brec\s+ctr\b`)
	punctPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// RepairText reverses the common double-encoding where UTF-8 bytes were
// mis-read as Latin-1 ("CafÃ©" for "Café"). The text is encoded back to
// ISO-8859-1 and re-decoded as UTF-8; if either step fails the input was
// not mojibake and is returned unchanged.
func RepairText(s string) string {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return s
	}
	if !utf8.Valid(b) {
		return s
	}
	return string(b)
}

// CleanName repairs encoding damage and expands the "Rec Ctr" shorthand
// that several municipal listings use.
func CleanName(s string) string {
	s = RepairText(s)
	s = recCtrPattern.ReplaceAllString(s, "Recreation Center")
	return strings.TrimSpace(s)
}

// TitleCase title-cases s using English casing rules. A fresh caser is
// built per call because cases.Caser is not safe for concurrent use.
func TitleCase(s string) string {
	return cases.Title(language.AmericanEnglish).String(s)
}

// StripPunct removes punctuation, keeping letters, digits, underscores and
// whitespace.
func StripPunct(s string) string {
	return punctPattern.ReplaceAllString(s, "")
}

// CollapseSpaces replaces runs of whitespace with a single space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
