package normalize

import (
	"regexp"
	"strings"
)

// streetAbbrevs expands the postal abbreviations that appear in source
// listings. Expansion runs per word on the uppercased street, so "Blvd."
// never matches but "BLVD" does; punctuation is stripped before this runs.
var streetAbbrevs = map[string]string{
	"APT":  "APARTMENT",
	"APTS": "APARTMENTS",
	"AVE":  "AVENUE",
	"BLVD": "BOULEVARD",
	"BR":   "BRIDGE",
	"CIR":  "CIRCLE",
	"CT":   "COURT",
	"DR":   "DRIVE",
	"HWY":  "HIGHWAY",
	"HW":   "HIGHWAY",
	"LK":   "LAKE",
	"LN":   "LANE",
	"RD":   "ROAD",
	"MT":   "MOUNT",
	"MTN":  "MOUNTAIN",
	"PKWY": "PARKWAY",
	"PL":   "PLACE",
	"RTE":  "ROUTE",
	"SQ":   "SQUARE",
	"ST":   "STREET",
	"STE":  "SUITE",
	"TPKE": "TURNPIKE",
	"TR":   "TRAIL",
}

var streetCharPattern = regexp.MustCompile(`[^A-Za-z0-9 ]`)

// ExpandAbbreviations uppercases the street and expands each recognized
// postal abbreviation to its full word.
func ExpandAbbreviations(street string) string {
	words := strings.Fields(strings.ToUpper(street))
	for i, w := range words {
		if full, ok := streetAbbrevs[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// CanonicalStreet strips everything outside [A-Za-z0-9 ] and expands
// abbreviations, yielding the uppercase form stored on candidates.
func CanonicalStreet(street string) string {
	street = streetCharPattern.ReplaceAllString(street, "")
	return ExpandAbbreviations(street)
}
