// Package match implements the similarity primitives and cascaded
// duplicate-detection policy used during ingestion and promotion.
package match

import (
	"math"
	"regexp"
	"strings"
)

var (
	keyCharPattern  = regexp.MustCompile(`[^a-z0-9 ]`)
	keySpacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeKey produces the comparison form of a name or address part:
// lowercase, stripped to [a-z0-9 ], single-spaced, trimmed.
func NormalizeKey(s string) string {
	s = strings.ToLower(s)
	s = keyCharPattern.ReplaceAllString(s, "")
	s = keySpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Ratio scores string similarity as 2*LCS/(len(a)+len(b)) over lowercased
// runes. 1.0 means identical, 0.0 means nothing in common.
func Ratio(a, b string) float64 {
	ar := []rune(strings.ToLower(a))
	br := []rune(strings.ToLower(b))
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			switch {
			case ar[i-1] == br[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return 2.0 * float64(prev[len(br)]) / float64(total)
}

const earthRadiusMiles = 3958.8

// Haversine returns the great-circle distance between two coordinates in
// miles.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}
