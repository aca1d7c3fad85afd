package normalize

import "strings"

// StateCodes lists every US state plus the federal district and inhabited
// territories. Source fetchers that query per state iterate this list.
var StateCodes = []string{
	"AK", "AL", "AR", "AZ", "CA", "CO", "CT", "DE", "FL", "GA", "HI", "IA",
	"ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME", "MI", "MN", "MO",
	"MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM", "NV", "NY", "OH", "OK",
	"OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VA", "VT", "WA", "WI",
	"WV", "WY",
	"DC",
	"AS", "GU", "MP", "PR", "VI",
}

// stateToAbbrev maps lowercased full state names and existing 2-letter codes
// to the canonical 2-letter code. Includes DC and the territories.
var stateToAbbrev = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
	"district of columbia": "DC",
	"american samoa":       "AS",
	"guam":                 "GU",
	"northern mariana islands":             "MP",
	"puerto rico":                          "PR",
	"united states minor outlying islands": "UM",
	"u.s. virgin islands":                  "VI",
}

func init() {
	for _, code := range StateCodes {
		stateToAbbrev[strings.ToLower(code)] = code
	}
	stateToAbbrev["um"] = "UM"
}

// AbbrevState converts a full state name to its 2-letter code. Existing
// codes pass through uppercased; unrecognized values are returned as-is.
func AbbrevState(s string) string {
	if code, ok := stateToAbbrev[strings.ToLower(strings.TrimSpace(s))]; ok {
		return code
	}
	return s
}

// IsState reports whether s is a recognized state name or code.
func IsState(s string) bool {
	_, ok := stateToAbbrev[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
