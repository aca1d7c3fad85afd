package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Components holds the labeled parts of a tagged postal address. Only the
// labels the pipeline consumes are represented; anything else the tagger
// sees is folded into StreetName.
type Components struct {
	AddressNumber             string
	StreetNamePreDirectional  string
	StreetName                string
	StreetNamePostType        string
	StreetNamePostDirectional string
	OccupancyType             string
	OccupancyIdentifier       string
	PlaceName                 string
	StateName                 string
	ZipCode                   string
}

// RepeatedLabelError is returned when an address contains two spans that
// both demand the same label, e.g. "100 Main St 456 Oak Ave". Such
// addresses are ambiguous and the caller records them as parse failures.
type RepeatedLabelError struct {
	Label string
}

func (e *RepeatedLabelError) Error() string {
	return fmt.Sprintf("repeated label %s in address", e.Label)
}

var (
	addressNumberPattern = regexp.MustCompile(`^\d+(?:-\d+)?[A-Za-z]?$`)
	digitsPattern        = regexp.MustCompile(`^\d+$`)
	stateZipPattern      = regexp.MustCompile(`^([A-Za-z][A-Za-z. ]*?)[\s,]*(\d{5}(?:-\d{4})?)?$`)
	occupancySegPattern  = regexp.MustCompile(`(?i)^(?:apt|apts|ste|suite|unit|rm|room|bldg|fl|floor|lot|#)\.?\s*(\S.*)$`)
)

var directionals = map[string]bool{
	"N": true, "S": true, "E": true, "W": true,
	"NE": true, "NW": true, "SE": true, "SW": true,
	"NORTH": true, "SOUTH": true, "EAST": true, "WEST": true,
	"NORTHEAST": true, "NORTHWEST": true, "SOUTHEAST": true, "SOUTHWEST": true,
}

var streetTypes = map[string]bool{
	"ST": true, "STREET": true, "AVE": true, "AVENUE": true,
	"BLVD": true, "BOULEVARD": true, "RD": true, "ROAD": true,
	"DR": true, "DRIVE": true, "HWY": true, "HW": true, "HIGHWAY": true,
	"PKWY": true, "PARKWAY": true, "LN": true, "LANE": true,
	"CT": true, "COURT": true, "CIR": true, "CIRCLE": true,
	"PL": true, "PLACE": true, "SQ": true, "SQUARE": true,
	"TPKE": true, "TURNPIKE": true, "TR": true, "TRL": true, "TRAIL": true,
	"WAY": true, "TER": true, "TERRACE": true, "LOOP": true,
	"PIKE": true, "PATH": true, "XING": true, "CROSSING": true,
	"RTE": true, "ROUTE": true,
}

var occupancyTypes = map[string]bool{
	"APT": true, "APTS": true, "STE": true, "SUITE": true,
	"UNIT": true, "RM": true, "ROOM": true, "BLDG": true,
	"FL": true, "FLOOR": true, "LOT": true, "DEPT": true, "OFC": true,
}

// Highway designators allow a trailing number without it reading as a
// second address number ("1400 Highway 101").
var highwayWords = map[string]bool{
	"HWY": true, "HW": true, "HIGHWAY": true, "RTE": true, "ROUTE": true,
	"RT": true, "US": true, "SR": true, "CR": true, "FM": true,
	"COUNTY": true, "STATE": true, "INTERSTATE": true, "I": true,
}

// Tag labels the parts of a raw address string. It expects the loosely
// comma-separated "street, city, state" shape the directory sources emit
// and tags whatever subset of components is present. It returns a
// *RepeatedLabelError when two spans compete for the same label.
func Tag(address string) (Components, error) {
	var c Components

	address = strings.TrimSpace(address)
	if address == "" {
		return c, fmt.Errorf("empty address")
	}

	var segments []string
	for _, seg := range strings.Split(address, ",") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return c, fmt.Errorf("empty address")
	}

	segments = tagStateSegment(&c, segments)
	segments = tagPlaceSegment(&c, segments)

	var streetParts []string
	for _, seg := range segments {
		if m := occupancySegPattern.FindStringSubmatch(seg); m != nil {
			if c.OccupancyIdentifier != "" {
				return c, &RepeatedLabelError{Label: "OccupancyIdentifier"}
			}
			fields := strings.Fields(seg)
			c.OccupancyType = strings.TrimSuffix(fields[0], ".")
			c.OccupancyIdentifier = strings.TrimSpace(m[1])
			continue
		}
		streetParts = append(streetParts, seg)
	}

	if err := tagStreet(&c, strings.Join(streetParts, " ")); err != nil {
		return c, err
	}
	return c, nil
}

// tagStateSegment consumes the final segment when it reads as a state
// (optionally with a trailing zip) or as "city ST [zip]".
func tagStateSegment(c *Components, segments []string) []string {
	last := segments[len(segments)-1]
	if m := stateZipPattern.FindStringSubmatch(last); m != nil {
		name, zip := strings.TrimSpace(m[1]), m[2]
		if IsState(name) {
			c.StateName = name
			c.ZipCode = zip
			return segments[:len(segments)-1]
		}
		// "Springfield IL 62701" as a single segment.
		if i := strings.LastIndex(name, " "); i > 0 {
			head, tail := name[:i], name[i+1:]
			if len(tail) == 2 && IsState(tail) {
				c.PlaceName = strings.TrimSpace(head)
				c.StateName = tail
				c.ZipCode = zip
				return segments[:len(segments)-1]
			}
		}
		if zip != "" && name == "" {
			c.ZipCode = zip
			return segments[:len(segments)-1]
		}
	}
	return segments
}

// tagPlaceSegment consumes the final remaining segment as the city. A lone
// segment is kept for the street instead when it reads like one, so that
// "100 Main St" tags a street while "Springfield" tags a city.
func tagPlaceSegment(c *Components, segments []string) []string {
	if c.PlaceName != "" || len(segments) == 0 {
		return segments
	}
	last := segments[len(segments)-1]
	if occupancySegPattern.MatchString(last) {
		return segments
	}
	if len(segments) == 1 && looksLikeStreet(last) {
		return segments
	}
	c.PlaceName = last
	return segments[:len(segments)-1]
}

func looksLikeStreet(seg string) bool {
	fields := strings.Fields(seg)
	if len(fields) == 0 {
		return false
	}
	if addressNumberPattern.MatchString(fields[0]) {
		return true
	}
	for _, f := range fields {
		upper := strings.ToUpper(strings.TrimSuffix(f, "."))
		if streetTypes[upper] || highwayWords[upper] {
			return true
		}
	}
	return false
}

func tagStreet(c *Components, street string) error {
	tokens := strings.Fields(street)
	if len(tokens) == 0 {
		return nil
	}

	if addressNumberPattern.MatchString(tokens[0]) {
		c.AddressNumber = tokens[0]
		tokens = tokens[1:]
	}
	if len(tokens) > 1 && directionals[strings.ToUpper(strings.TrimSuffix(tokens[0], "."))] {
		c.StreetNamePreDirectional = tokens[0]
		tokens = tokens[1:]
	}

	// Inline occupancy: "Suite 200", "Apt B", "# 4" or "#4" at the tail.
	for i, tok := range tokens {
		upper := strings.ToUpper(strings.TrimSuffix(tok, "."))
		if occupancyTypes[upper] && i+1 < len(tokens) {
			if c.OccupancyIdentifier != "" {
				return &RepeatedLabelError{Label: "OccupancyIdentifier"}
			}
			c.OccupancyType = strings.TrimSuffix(tok, ".")
			c.OccupancyIdentifier = strings.Join(tokens[i+1:], " ")
			tokens = tokens[:i]
			break
		}
		if strings.HasPrefix(tok, "#") && len(tok) > 1 {
			if c.OccupancyIdentifier != "" {
				return &RepeatedLabelError{Label: "OccupancyIdentifier"}
			}
			c.OccupancyIdentifier = strings.TrimPrefix(tok, "#")
			tokens = append(tokens[:i], tokens[i+1:]...)
			break
		}
	}

	if n := len(tokens); n > 1 && directionals[strings.ToUpper(strings.TrimSuffix(tokens[n-1], "."))] {
		c.StreetNamePostDirectional = tokens[n-1]
		tokens = tokens[:n-1]
	}
	if n := len(tokens); n > 1 && streetTypes[strings.ToUpper(strings.TrimSuffix(tokens[n-1], "."))] {
		c.StreetNamePostType = tokens[n-1]
		tokens = tokens[:n-1]
	}

	for i, tok := range tokens {
		if !digitsPattern.MatchString(tok) || c.AddressNumber == "" {
			continue
		}
		prev := ""
		if i > 0 {
			prev = strings.ToUpper(strings.TrimSuffix(tokens[i-1], "."))
		}
		if !highwayWords[prev] {
			return &RepeatedLabelError{Label: "AddressNumber"}
		}
	}

	c.StreetName = strings.Join(tokens, " ")
	return nil
}
