// Package normalize turns raw scraped rink listings into canonical
// name/street/city/state tuples. It repairs text encoding, tags address
// components, expands postal abbreviations and maps state names to their
// 2-letter codes.
package normalize

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/model"
)

// Parsed is the canonical form of a raw entry: title-cased name and city,
// uppercase expanded street, 2-letter uppercase state.
type Parsed struct {
	Name   string
	Street string
	City   string
	State  string
}

// Entry normalizes a raw listing that carries a full postal address.
// It fails when the address cannot be tagged or when the name or street
// comes out empty; the error text is what lands in the rejection record.
func Entry(rawName, rawAddress string) (*Parsed, error) {
	name := CleanName(rawName)

	comps, err := Tag(rawAddress)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: tag address %q", rawAddress)
	}

	street := joinNonEmpty(
		comps.AddressNumber,
		comps.StreetNamePreDirectional,
		comps.StreetName,
		comps.StreetNamePostType,
		comps.StreetNamePostDirectional,
		comps.OccupancyIdentifier,
	)
	if street != "" {
		street = CanonicalStreet(street)
	}

	city := TitleCase(strings.TrimSpace(StripPunct(comps.PlaceName)))
	state := strings.ToUpper(AbbrevState(strings.TrimSpace(comps.StateName)))

	if name == "" || street == "" {
		return nil, eris.Errorf("normalize: missing required fields: name=%q, street=%q", name, street)
	}

	return &Parsed{
		Name:   TitleCase(name),
		Street: street,
		City:   city,
		State:  state,
	}, nil
}

// WikiEntry normalizes a listing without a street address, where city and
// state were captured separately. It requires a name and at least one of
// city or state.
func WikiEntry(rawName string, extras model.Extras) (*Parsed, error) {
	name := CleanName(rawName)
	if name == "" {
		return nil, eris.Errorf("normalize: missing rink name")
	}

	city := strings.TrimSpace(extras.City)
	state := strings.ToUpper(AbbrevState(strings.TrimSpace(extras.State)))
	if city == "" && state == "" {
		return nil, eris.Errorf("normalize: no city or state for %q", name)
	}

	return &Parsed{
		Name:  TitleCase(name),
		City:  TitleCase(city),
		State: state,
	}, nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
