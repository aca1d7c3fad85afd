package match

import (
	"github.com/skatetrax/ice-maker/internal/model"
)

// Match methods, recorded in rejection details and run stats.
const (
	MethodAddressExact = "address_exact"
	MethodFuzzyName    = "fuzzy_name"
	MethodGeoProximity = "geo_proximity"
)

const (
	fuzzyThreshold           = 0.80
	fuzzyStreetlessThreshold = 0.60
	proximityMiles           = 0.5
)

// Duplicate identifies the existing candidate a new one collided with and
// which layer caught it.
type Duplicate struct {
	Candidate *model.Candidate
	Method    string
}

// FindDuplicate runs the cascaded duplicate policy for cand. The verified
// pool holds candidates with status geocode_match, human_approved or
// source_verified; the unverified pool extends layer 2 when cand has no
// street, so that street-less listings can still collide with each other.
// Layers run in order and the first hit wins:
//
//  1. exact normalized (street, city, state) against the verified pool
//  2. name similarity within the same (city, state), threshold 0.80, or
//     0.60 when either side has no street
//  3. coordinates within 0.5 miles of a verified candidate
func FindDuplicate(cand *model.Candidate, verified, unverified []*model.Candidate) *Duplicate {
	candStreet := NormalizeKey(cand.Street)
	candCity := NormalizeKey(cand.City)
	candState := NormalizeKey(cand.State)
	candName := NormalizeKey(cand.Name)

	if candStreet != "" {
		for _, c := range verified {
			if c.ID == cand.ID {
				continue
			}
			street := NormalizeKey(c.Street)
			if street == "" || street != candStreet {
				continue
			}
			if NormalizeKey(c.City) == candCity && NormalizeKey(c.State) == candState {
				return &Duplicate{Candidate: c, Method: MethodAddressExact}
			}
		}
	}

	pool := verified
	if candStreet == "" {
		pool = make([]*model.Candidate, 0, len(verified)+len(unverified))
		pool = append(pool, verified...)
		pool = append(pool, unverified...)
	}
	for _, c := range pool {
		if c.ID == cand.ID {
			continue
		}
		if NormalizeKey(c.City) != candCity || NormalizeKey(c.State) != candState {
			continue
		}
		threshold := fuzzyThreshold
		if candStreet == "" || NormalizeKey(c.Street) == "" {
			threshold = fuzzyStreetlessThreshold
		}
		if Ratio(candName, NormalizeKey(c.Name)) >= threshold {
			return &Duplicate{Candidate: c, Method: MethodFuzzyName}
		}
	}

	if cand.HasCoords() {
		for _, c := range verified {
			if c.ID == cand.ID || !c.HasCoords() {
				continue
			}
			if Haversine(*cand.Lat, *cand.Lon, *c.Lat, *c.Lon) <= proximityMiles {
				return &Duplicate{Candidate: c, Method: MethodGeoProximity}
			}
		}
	}

	return nil
}
