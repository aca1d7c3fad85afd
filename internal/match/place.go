package match

import (
	"github.com/skatetrax/ice-maker/internal/model"
)

// Record is a promotable place row: an existing directory Location or a
// peer-system rink. The promoter flattens both into this shape before
// matching.
type Record struct {
	ID     string
	Name   string
	Street string
	City   string
	State  string
}

// MatchPlace applies the first two duplicate layers to a candidate against
// place records: exact normalized address, then name similarity within the
// same city and state with the relaxed threshold when either side has no
// street. Place records carry no coordinates, so there is no geographic
// layer.
func MatchPlace(cand *model.Candidate, records []Record) *Record {
	candStreet := NormalizeKey(cand.Street)
	candCity := NormalizeKey(cand.City)
	candState := NormalizeKey(cand.State)
	candName := NormalizeKey(cand.Name)

	if candStreet != "" {
		for i := range records {
			street := NormalizeKey(records[i].Street)
			if street == "" || street != candStreet {
				continue
			}
			if NormalizeKey(records[i].City) == candCity && NormalizeKey(records[i].State) == candState {
				return &records[i]
			}
		}
	}

	for i := range records {
		if NormalizeKey(records[i].City) != candCity || NormalizeKey(records[i].State) != candState {
			continue
		}
		threshold := fuzzyThreshold
		if candStreet == "" || NormalizeKey(records[i].Street) == "" {
			threshold = fuzzyStreetlessThreshold
		}
		if Ratio(candName, NormalizeKey(records[i].Name)) >= threshold {
			return &records[i]
		}
	}

	return nil
}
