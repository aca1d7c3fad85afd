// Package geocode verifies candidate addresses against Nominatim and
// scores how well the geocoder's answer agrees with the parsed address.
package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/match"
	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/pkg/nominatim"
)

// ConfidenceThreshold separates geocode_match from geocode_mismatch.
const ConfidenceThreshold = 0.7

// Searcher is the slice of the Nominatim client the verifier needs.
type Searcher interface {
	Search(ctx context.Context, q nominatim.Query) (*nominatim.Result, error)
}

// Verifier geocodes candidates and applies verification statuses.
type Verifier struct {
	client Searcher
	logger *zap.Logger
}

// NewVerifier creates a verifier backed by the given geocoding client.
func NewVerifier(client Searcher) *Verifier {
	return &Verifier{client: client, logger: zap.L().With(zap.String("component", "geocode"))}
}

// Verify geocodes one candidate in place and returns the status it
// applied. Lookup errors and unknown addresses both come back as
// geocode_failed so the candidate can be retried later; only context
// cancellation is returned as an error.
func (v *Verifier) Verify(ctx context.Context, cand *model.Candidate) (model.VerificationStatus, error) {
	result, err := v.client.Search(ctx, nominatim.Query{
		Street: cand.Street,
		City:   cand.City,
		State:  cand.State,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(err, "geocode: verify")
		}
		v.logger.Warn("lookup failed",
			zap.String("street", cand.Street),
			zap.String("city", cand.City),
			zap.String("state", cand.State),
			zap.Error(err))
		cand.Status = model.StatusGeocodeFailed
		return model.StatusGeocodeFailed, nil
	}
	if result == nil {
		v.logger.Debug("no results",
			zap.String("street", cand.Street),
			zap.String("city", cand.City),
			zap.String("state", cand.State))
		cand.Status = model.StatusGeocodeFailed
		return model.StatusGeocodeFailed, nil
	}

	lat, lon := result.Lat, result.Lon
	cand.Lat = &lat
	cand.Lon = &lon
	cand.GeoMatchedName = result.DisplayName
	if result.Address.Postcode != "" {
		cand.Zip = result.Address.Postcode
	}

	confidence := Score(cand.Street, cand.City, cand.State, result.Address)
	cand.GeoConfidence = &confidence

	if confidence >= ConfidenceThreshold {
		cand.Status = model.StatusGeocodeMatch
	} else {
		cand.Status = model.StatusGeocodeMismatch
	}
	return cand.Status, nil
}

// Score rates agreement between a parsed address and the geocoder's
// structured answer, 0 to 1. Only components present on both sides
// count. Rink names are excluded: names like "The Bog" never match
// what OSM knows, and the address is what verification cares about.
func Score(street, city, state string, addr nominatim.Address) float64 {
	var scores []float64

	if street != "" && addr.Road != "" {
		scores = append(scores, match.Ratio(street, addr.Road))
	}

	if locality := addr.Locality(); city != "" && locality != "" {
		scores = append(scores, match.Ratio(city, locality))
	}

	if state != "" {
		st := strings.ToUpper(strings.TrimSpace(state))
		switch {
		case addr.ISO3166Lvl4 != "":
			// ISO3166-2-lvl4 looks like "US-MA"; the suffix is the
			// state code.
			parts := strings.Split(addr.ISO3166Lvl4, "-")
			if strings.ToUpper(parts[len(parts)-1]) == st {
				scores = append(scores, 1.0)
			} else {
				scores = append(scores, 0.0)
			}
		case addr.State != "":
			geoSt := strings.ToUpper(strings.TrimSpace(addr.State))
			prefix := geoSt
			if len(prefix) > 2 {
				prefix = prefix[:2]
			}
			if st == geoSt || strings.HasPrefix(st, prefix) {
				scores = append(scores, 1.0)
			} else {
				scores = append(scores, match.Ratio(st, geoSt))
			}
		}
	}

	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
