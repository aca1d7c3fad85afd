package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/model"
)

const defaultGeocodeBatch = 50

// GeocodePending geocodes candidates that are still unverified, optionally
// restricted to one source. Street-less candidates are skipped; the
// geocoder needs a street for a meaningful answer. Candidates leave the
// unverified status as they are processed, so an interrupted sweep picks
// up where it left off.
func (r *Runner) GeocodePending(ctx context.Context, sourceName string, progressEvery int) (Stats, error) {
	stats := newStats(
		"total_pending", "skipped_no_street",
		"geocoded", "geocode_match", "geocode_mismatch", "geocode_failed",
	)
	if r.verifier == nil {
		return nil, eris.New("pipeline: no geocoder configured")
	}
	if progressEvery <= 0 {
		progressEvery = defaultGeocodeBatch
	}

	if sourceName != "" {
		src, err := r.store.GetSourceByName(ctx, sourceName)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, eris.Errorf("pipeline: source %q not found in sources table", sourceName)
		}
	}

	pending, err := r.store.PendingGeocode(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	stats["total_pending"] = len(pending)

	var withStreet []*model.Candidate
	for _, c := range pending {
		if strings.TrimSpace(c.Street) == "" {
			stats["skipped_no_street"]++
			continue
		}
		withStreet = append(withStreet, c)
	}
	r.logger.Info("geocoding pending candidates",
		zap.Int("pending", stats["total_pending"]),
		zap.Int("skipped_no_street", stats["skipped_no_street"]))

	start := time.Now()
	for i, cand := range withStreet {
		if err := r.geocodeCandidate(ctx, cand.RawEntryID, cand, nil, stats); err != nil {
			return nil, err
		}
		if (i+1)%progressEvery == 0 {
			rate := 0.0
			if secs := time.Since(start).Seconds(); secs > 0 {
				rate = float64(i+1) / secs
			}
			r.logger.Info("geocode progress",
				zap.Int("done", i+1),
				zap.Int("total", len(withStreet)),
				zap.Float64("per_sec", rate))
		}
	}

	r.logger.Info("geocoding complete",
		zap.Int("geocoded", stats["geocoded"]),
		zap.Int("match", stats["geocode_match"]),
		zap.Int("mismatch", stats["geocode_mismatch"]),
		zap.Int("failed", stats["geocode_failed"]))
	return stats, nil
}

// RepairFailed returns geocode_failed candidates to the unverified pool,
// clearing coordinates, confidence and zip, so the next geocode sweep
// retries them from a clean slate.
func (r *Runner) RepairFailed(ctx context.Context) (Stats, error) {
	n, err := r.store.ResetFailedGeocodes(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("reset failed geocodes to unverified", zap.Int("reset", n))
	return Stats{"reset": n}, nil
}
