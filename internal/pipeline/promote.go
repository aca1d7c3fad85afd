package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/match"
	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
	"github.com/skatetrax/ice-maker/pkg/skatetrax"
)

const defaultPromoteBatch = 100

// matchedCandidateRe recovers the primary candidate id a duplicate
// rejection points at.
var matchedCandidateRe = regexp.MustCompile(`Matches candidate (\d+):`)

// PeerDirectory supplies the peer system's rink list for UUID adoption.
// Implementations degrade to an empty list when the peer is unreachable;
// promotion then mints fresh UUIDs.
type PeerDirectory interface {
	Rinks(ctx context.Context) ([]skatetrax.Rink, error)
}

// Promoter moves verified candidates into the locations directory in three
// phases: promote verified, link duplicates to their primaries, and link
// street-less wiki entries by name.
type Promoter struct {
	store         store.Store
	peer          PeerDirectory
	progressEvery int
	logger        *zap.Logger
}

// NewPromoter creates a promoter. peer may be nil when no peer system is
// configured. progressEvery controls the progress log cadence; values
// under 1 fall back to the default of 100.
func NewPromoter(st store.Store, peer PeerDirectory, progressEvery int) *Promoter {
	if progressEvery <= 0 {
		progressEvery = defaultPromoteBatch
	}
	return &Promoter{
		store:         st,
		peer:          peer,
		progressEvery: progressEvery,
		logger:        zap.L().With(zap.String("component", "pipeline.promote")),
	}
}

// Run executes all three promotion phases and returns combined stats,
// including the final location count.
func (p *Promoter) Run(ctx context.Context) (Stats, error) {
	stats := newStats(
		"promoted_new", "promoted_existing", "adopted_skatetrax_uuid",
		"skipped_no_zip", "linked", "primary_not_promoted", "parse_failed",
		"wiki_linked", "wiki_no_match",
	)

	peerRecords := p.loadPeerRecords(ctx)

	sources, err := p.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	sourceNames := make(map[int]string, len(sources))
	for _, s := range sources {
		sourceNames[s.ID] = s.Name
	}

	if err := p.promoteVerified(ctx, peerRecords, sourceNames, stats); err != nil {
		return nil, err
	}
	if err := p.linkDuplicates(ctx, stats); err != nil {
		return nil, err
	}
	if err := p.linkStreetless(ctx, stats); err != nil {
		return nil, err
	}

	total, err := p.store.CountLocations(ctx)
	if err != nil {
		return nil, err
	}
	stats["total_locations"] = total

	p.logger.Info("promotion complete",
		zap.Int("promoted_new", stats["promoted_new"]),
		zap.Int("promoted_existing", stats["promoted_existing"]),
		zap.Int("adopted_skatetrax_uuid", stats["adopted_skatetrax_uuid"]),
		zap.Int("duplicates_linked", stats["linked"]),
		zap.Int("wiki_linked", stats["wiki_linked"]),
		zap.Int("total_locations", total))
	return stats, nil
}

// loadPeerRecords fetches the peer rink list. Any failure degrades to an
// empty list; new locations then receive fresh UUIDs.
func (p *Promoter) loadPeerRecords(ctx context.Context) []match.Record {
	if p.peer == nil {
		return nil
	}
	rinks, err := p.peer.Rinks(ctx)
	if err != nil {
		p.logger.Warn("peer rink list unavailable", zap.Error(err))
		return nil
	}
	if len(rinks) == 0 {
		p.logger.Info("no peer rinks available for UUID alignment, new locations get fresh UUIDs")
		return nil
	}
	p.logger.Info("loaded peer rinks for UUID alignment", zap.Int("rinks", len(rinks)))

	records := make([]match.Record, 0, len(rinks))
	for _, r := range rinks {
		records = append(records, match.Record{
			ID:     r.ID,
			Name:   r.Name,
			Street: r.Address,
			City:   r.City,
			State:  r.State,
		})
	}
	return records
}

// promoteVerified is phase 1: geocode_match and source_verified candidates
// without a location become directory rows, either linked to an existing
// location, adopted under a peer UUID, or minted fresh.
func (p *Promoter) promoteVerified(ctx context.Context, peerRecords []match.Record, sourceNames map[int]string, stats Stats) error {
	candidates, err := p.store.PromotableCandidates(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("phase 1: promoting verified candidates", zap.Int("candidates", len(candidates)))

	locations, err := p.store.MatchableLocations(ctx)
	if err != nil {
		return err
	}
	records := locationRecords(locations)

	for i, cand := range candidates {
		if cand.Zip == "" {
			stats["skipped_no_zip"]++
			continue
		}

		if rec := match.MatchPlace(cand, records); rec != nil {
			if err := p.link(ctx, rec.ID, cand); err != nil {
				return err
			}
			stats["promoted_existing"]++
		} else if err := p.mint(ctx, cand, peerRecords, &records, sourceNames, stats); err != nil {
			return err
		}

		if (i+1)%p.progressEvery == 0 {
			p.logger.Info("phase 1 progress", zap.Int("done", i+1), zap.Int("total", len(candidates)))
		}
	}

	p.logger.Info("phase 1 done",
		zap.Int("promoted_new", stats["promoted_new"]),
		zap.Int("adopted_skatetrax_uuid", stats["adopted_skatetrax_uuid"]),
		zap.Int("promoted_existing", stats["promoted_existing"]),
		zap.Int("skipped_no_zip", stats["skipped_no_zip"]))
	return nil
}

// mint creates a directory location for a candidate with no local match.
// A peer match whose UUID already exists locally links instead; a peer
// match with an unseen UUID is adopted so both systems share identifiers.
func (p *Promoter) mint(ctx context.Context, cand *model.Candidate, peerRecords []match.Record, records *[]match.Record, sourceNames map[int]string, stats Stats) error {
	adoptedID := ""
	if rec := match.MatchPlace(cand, peerRecords); rec != nil {
		existing, err := p.store.GetLocation(ctx, rec.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := p.link(ctx, existing.ID, cand); err != nil {
				return err
			}
			stats["promoted_existing"]++
			return nil
		}
		adoptedID = rec.ID
	}

	loc := &model.Location{
		Name:       cand.Name,
		Address:    cand.Street,
		City:       cand.City,
		State:      cand.State,
		Country:    cand.Country,
		Zip:        cand.Zip,
		Status:     model.LocationActive,
		DataSource: "unknown",
	}
	if loc.Country == "" {
		loc.Country = "US"
	}
	raw, err := p.store.GetRawEntry(ctx, cand.RawEntryID)
	if err != nil {
		return err
	}
	if raw != nil {
		if name, ok := sourceNames[raw.SourceID]; ok {
			loc.DataSource = name
		}
	}

	if adoptedID != "" {
		loc.ID = adoptedID
		p.logger.Info("adopting skatetrax UUID",
			zap.String("rink_id", adoptedID),
			zap.String("name", cand.Name),
			zap.String("city", cand.City),
			zap.String("state", cand.State))
		stats["adopted_skatetrax_uuid"]++
	} else {
		loc.ID = uuid.New().String()
	}

	if err := p.store.InsertLocation(ctx, loc); err != nil {
		return err
	}
	if err := p.link(ctx, loc.ID, cand); err != nil {
		return err
	}
	*records = append(*records, match.Record{
		ID:     loc.ID,
		Name:   loc.Name,
		Street: loc.Address,
		City:   loc.City,
		State:  loc.State,
	})
	stats["promoted_new"]++
	return nil
}

// linkDuplicates is phase 2: duplicate candidates follow their primary to
// whatever location it was promoted to.
func (p *Promoter) linkDuplicates(ctx context.Context, stats Stats) error {
	duplicates, err := p.store.DuplicateCandidates(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("phase 2: linking duplicate candidates", zap.Int("duplicates", len(duplicates)))

	reasons := []model.RejectReason{model.RejectDuplicateExact, model.RejectSuspectedDupe}
	for i, dup := range duplicates {
		rejection, err := p.store.FirstRejectionForRaw(ctx, dup.RawEntryID, reasons)
		if err != nil {
			return err
		}
		if rejection == nil || rejection.Detail == "" {
			stats["parse_failed"]++
			continue
		}
		m := matchedCandidateRe.FindStringSubmatch(rejection.Detail)
		if m == nil {
			stats["parse_failed"]++
			continue
		}
		primaryID, err := strconv.Atoi(m[1])
		if err != nil {
			stats["parse_failed"]++
			continue
		}

		primary, err := p.store.GetCandidate(ctx, primaryID)
		if err != nil {
			return err
		}
		if primary == nil || primary.LocationID == "" {
			stats["primary_not_promoted"]++
			continue
		}

		if err := p.link(ctx, primary.LocationID, dup); err != nil {
			return err
		}
		stats["linked"]++

		if (i+1)%p.progressEvery == 0 {
			p.logger.Info("phase 2 progress", zap.Int("done", i+1), zap.Int("total", len(duplicates)))
		}
	}

	p.logger.Info("phase 2 done",
		zap.Int("linked", stats["linked"]),
		zap.Int("primary_not_promoted", stats["primary_not_promoted"]),
		zap.Int("parse_failed", stats["parse_failed"]))
	return nil
}

// linkStreetless is phase 3: unverified candidates with no street address
// (wiki rows) link to existing locations by name within the same city and
// state. No new locations are created; wiki data alone is not enough.
func (p *Promoter) linkStreetless(ctx context.Context, stats Stats) error {
	candidates, err := p.store.StreetlessUnverified(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("phase 3: linking streetless candidates", zap.Int("candidates", len(candidates)))

	locations, err := p.store.MatchableLocations(ctx)
	if err != nil {
		return err
	}
	records := locationRecords(locations)

	for i, cand := range candidates {
		if rec := match.MatchPlace(cand, records); rec != nil {
			if err := p.link(ctx, rec.ID, cand); err != nil {
				return err
			}
			stats["wiki_linked"]++
		} else {
			stats["wiki_no_match"]++
		}

		if (i+1)%p.progressEvery == 0 {
			p.logger.Info("phase 3 progress", zap.Int("done", i+1), zap.Int("total", len(candidates)))
		}
	}

	p.logger.Info("phase 3 done",
		zap.Int("wiki_linked", stats["wiki_linked"]),
		zap.Int("wiki_no_match", stats["wiki_no_match"]))
	return nil
}

// link resolves a candidate to a location and records the source
// corroboration. A raw entry that vanished means no corroboration can be
// attributed; the candidate still gets its location.
func (p *Promoter) link(ctx context.Context, locationID string, cand *model.Candidate) error {
	if err := p.store.SetCandidateLocation(ctx, cand.ID, locationID); err != nil {
		return err
	}
	raw, err := p.store.GetRawEntry(ctx, cand.RawEntryID)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	now := time.Now().UTC()
	candidateID := cand.ID
	return p.store.UpsertLocationSource(ctx, &model.LocationSource{
		LocationID:  locationID,
		SourceID:    raw.SourceID,
		CandidateID: &candidateID,
		FirstSeenAt: &now,
		LastSeenAt:  &now,
		IsPresent:   true,
	})
}

func locationRecords(locations []model.Location) []match.Record {
	records := make([]match.Record, 0, len(locations))
	for _, loc := range locations {
		records = append(records, match.Record{
			ID:     loc.ID,
			Name:   loc.Name,
			Street: loc.Address,
			City:   loc.City,
			State:  loc.State,
		})
	}
	return records
}
