// Package pipeline drives the staging flow end to end: scraping sources
// into raw entries, parsing them into candidates, deduplication, geocode
// verification, and promotion into the locations directory. Every
// operation returns a Stats map so callers can print what happened.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/fingerprint"
	"github.com/skatetrax/ice-maker/internal/match"
	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/normalize"
	"github.com/skatetrax/ice-maker/internal/source"
	"github.com/skatetrax/ice-maker/internal/store"
)

// peerSourceName is the seed source fed by the ice-time sync rather than a
// fetcher. The runner never scrapes it.
const peerSourceName = "skatetrax"

// wikiFormatter marks sources whose rows carry city/state in extras and no
// street address.
const wikiFormatter = "wiki"

// Stats is the counter map every pipeline operation returns. Keys are
// preset to zero so a run always reports the full set.
type Stats map[string]int

func newStats(keys ...string) Stats {
	s := make(Stats, len(keys))
	for _, k := range keys {
		s[k] = 0
	}
	return s
}

// Verifier is the slice of the geocode verifier the runner needs.
type Verifier interface {
	Verify(ctx context.Context, cand *model.Candidate) (model.VerificationStatus, error)
}

// FetcherRegistry resolves fetcher module names from the sources table.
type FetcherRegistry interface {
	Get(name string) (source.Fetcher, error)
}

// RunOptions tunes a single source run.
type RunOptions struct {
	ScrapeOnly bool // capture raw entries only, skip parsing and verification
	NoGeocode  bool // parse and dedup but defer geocoding to a later pass
	Limit      int  // stop after this many new raw entries (0 = no limit)
}

// Runner executes the scrape-parse-verify flow one source at a time.
type Runner struct {
	store    store.Store
	registry FetcherRegistry
	verifier Verifier
	logger   *zap.Logger
}

// NewRunner creates a runner. The verifier may be nil when geocoding is
// not configured; runs then behave as if NoGeocode were set. The registry
// may be nil for runners that only geocode or repair.
func NewRunner(st store.Store, registry FetcherRegistry, verifier Verifier) *Runner {
	return &Runner{
		store:    st,
		registry: registry,
		verifier: verifier,
		logger:   zap.L().With(zap.String("component", "pipeline.runner")),
	}
}

// RunSource scrapes one source and carries every new row through parsing,
// dedup and verification. A disabled source is skipped with zero stats; a
// fetch failure records a failed run on the source row.
func (r *Runner) RunSource(ctx context.Context, sourceName string, opts RunOptions) (Stats, error) {
	stats := newStats(
		"scraped", "new", "skipped", "parsed", "parse_failed",
		"geocoded", "geocode_match", "geocode_mismatch", "geocode_failed",
		"source_verified", "dedup_exact", "dedup_fuzzy", "dedup_geo",
	)

	src, err := r.store.GetSourceByName(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, eris.Errorf("pipeline: source %q not found in sources table", sourceName)
	}
	log := r.logger.With(zap.String("source", src.Name))
	if !src.Enabled {
		log.Warn("source is disabled, skipping")
		return stats, nil
	}

	f, err := r.registry.Get(src.FetcherModule)
	if err != nil {
		return nil, err
	}

	results, err := f.Fetch(ctx)
	if err != nil {
		if metaErr := r.store.UpdateSourceRun(ctx, src.ID, time.Now().UTC(), model.RunFailed, 0); metaErr != nil {
			log.Warn("failed to record run failure", zap.Error(metaErr))
		}
		return nil, eris.Wrapf(err, "pipeline: fetch %s", src.Name)
	}
	stats["scraped"] = len(results)
	log.Info("scraped", zap.Int("entries", len(results)))

	type newEntry struct {
		raw    *model.RawEntry
		extras model.Extras
	}
	var entries []newEntry
	for i := range results {
		row := &results[i]
		fp := fingerprint.Compute(src.ID, row.Name, row.Address)
		raw, isNew, err := r.store.CheckAndInsertRaw(ctx, src.ID, row.Name, row.Address, fp)
		if err != nil {
			return nil, err
		}
		if isNew {
			stats["new"]++
			entries = append(entries, newEntry{raw: raw, extras: row.Extras})
		} else {
			stats["skipped"]++
		}
		if opts.Limit > 0 && stats["new"] >= opts.Limit {
			log.Info("new entry limit reached", zap.Int("limit", opts.Limit))
			break
		}
	}
	log.Info("fingerprinted", zap.Int("new", stats["new"]), zap.Int("skipped", stats["skipped"]))

	if opts.ScrapeOnly {
		if err := r.updateRunMeta(ctx, src.ID, stats); err != nil {
			return nil, err
		}
		return stats, nil
	}

	pools, err := r.loadDedupPools(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if err := r.processEntry(ctx, src, e.raw, e.extras, pools, opts.NoGeocode, stats, log); err != nil {
			return nil, err
		}
	}

	if err := r.updateRunMeta(ctx, src.ID, stats); err != nil {
		return nil, err
	}
	log.Info("run complete",
		zap.Int("scraped", stats["scraped"]),
		zap.Int("new", stats["new"]),
		zap.Int("parsed", stats["parsed"]),
		zap.Int("parse_failed", stats["parse_failed"]),
		zap.Int("source_verified", stats["source_verified"]),
		zap.Int("geocoded", stats["geocoded"]))
	return stats, nil
}

// processEntry runs one new raw entry through parse, dedup and
// verification. Row-level failures land in rejected_entries and never
// abort the run; only storage errors do.
func (r *Runner) processEntry(ctx context.Context, src *model.Source, raw *model.RawEntry, extras model.Extras, pools *dedupPools, noGeocode bool, stats Stats, log *zap.Logger) error {
	parsed, parseErr := parseEntry(src, raw, extras)
	if parseErr != nil {
		stats["parse_failed"]++
		if err := r.store.UpdateRawParseStatus(ctx, raw.ID, model.ParseFailed); err != nil {
			return err
		}
		rej := &model.RejectedEntry{
			RawEntryID: raw.ID,
			Reason:     model.RejectParseFailure,
			Detail:     parseErr.Error(),
		}
		if err := r.store.InsertRejection(ctx, rej); err != nil {
			return err
		}
		log.Debug("parse failed", zap.String("name", raw.RawName), zap.Error(parseErr))
		return nil
	}

	cand := &model.Candidate{
		RawEntryID: raw.ID,
		Name:       parsed.Name,
		Street:     parsed.Street,
		City:       parsed.City,
		State:      parsed.State,
		Country:    "US",
		Status:     model.StatusUnverified,
	}
	if extras.Zip != "" {
		cand.Zip = extras.Zip
	}
	if extras.HasCoords() {
		lat, lon := *extras.Lat, *extras.Lon
		cand.Lat = &lat
		cand.Lon = &lon
	}

	if err := r.store.InsertCandidate(ctx, cand); err != nil {
		return err
	}
	if err := r.store.UpdateRawParseStatus(ctx, raw.ID, model.ParseParsed); err != nil {
		return err
	}
	stats["parsed"]++

	if dup := match.FindDuplicate(cand, pools.verified, pools.unverified); dup != nil {
		return r.rejectDuplicate(ctx, raw.ID, cand.ID, dup, stats)
	}

	// Coordinates and zip straight from the source mean the geocoder has
	// nothing to add.
	if cand.HasCoords() && cand.Zip != "" {
		cand.Status = model.StatusSourceVerified
		if err := r.store.UpdateCandidateStatus(ctx, cand.ID, model.StatusSourceVerified); err != nil {
			return err
		}
		stats["source_verified"]++
		log.Debug("source-verified", zap.String("name", cand.Name))
		pools.add(cand)
		return nil
	}

	if noGeocode || r.verifier == nil {
		pools.add(cand)
		return nil
	}
	return r.geocodeCandidate(ctx, raw.ID, cand, pools, stats)
}

func parseEntry(src *model.Source, raw *model.RawEntry, extras model.Extras) (*normalize.Parsed, error) {
	if src.FormatterModule == wikiFormatter {
		return normalize.WikiEntry(raw.RawName, extras)
	}
	return normalize.Entry(raw.RawName, raw.RawAddress)
}

func (r *Runner) rejectDuplicate(ctx context.Context, rawEntryID, candidateID int, dup *match.Duplicate, stats Stats) error {
	reason := model.RejectSuspectedDupe
	switch dup.Method {
	case match.MethodAddressExact:
		reason = model.RejectDuplicateExact
		stats["dedup_exact"]++
	case match.MethodFuzzyName:
		stats["dedup_fuzzy"]++
	case match.MethodGeoProximity:
		stats["dedup_geo"]++
	}
	rej := &model.RejectedEntry{
		RawEntryID: rawEntryID,
		Reason:     reason,
		Detail:     fmt.Sprintf("Matches candidate %d: %s", dup.Candidate.ID, dup.Candidate.Name),
	}
	if err := r.store.InsertRejection(ctx, rej); err != nil {
		return err
	}
	return r.store.UpdateCandidateStatus(ctx, candidateID, model.StatusDuplicate)
}

// geocodeCandidate verifies one candidate, persists the outcome and files
// a rejection on mismatch. pools may be nil for sweep-style callers.
func (r *Runner) geocodeCandidate(ctx context.Context, rawEntryID int, cand *model.Candidate, pools *dedupPools, stats Stats) error {
	status, err := r.verifier.Verify(ctx, cand)
	if err != nil {
		return err
	}
	stats["geocoded"]++
	switch status {
	case model.StatusGeocodeMatch:
		stats["geocode_match"]++
	case model.StatusGeocodeMismatch:
		stats["geocode_mismatch"]++
	default:
		stats["geocode_failed"]++
	}

	if err := r.store.UpdateCandidateVerification(ctx, cand); err != nil {
		return err
	}

	if status == model.StatusGeocodeMismatch {
		confidence := 0.0
		if cand.GeoConfidence != nil {
			confidence = *cand.GeoConfidence
		}
		rej := &model.RejectedEntry{
			RawEntryID: rawEntryID,
			Reason:     model.RejectGeocodeMismatch,
			Detail:     fmt.Sprintf("Confidence %.2f, matched: %s", confidence, cand.GeoMatchedName),
		}
		if err := r.store.InsertRejection(ctx, rej); err != nil {
			return err
		}
	}
	pools.add(cand)
	return nil
}

// updateRunMeta records the run outcome on the source row: success when
// nothing failed to parse, partial when some rows did, failed otherwise.
func (r *Runner) updateRunMeta(ctx context.Context, sourceID int, stats Stats) error {
	outcome := model.RunFailed
	switch {
	case stats["parse_failed"] == 0 && stats["scraped"] > 0:
		outcome = model.RunSuccess
	case stats["parsed"] > 0:
		outcome = model.RunPartial
	}
	return r.store.UpdateSourceRun(ctx, sourceID, time.Now().UTC(), outcome, stats["scraped"])
}

// dedupPools holds the in-memory candidate sets the duplicate layers
// search. Candidates join the pools as the run proceeds so later rows in
// the same batch collide with them.
type dedupPools struct {
	verified   []*model.Candidate
	unverified []*model.Candidate
}

func (r *Runner) loadDedupPools(ctx context.Context) (*dedupPools, error) {
	verified, err := r.store.VerifiedCandidates(ctx)
	if err != nil {
		return nil, err
	}
	unverified, err := r.store.UnverifiedCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return &dedupPools{verified: verified, unverified: unverified}, nil
}

func (p *dedupPools) add(c *model.Candidate) {
	if p == nil {
		return
	}
	switch c.Status {
	case model.StatusGeocodeMatch, model.StatusHumanApproved, model.StatusSourceVerified:
		p.verified = append(p.verified, c)
	case model.StatusUnverified:
		p.unverified = append(p.unverified, c)
	}
}

// RunAll runs every enabled scraping source in id order, geocodes whatever
// is still pending, then runs the full promotion. The skatetrax seed
// source is skipped; the ice-time sync feeds it instead.
func RunAll(ctx context.Context, runner *Runner, promoter *Promoter, opts RunOptions) (Stats, error) {
	combined := newStats("sources_run", "total_scraped", "total_new", "total_parsed")

	sources, err := runner.store.ListEnabledSources(ctx)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if src.Name == peerSourceName {
			continue
		}
		runner.logger.Info("running source", zap.String("source", src.Name))
		stats, err := runner.RunSource(ctx, src.Name, opts)
		if err != nil {
			return nil, err
		}
		combined["sources_run"]++
		combined["total_scraped"] += stats["scraped"]
		combined["total_new"] += stats["new"]
		combined["total_parsed"] += stats["parsed"]
	}

	runner.logger.Info("geocoding remaining pending candidates")
	geoStats, err := runner.GeocodePending(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	combined["geocode_match"] = geoStats["geocode_match"]
	combined["geocode_mismatch"] = geoStats["geocode_mismatch"]
	combined["geocode_failed"] = geoStats["geocode_failed"]

	runner.logger.Info("promoting verified candidates")
	promoStats, err := promoter.Run(ctx)
	if err != nil {
		return nil, err
	}
	combined["locations_new"] = promoStats["promoted_new"]
	combined["locations_linked"] = promoStats["promoted_existing"]
	combined["total_locations"] = promoStats["total_locations"]

	return combined, nil
}
