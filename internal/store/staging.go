package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/model"
)

const sourceColumns = `id, name, fetcher_module, formatter_module, enabled, last_run_at, last_run_status, last_run_count, confidence_weight, notes, created_at`

const candidateColumns = `id, raw_entry_id, name, street, city, state, zip, country, lat, lon, geo_confidence, geo_matched_name, status, location_id, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (*model.Source, error) {
	var src model.Source
	err := r.Scan(&src.ID, &src.Name, &src.FetcherModule, &src.FormatterModule,
		&src.Enabled, &src.LastRunAt, &src.LastRunStatus, &src.LastRunCount,
		&src.ConfidenceWeight, &src.Notes, &src.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func scanCandidate(r rowScanner) (*model.Candidate, error) {
	var c model.Candidate
	var locationID *string
	err := r.Scan(&c.ID, &c.RawEntryID, &c.Name, &c.Street, &c.City, &c.State,
		&c.Zip, &c.Country, &c.Lat, &c.Lon, &c.GeoConfidence, &c.GeoMatchedName,
		&c.Status, &locationID, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if locationID != nil {
		c.LocationID = *locationID
	}
	return &c, nil
}

func (s *PostgresStore) GetSourceByName(ctx context.Context, name string) (*model.Source, error) {
	src, err := scanSource(s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get source %s", name)
	}
	return src, nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

func (s *PostgresStore) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE enabled ORDER BY id`)
}

func (s *PostgresStore) querySources(ctx context.Context, query string) ([]model.Source, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: list sources iterate")
}

func (s *PostgresStore) UpdateSourceRun(ctx context.Context, sourceID int, at time.Time, status model.RunOutcome, count int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sources SET last_run_at = $1, last_run_status = $2, last_run_count = $3 WHERE id = $4`,
		at, string(status), count, sourceID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update source run %d", sourceID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("source not found: %d", sourceID)
	}
	return nil
}

// CheckAndInsertRaw returns the existing raw entry for the fingerprint, or
// inserts a fresh pending one. The boolean reports whether a new row was
// created.
func (s *PostgresStore) CheckAndInsertRaw(ctx context.Context, sourceID int, rawName, rawAddress, fingerprint string) (*model.RawEntry, bool, error) {
	var re model.RawEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_id, raw_name, raw_address, fingerprint, scraped_at, parse_status FROM raw_entries WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&re.ID, &re.SourceID, &re.RawName, &re.RawAddress, &re.Fingerprint, &re.ScrapedAt, &re.ParseStatus)
	if err == nil {
		return &re, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, eris.Wrap(err, "postgres: check raw fingerprint")
	}

	re = model.RawEntry{
		SourceID:    sourceID,
		RawName:     rawName,
		RawAddress:  rawAddress,
		Fingerprint: fingerprint,
		ParseStatus: model.ParsePending,
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO raw_entries (source_id, raw_name, raw_address, fingerprint) VALUES ($1, $2, $3, $4) RETURNING id, scraped_at`,
		sourceID, rawName, rawAddress, fingerprint,
	).Scan(&re.ID, &re.ScrapedAt)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: insert raw entry")
	}
	return &re, true, nil
}

func (s *PostgresStore) GetRawEntry(ctx context.Context, id int) (*model.RawEntry, error) {
	var re model.RawEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_id, raw_name, raw_address, fingerprint, scraped_at, parse_status FROM raw_entries WHERE id = $1`,
		id,
	).Scan(&re.ID, &re.SourceID, &re.RawName, &re.RawAddress, &re.Fingerprint, &re.ScrapedAt, &re.ParseStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get raw entry %d", id)
	}
	return &re, nil
}

func (s *PostgresStore) UpdateRawParseStatus(ctx context.Context, rawEntryID int, status model.ParseStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_entries SET parse_status = $1 WHERE id = $2`,
		string(status), rawEntryID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update raw parse status %d", rawEntryID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("raw_entry not found: %d", rawEntryID)
	}
	return nil
}

func (s *PostgresStore) CountRawEntries(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM raw_entries`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count raw entries")
}

func (s *PostgresStore) InsertCandidate(ctx context.Context, c *model.Candidate) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO candidates (raw_entry_id, name, street, city, state, zip, country, lat, lon, geo_confidence, geo_matched_name, status, location_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, updated_at`,
		c.RawEntryID, c.Name, c.Street, c.City, c.State, c.Zip, c.Country,
		c.Lat, c.Lon, c.GeoConfidence, c.GeoMatchedName, string(c.Status),
		nullIfEmpty(c.LocationID),
	).Scan(&c.ID, &c.UpdatedAt)
	return eris.Wrap(err, "postgres: insert candidate")
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id int) (*model.Candidate, error) {
	c, err := scanCandidate(s.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get candidate %d", id)
	}
	return c, nil
}

func (s *PostgresStore) VerifiedCandidates(ctx context.Context) ([]*model.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = ANY($1) ORDER BY id`,
		statusStrings(model.VerifiedStatuses()))
}

func (s *PostgresStore) UnverifiedCandidates(ctx context.Context) ([]*model.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = $1 ORDER BY id`,
		string(model.StatusUnverified))
}

// PendingGeocode lists unverified candidates, optionally restricted to one
// source by joining through raw_entries.
func (s *PostgresStore) PendingGeocode(ctx context.Context, sourceName string) ([]*model.Candidate, error) {
	if sourceName == "" {
		return s.UnverifiedCandidates(ctx)
	}
	return s.queryCandidates(ctx,
		`SELECT c.id, c.raw_entry_id, c.name, c.street, c.city, c.state, c.zip, c.country, c.lat, c.lon, c.geo_confidence, c.geo_matched_name, c.status, c.location_id, c.updated_at
		 FROM candidates c
		 JOIN raw_entries r ON r.id = c.raw_entry_id
		 JOIN sources src ON src.id = r.source_id
		 WHERE c.status = $1 AND src.name = $2
		 ORDER BY c.id`,
		string(model.StatusUnverified), sourceName)
}

func (s *PostgresStore) PromotableCandidates(ctx context.Context) ([]*model.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = ANY($1) AND location_id IS NULL ORDER BY id`,
		[]string{string(model.StatusGeocodeMatch), string(model.StatusSourceVerified)})
}

func (s *PostgresStore) DuplicateCandidates(ctx context.Context) ([]*model.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = $1 AND location_id IS NULL ORDER BY id`,
		string(model.StatusDuplicate))
}

func (s *PostgresStore) StreetlessUnverified(ctx context.Context) ([]*model.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = $1 AND street = '' AND location_id IS NULL ORDER BY id`,
		string(model.StatusUnverified))
}

func (s *PostgresStore) queryCandidates(ctx context.Context, query string, args ...any) ([]*model.Candidate, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query candidates")
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		candidates = append(candidates, c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: query candidates iterate")
}

func (s *PostgresStore) UpdateCandidateStatus(ctx context.Context, id int, status model.VerificationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate status %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("candidate not found: %d", id)
	}
	return nil
}

// UpdateCandidateVerification writes the geocoding outcome: coordinates,
// confidence, matched name, zip and the resulting status.
func (s *PostgresStore) UpdateCandidateVerification(ctx context.Context, c *model.Candidate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET lat = $1, lon = $2, geo_confidence = $3, geo_matched_name = $4, zip = $5, status = $6, updated_at = now() WHERE id = $7`,
		c.Lat, c.Lon, c.GeoConfidence, c.GeoMatchedName, c.Zip, string(c.Status), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate verification %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("candidate not found: %d", c.ID)
	}
	return nil
}

func (s *PostgresStore) SetCandidateLocation(ctx context.Context, candidateID int, locationID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET location_id = $1, updated_at = now() WHERE id = $2`,
		locationID, candidateID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set candidate location %d", candidateID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("candidate not found: %d", candidateID)
	}
	return nil
}

func (s *PostgresStore) MoveCandidates(ctx context.Context, fromLocationID, toLocationID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET location_id = $1, updated_at = now() WHERE location_id = $2`,
		toLocationID, fromLocationID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: move candidates")
	}
	return int(tag.RowsAffected()), nil
}

// ResetFailedGeocodes returns geocode_failed candidates to unverified and
// clears everything a later geocode pass will refill.
func (s *PostgresStore) ResetFailedGeocodes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET status = $1, lat = NULL, lon = NULL, geo_confidence = NULL, geo_matched_name = '', zip = '', updated_at = now() WHERE status = $2`,
		string(model.StatusUnverified), string(model.StatusGeocodeFailed),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset failed geocodes")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CandidateStatusCounts(ctx context.Context) (map[model.VerificationStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: candidate status counts")
	}
	defer rows.Close()

	counts := make(map[model.VerificationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.VerificationStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: candidate status counts iterate")
}

func (s *PostgresStore) InsertRejection(ctx context.Context, r *model.RejectedEntry) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO rejected_entries (raw_entry_id, reason, detail, reviewed) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		r.RawEntryID, string(r.Reason), r.Detail, r.Reviewed,
	).Scan(&r.ID, &r.CreatedAt)
	return eris.Wrap(err, "postgres: insert rejection")
}

// FirstRejectionForRaw returns the oldest rejection for the raw entry with
// one of the given reasons, or nil.
func (s *PostgresStore) FirstRejectionForRaw(ctx context.Context, rawEntryID int, reasons []model.RejectReason) (*model.RejectedEntry, error) {
	reasonStrs := make([]string, len(reasons))
	for i, r := range reasons {
		reasonStrs[i] = string(r)
	}

	var re model.RejectedEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, raw_entry_id, reason, detail, reviewed, created_at FROM rejected_entries
		 WHERE raw_entry_id = $1 AND reason = ANY($2) ORDER BY id LIMIT 1`,
		rawEntryID, reasonStrs,
	).Scan(&re.ID, &re.RawEntryID, &re.Reason, &re.Detail, &re.Reviewed, &re.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: first rejection for raw %d", rawEntryID)
	}
	return &re, nil
}

func (s *PostgresStore) CountUnreviewedRejections(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rejected_entries WHERE NOT reviewed`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count unreviewed rejections")
}

func statusStrings(statuses []model.VerificationStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
