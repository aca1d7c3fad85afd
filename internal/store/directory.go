package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/model"
)

const locationColumns = `rink_id, rink_name, rink_address, rink_city, rink_state, rink_country, rink_zip, rink_url, rink_phone, rink_tz, rink_status, data_source, created_at`

func scanLocation(r rowScanner) (*model.Location, error) {
	var loc model.Location
	err := r.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.State,
		&loc.Country, &loc.Zip, &loc.URL, &loc.Phone, &loc.Timezone,
		&loc.Status, &loc.DataSource, &loc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (s *PostgresStore) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := scanLocation(s.pool.QueryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE rink_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get location %s", id)
	}
	return loc, nil
}

func (s *PostgresStore) InsertLocation(ctx context.Context, loc *model.Location) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO locations (rink_id, rink_name, rink_address, rink_city, rink_state, rink_country, rink_zip, rink_url, rink_phone, rink_tz, rink_status, data_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		loc.ID, loc.Name, loc.Address, loc.City, loc.State, loc.Country,
		loc.Zip, loc.URL, loc.Phone, loc.Timezone, string(loc.Status), loc.DataSource,
	).Scan(&loc.CreatedAt)
	return eris.Wrapf(err, "postgres: insert location %s", loc.ID)
}

func (s *PostgresStore) ActiveLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE rink_status = $1 ORDER BY rink_state, rink_city`,
		string(model.LocationActive),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active locations")
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan location")
		}
		locations = append(locations, *loc)
	}
	return locations, eris.Wrap(rows.Err(), "postgres: active locations iterate")
}

// MatchableLocations lists locations the promoter may link candidates to.
// Merged and disabled rinks are out: a merge survivor already owns the
// duplicates' candidates, and disabled identifiers should not attract new
// ones.
func (s *PostgresStore) MatchableLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE rink_status NOT IN ($1, $2) ORDER BY rink_state, rink_city`,
		string(model.LocationMerged), string(model.LocationDisabled),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: matchable locations")
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan location")
		}
		locations = append(locations, *loc)
	}
	return locations, eris.Wrap(rows.Err(), "postgres: matchable locations iterate")
}

func (s *PostgresStore) SearchLocations(ctx context.Context, query, state string) ([]LocationSummary, error) {
	sql := `SELECT l.rink_id, l.rink_name, l.rink_address, l.rink_city, l.rink_state, l.rink_country, l.rink_zip, l.rink_url, l.rink_phone, l.rink_tz, l.rink_status, l.data_source, l.created_at, COUNT(ls.id)
	        FROM locations l
	        LEFT JOIN location_sources ls ON ls.location_id = l.rink_id
	        WHERE l.rink_name ILIKE '%' || $1 || '%'`
	args := []any{query}
	if state != "" {
		sql += ` AND l.rink_state = $2`
		args = append(args, state)
	}
	sql += ` GROUP BY l.rink_id ORDER BY l.rink_state, l.rink_city`
	return s.queryLocationSummaries(ctx, sql, args...)
}

// FindLocationsByName matches names case-insensitively, exact or partial.
func (s *PostgresStore) FindLocationsByName(ctx context.Context, name string, partial bool) ([]model.Location, error) {
	pattern := name
	if partial {
		pattern = "%" + name + "%"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE rink_name ILIKE $1 ORDER BY rink_state, rink_city`,
		pattern,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find locations by name")
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan location")
		}
		locations = append(locations, *loc)
	}
	return locations, eris.Wrap(rows.Err(), "postgres: find locations iterate")
}

func (s *PostgresStore) LocationsWithSourceCounts(ctx context.Context) ([]LocationSummary, error) {
	return s.queryLocationSummaries(ctx,
		`SELECT l.rink_id, l.rink_name, l.rink_address, l.rink_city, l.rink_state, l.rink_country, l.rink_zip, l.rink_url, l.rink_phone, l.rink_tz, l.rink_status, l.data_source, l.created_at, COUNT(ls.id)
		 FROM locations l
		 LEFT JOIN location_sources ls ON ls.location_id = l.rink_id
		 GROUP BY l.rink_id
		 ORDER BY l.rink_state, l.rink_city`)
}

// LocationCoordinates maps location ids to the coordinates of their
// highest-confidence linked candidate. Locations with nothing geocoded
// are absent from the map.
func (s *PostgresStore) LocationCoordinates(ctx context.Context) (map[string]Coordinates, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (location_id) location_id, lat, lon
		 FROM candidates
		 WHERE location_id IS NOT NULL AND lat IS NOT NULL AND lon IS NOT NULL
		 ORDER BY location_id, geo_confidence DESC NULLS LAST, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: location coordinates")
	}
	defer rows.Close()

	coords := make(map[string]Coordinates)
	for rows.Next() {
		var id string
		var c Coordinates
		if err := rows.Scan(&id, &c.Lat, &c.Lon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan location coordinates")
		}
		coords[id] = c
	}
	return coords, eris.Wrap(rows.Err(), "postgres: location coordinates iterate")
}

func (s *PostgresStore) queryLocationSummaries(ctx context.Context, sql string, args ...any) ([]LocationSummary, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: location summaries")
	}
	defer rows.Close()

	var summaries []LocationSummary
	for rows.Next() {
		var sum LocationSummary
		loc := &sum.Location
		err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.State,
			&loc.Country, &loc.Zip, &loc.URL, &loc.Phone, &loc.Timezone,
			&loc.Status, &loc.DataSource, &loc.CreatedAt, &sum.SourceCount)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan location summary")
		}
		summaries = append(summaries, sum)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: location summaries iterate")
}

func (s *PostgresStore) UpdateLocationStatus(ctx context.Context, id string, status model.LocationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE locations SET rink_status = $1 WHERE rink_id = $2`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update location status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("location not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateLocationName(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE locations SET rink_name = $1 WHERE rink_id = $2`,
		name, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update location name %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("location not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CountLocations(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count locations")
}

// UpsertLocationSource keeps at most one row per (location, source). An
// existing row only refreshes last_seen_at and flips is_present back on;
// first_seen_at and candidate_id stay as first recorded.
func (s *PostgresStore) UpsertLocationSource(ctx context.Context, ls *model.LocationSource) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO location_sources (location_id, source_id, candidate_id, first_seen_at, last_seen_at, is_present)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (location_id, source_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at, is_present = true`,
		ls.LocationID, ls.SourceID, ls.CandidateID, ls.FirstSeenAt, ls.LastSeenAt, ls.IsPresent,
	)
	return eris.Wrap(err, "postgres: upsert location source")
}

func (s *PostgresStore) GetLocationSource(ctx context.Context, locationID string, sourceID int) (*model.LocationSource, error) {
	var ls model.LocationSource
	err := s.pool.QueryRow(ctx,
		`SELECT id, location_id, source_id, candidate_id, first_seen_at, last_seen_at, is_present
		 FROM location_sources WHERE location_id = $1 AND source_id = $2`,
		locationID, sourceID,
	).Scan(&ls.ID, &ls.LocationID, &ls.SourceID, &ls.CandidateID, &ls.FirstSeenAt, &ls.LastSeenAt, &ls.IsPresent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get location source")
	}
	return &ls, nil
}

func (s *PostgresStore) LocationSourcesFor(ctx context.Context, locationID string) ([]model.LocationSource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, location_id, source_id, candidate_id, first_seen_at, last_seen_at, is_present
		 FROM location_sources WHERE location_id = $1 ORDER BY id`,
		locationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: location sources")
	}
	defer rows.Close()

	var links []model.LocationSource
	for rows.Next() {
		var ls model.LocationSource
		if err := rows.Scan(&ls.ID, &ls.LocationID, &ls.SourceID, &ls.CandidateID,
			&ls.FirstSeenAt, &ls.LastSeenAt, &ls.IsPresent); err != nil {
			return nil, eris.Wrap(err, "postgres: scan location source")
		}
		links = append(links, ls)
	}
	return links, eris.Wrap(rows.Err(), "postgres: location sources iterate")
}

func (s *PostgresStore) UpdateLocationSourceWindow(ctx context.Context, id int, firstSeen, lastSeen *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE location_sources SET first_seen_at = $1, last_seen_at = $2 WHERE id = $3`,
		firstSeen, lastSeen, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update location source window %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("location_source not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) MoveLocationSource(ctx context.Context, id int, toLocationID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE location_sources SET location_id = $1 WHERE id = $2`,
		toLocationID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: move location source %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("location_source not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteLocationSource(ctx context.Context, id int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM location_sources WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete location source %d", id)
}

func (s *PostgresStore) InsertLocationAlias(ctx context.Context, alias *model.LocationAlias) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO location_aliases (location_id, alias_name, effective_from, effective_until, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		alias.LocationID, alias.AliasName, alias.EffectiveFrom, alias.EffectiveUntil, alias.Notes,
	).Scan(&alias.ID, &alias.CreatedAt)
	return eris.Wrap(err, "postgres: insert location alias")
}

func (s *PostgresStore) AliasExists(ctx context.Context, locationID, aliasName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM location_aliases WHERE location_id = $1 AND alias_name = $2)`,
		locationID, aliasName,
	).Scan(&exists)
	return exists, eris.Wrap(err, "postgres: alias exists")
}
