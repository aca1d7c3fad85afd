package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatetrax/ice-maker/internal/model"
)

// newMockStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetSourceByName_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM sources WHERE name = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	src, err := s.GetSourceByName(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, src)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CheckAndInsertRaw_Existing(t *testing.T) {
	s, mock := newMockStore(t)

	scraped := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM raw_entries WHERE fingerprint = \$1`).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{"id", "source_id", "raw_name", "raw_address", "fingerprint", "scraped_at", "parse_status"}).
			AddRow(7, 1, "Polar Ice", "100 Main St", "abc123", scraped, model.ParseParsed))

	re, created, err := s.CheckAndInsertRaw(context.Background(), 1, "Polar Ice", "100 Main St", "abc123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 7, re.ID)
	assert.Equal(t, model.ParseParsed, re.ParseStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CheckAndInsertRaw_New(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM raw_entries WHERE fingerprint = \$1`).
		WithArgs("def456").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO raw_entries .+ RETURNING id, scraped_at`).
		WithArgs(1, "Polar Ice", "100 Main St", "def456").
		WillReturnRows(pgxmock.NewRows([]string{"id", "scraped_at"}).AddRow(8, time.Now().UTC()))

	re, created, err := s.CheckAndInsertRaw(context.Background(), 1, "Polar Ice", "100 Main St", "def456")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 8, re.ID)
	assert.Equal(t, model.ParsePending, re.ParseStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCandidate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO candidates .+ RETURNING id, updated_at`).
		WithArgs(3, "Polar Ice Arena", "100 MAIN STREET", "Springfield", "IL", "", "US",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", string(model.StatusUnverified), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at"}).AddRow(42, time.Now().UTC()))

	c := &model.Candidate{
		RawEntryID: 3,
		Name:       "Polar Ice Arena",
		Street:     "100 MAIN STREET",
		City:       "Springfield",
		State:      "IL",
		Country:    "US",
		Status:     model.StatusUnverified,
	}
	require.NoError(t, s.InsertCandidate(context.Background(), c))
	assert.Equal(t, 42, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCandidateStatus_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE candidates SET status = \$1`).
		WithArgs(string(model.StatusDuplicate), 99).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCandidateStatus(context.Background(), 99, model.StatusDuplicate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResetFailedGeocodes(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE candidates SET status = \$1, lat = NULL`).
		WithArgs(string(model.StatusUnverified), string(model.StatusGeocodeFailed)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.ResetFailedGeocodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FirstRejectionForRaw_None(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM rejected_entries`).
		WithArgs(5, []string{"duplicate_address_exact", "suspected_duplicate"}).
		WillReturnError(pgx.ErrNoRows)

	re, err := s.FirstRejectionForRaw(context.Background(), 5,
		[]model.RejectReason{model.RejectDuplicateExact, model.RejectSuspectedDupe})
	require.NoError(t, err)
	assert.Nil(t, re)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLocationSource(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	candID := 12
	mock.ExpectExec(`INSERT INTO location_sources .+ ON CONFLICT \(location_id, source_id\) DO UPDATE`).
		WithArgs("rink-1", 2, &candID, &now, &now, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLocationSource(context.Background(), &model.LocationSource{
		LocationID:  "rink-1",
		SourceID:    2,
		CandidateID: &candID,
		FirstSeenAt: &now,
		LastSeenAt:  &now,
		IsPresent:   true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLocation_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM locations WHERE rink_id = \$1`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	loc, err := s.GetLocation(context.Background(), "missing-id")
	require.NoError(t, err)
	assert.Nil(t, loc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLocationStatus_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE locations SET rink_status = \$1`).
		WithArgs(string(model.LocationClosedPermanently), "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateLocationStatus(context.Background(), "missing-id", model.LocationClosedPermanently)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LocationCoordinates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT ON \(location_id\) location_id, lat, lon`).
		WillReturnRows(pgxmock.NewRows([]string{"location_id", "lat", "lon"}).
			AddRow("loc-steriti", 42.3700, -71.0500).
			AddRow("loc-matthews", 42.3404, -71.0887))

	coords, err := s.LocationCoordinates(context.Background())
	require.NoError(t, err)
	require.Len(t, coords, 2)
	assert.Equal(t, Coordinates{Lat: 42.3700, Lon: -71.0500}, coords["loc-steriti"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CandidateStatusCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM candidates GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("unverified", 10).
			AddRow("geocode_match", 4).
			AddRow("duplicate", 2))

	counts, err := s.CandidateStatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, counts[model.StatusUnverified])
	assert.Equal(t, 4, counts[model.StatusGeocodeMatch])
	assert.Equal(t, 2, counts[model.StatusDuplicate])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SeedSources(t *testing.T) {
	s, mock := newMockStore(t)

	for _, name := range []string{"sk8stuff", "arena_guide", "learntoskate", "fandom_wiki", "skatetrax"} {
		result := pgxmock.NewResult("INSERT", 1)
		if name == "skatetrax" {
			// Already present from a previous run.
			result = pgxmock.NewResult("INSERT", 0)
		}
		mock.ExpectExec(`INSERT INTO sources .+ ON CONFLICT \(name\) DO NOTHING`).
			WithArgs(name, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(result)
	}

	inserted, err := s.SeedSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedCatalog_Parses(t *testing.T) {
	catalog, err := loadSeedCatalog()
	require.NoError(t, err)
	require.Len(t, catalog.Sources, 5)

	byName := make(map[string]sourceSeed, len(catalog.Sources))
	for _, seed := range catalog.Sources {
		byName[seed.Name] = seed
	}
	assert.Equal(t, "wiki", byName["fandom_wiki"].FormatterModule)
	assert.Equal(t, "ice_time", byName["skatetrax"].FetcherModule)
	assert.True(t, byName["learntoskate"].Enabled)
}
