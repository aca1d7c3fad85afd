package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters. The
// pipeline is batch-sequential, so the defaults keep a single connection.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(1)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id                SERIAL PRIMARY KEY,
	name              TEXT NOT NULL UNIQUE,
	fetcher_module    TEXT NOT NULL,
	formatter_module  TEXT NOT NULL DEFAULT '',
	enabled           BOOLEAN NOT NULL DEFAULT true,
	last_run_at       TIMESTAMPTZ,
	last_run_status   TEXT NOT NULL DEFAULT '',
	last_run_count    INTEGER NOT NULL DEFAULT 0,
	confidence_weight REAL NOT NULL DEFAULT 1.0,
	notes             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS raw_entries (
	id           SERIAL PRIMARY KEY,
	source_id    INTEGER NOT NULL REFERENCES sources(id),
	raw_name     TEXT NOT NULL DEFAULT '',
	raw_address  TEXT NOT NULL DEFAULT '',
	fingerprint  TEXT NOT NULL UNIQUE,
	scraped_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	parse_status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS candidates (
	id               SERIAL PRIMARY KEY,
	raw_entry_id     INTEGER NOT NULL REFERENCES raw_entries(id),
	name             TEXT NOT NULL,
	street           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	zip              TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT 'US',
	lat              DOUBLE PRECISION,
	lon              DOUBLE PRECISION,
	geo_confidence   DOUBLE PRECISION,
	geo_matched_name TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'unverified',
	location_id      VARCHAR(36),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rejected_entries (
	id           SERIAL PRIMARY KEY,
	raw_entry_id INTEGER NOT NULL REFERENCES raw_entries(id),
	reason       TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT '',
	reviewed     BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	rink_id      VARCHAR(36) PRIMARY KEY,
	rink_name    TEXT NOT NULL,
	rink_address TEXT NOT NULL DEFAULT '',
	rink_city    TEXT NOT NULL DEFAULT '',
	rink_state   TEXT NOT NULL DEFAULT '',
	rink_country TEXT NOT NULL DEFAULT 'US',
	rink_zip     TEXT NOT NULL DEFAULT '',
	rink_url     TEXT NOT NULL DEFAULT '',
	rink_phone   TEXT NOT NULL DEFAULT '',
	rink_tz      TEXT NOT NULL DEFAULT '',
	rink_status  TEXT NOT NULL DEFAULT 'active',
	data_source  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS location_sources (
	id            SERIAL PRIMARY KEY,
	location_id   VARCHAR(36) NOT NULL REFERENCES locations(rink_id),
	source_id     INTEGER NOT NULL REFERENCES sources(id),
	candidate_id  INTEGER REFERENCES candidates(id),
	first_seen_at TIMESTAMPTZ,
	last_seen_at  TIMESTAMPTZ,
	is_present    BOOLEAN NOT NULL DEFAULT true,
	UNIQUE (location_id, source_id)
);

CREATE TABLE IF NOT EXISTS location_aliases (
	id              SERIAL PRIMARY KEY,
	location_id     VARCHAR(36) NOT NULL REFERENCES locations(rink_id),
	alias_name      TEXT NOT NULL,
	effective_from  TIMESTAMPTZ,
	effective_until TIMESTAMPTZ,
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_raw_entries_source_id ON raw_entries(source_id);
CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE INDEX IF NOT EXISTS idx_candidates_location_id ON candidates(location_id);
CREATE INDEX IF NOT EXISTS idx_candidates_city_state ON candidates(city, state);
CREATE INDEX IF NOT EXISTS idx_rejected_entries_raw_entry ON rejected_entries(raw_entry_id);
CREATE INDEX IF NOT EXISTS idx_locations_status ON locations(rink_status);
CREATE INDEX IF NOT EXISTS idx_locations_state_city ON locations(rink_state, rink_city);
CREATE INDEX IF NOT EXISTS idx_location_sources_location ON location_sources(location_id);

ALTER TABLE locations ADD COLUMN IF NOT EXISTS rink_status TEXT NOT NULL DEFAULT 'active';
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// nullIfEmpty maps "" to NULL for nullable text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
