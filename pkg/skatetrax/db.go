package skatetrax

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/db"
)

// DB is a handle on the skatetrax operational database. The push writes
// its locations table; the ice-time sync only reads.
type DB struct {
	pool    db.TxPool
	closeFn func()
}

// OpenDB connects to the skatetrax database and verifies the connection.
// The pool is kept at a single recycled connection; pushes are rare and
// the peer is a production system.
func OpenDB(ctx context.Context, url string) (*DB, error) {
	if url == "" {
		return nil, eris.New("skatetrax: database URL is empty (set SKATETRAX_DB_URL)")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, eris.Wrap(err, "skatetrax: parse db url")
	}
	cfg.MaxConns = 1
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "skatetrax: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "skatetrax: ping")
	}
	return &DB{pool: pool, closeFn: pool.Close}, nil
}

// NewDB wraps an existing pool. Tests use it with pgxmock.
func NewDB(pool db.TxPool) *DB {
	return &DB{pool: pool}
}

// Close releases the connection pool.
func (d *DB) Close() {
	if d.closeFn != nil {
		d.closeFn()
	}
}

// HasLocationsTable reports whether the connected database carries a
// locations table. A miss usually means the URL points at the wrong
// database.
func (d *DB) HasLocationsTable(ctx context.Context) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'locations')`,
	).Scan(&exists)
	return exists, eris.Wrap(err, "skatetrax: check locations table")
}

// RinkNames returns every rink the peer knows, keyed by id.
func (d *DB) RinkNames(ctx context.Context) (map[string]string, error) {
	rows, err := d.pool.Query(ctx, `SELECT rink_id, rink_name FROM locations`)
	if err != nil {
		return nil, eris.Wrap(err, "skatetrax: list rinks")
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "skatetrax: scan rink")
		}
		names[id] = name
	}
	return names, eris.Wrap(rows.Err(), "skatetrax: list rinks iterate")
}

// Rinks loads the full peer rink list. The promoter uses it as a fallback
// when the public API is unreachable but a database URL is configured.
func (d *DB) Rinks(ctx context.Context) ([]Rink, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT rink_id, rink_name, rink_address, rink_city, rink_state FROM locations`)
	if err != nil {
		return nil, eris.Wrap(err, "skatetrax: load rinks")
	}
	defer rows.Close()

	var rinks []Rink
	for rows.Next() {
		var r Rink
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.City, &r.State); err != nil {
			return nil, eris.Wrap(err, "skatetrax: scan rink row")
		}
		rinks = append(rinks, r)
	}
	return rinks, eris.Wrap(rows.Err(), "skatetrax: load rinks iterate")
}

// PushRow is one directory location bound for the peer locations table.
type PushRow struct {
	ID         string
	Name       string
	Address    string
	City       string
	State      string
	Country    string
	Zip        string
	DataSource string
	CreatedAt  time.Time
}

// pushColumns is the writable surface of the peer locations table. The
// hand-curated columns (rink_phone, rink_url, rink_tz) are never
// written.
var pushColumns = []string{
	"rink_id", "rink_name", "rink_address", "rink_city", "rink_state",
	"rink_country", "rink_zip", "data_source", "date_created",
}

// pushUpdateColumns are the only columns refreshed on conflict; name,
// data_source and date_created stay as the peer curated them.
var pushUpdateColumns = []string{
	"rink_address", "rink_city", "rink_state", "rink_country", "rink_zip",
}

// UpsertRinks writes rows into the peer locations table. New ids insert
// the full row; existing ids refresh only the address fields. Nothing
// is ever deleted.
func (d *DB) UpsertRinks(ctx context.Context, rows []PushRow) (int64, error) {
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{
			r.ID, r.Name, r.Address, r.City, r.State,
			r.Country, r.Zip, r.DataSource, r.CreatedAt,
		})
	}
	return db.BulkUpsert(ctx, d.pool, db.UpsertConfig{
		Table:        "locations",
		Columns:      pushColumns,
		ConflictKeys: []string{"rink_id"},
		UpdateCols:   pushUpdateColumns,
	}, data)
}

// IceTimeRow is a rink seen in the peer ice_time table together with
// its most recent session date.
type IceTimeRow struct {
	RinkID     string
	LastSkated *time.Time
}

// IceTimeByRink aggregates the peer ice_time table to one row per rink
// with the max session date. Every id returned has at least one logged
// session, the strongest existence signal a rink can have.
func (d *DB) IceTimeByRink(ctx context.Context) ([]IceTimeRow, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT rink_id, MAX(date) FROM ice_time GROUP BY rink_id`)
	if err != nil {
		return nil, eris.Wrap(err, "skatetrax: ice_time by rink")
	}
	defer rows.Close()

	var out []IceTimeRow
	for rows.Next() {
		var r IceTimeRow
		if err := rows.Scan(&r.RinkID, &r.LastSkated); err != nil {
			return nil, eris.Wrap(err, "skatetrax: scan ice_time row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "skatetrax: ice_time iterate")
}
