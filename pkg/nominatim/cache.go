package nominatim

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache is a sqlite-backed cache of successful lookups. Nominatim asks
// heavy users to cache aggressively, and rink addresses rarely move, so
// a long TTL is safe.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache opens (and if needed creates) the cache at path. Entries
// older than ttl are ignored on read and pruned on open; a zero ttl
// keeps entries forever.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: open cache")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "nominatim: cache journal mode")
	}

	schema := `CREATE TABLE IF NOT EXISTS geocode_cache (
		query_hash TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		cached_at  INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "nominatim: create cache table")
	}

	c := &Cache{db: db, ttl: ttl}
	if ttl > 0 {
		if _, err := db.Exec("DELETE FROM geocode_cache WHERE cached_at <= ?", c.cutoff()); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "nominatim: prune cache")
		}
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) cutoff() int64 {
	return time.Now().Add(-c.ttl).Unix()
}

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(q Query) string {
	normalized := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(q.Street)),
		strings.ToLower(strings.TrimSpace(q.City)),
		strings.ToLower(strings.TrimSpace(q.State)),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Get returns the cached result for q, or (nil, nil) on a miss or an
// expired entry.
func (c *Cache) Get(q Query) (*Result, error) {
	query := "SELECT payload FROM geocode_cache WHERE query_hash = ?"
	args := []any{cacheKey(q)}
	if c.ttl > 0 {
		query += " AND cached_at > ?"
		args = append(args, c.cutoff())
	}

	var payload string
	if err := c.db.QueryRow(query, args...).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "nominatim: cache lookup")
	}

	var r Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, eris.Wrap(err, "nominatim: cache decode")
	}
	return &r, nil
}

// Put stores a successful result for q, replacing any prior entry.
func (c *Cache) Put(q Query, r *Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "nominatim: cache encode")
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO geocode_cache (query_hash, payload, cached_at) VALUES (?, ?, ?)",
		cacheKey(q), string(payload), time.Now().Unix(),
	)
	if err != nil {
		return eris.Wrap(err, "nominatim: cache store")
	}
	return nil
}
