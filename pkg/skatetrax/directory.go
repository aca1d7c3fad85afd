package skatetrax

import (
	"context"

	"go.uber.org/zap"
)

// Directory resolves the peer's rink list for UUID alignment. It prefers
// the public API, which needs no credentials and works from anywhere, and
// falls back to a direct database read when one is configured. Both
// unavailable is not an error; promotion just mints fresh identifiers.
type Directory struct {
	client *Client
	db     *DB
	logger *zap.Logger
}

// NewDirectory builds a rink list resolver. Either argument may be nil.
func NewDirectory(client *Client, database *DB) *Directory {
	return &Directory{
		client: client,
		db:     database,
		logger: zap.L().With(zap.String("component", "skatetrax.directory")),
	}
}

// Rinks returns the peer rink list, or nil when no peer source answered.
func (d *Directory) Rinks(ctx context.Context) ([]Rink, error) {
	if d.client != nil {
		rinks, err := d.client.FetchRinks(ctx)
		if err != nil {
			return nil, err
		}
		if len(rinks) > 0 {
			return rinks, nil
		}
	}

	if d.db == nil {
		return nil, nil
	}
	rinks, err := d.db.Rinks(ctx)
	if err != nil {
		d.logger.Warn("database fallback failed", zap.Error(err))
		return nil, nil
	}
	if len(rinks) > 0 {
		d.logger.Info("loaded rinks from database fallback", zap.Int("rinks", len(rinks)))
	}
	return rinks, nil
}
