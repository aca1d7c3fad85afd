package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
	"github.com/skatetrax/ice-maker/pkg/skatetrax"
)

// IceTimeReader is the slice of the peer database the sync reads.
type IceTimeReader interface {
	IceTimeByRink(ctx context.Context) ([]skatetrax.IceTimeRow, error)
}

// IceTimeSync confirms directory rinks against the peer's skating log.
// Every rink someone has logged ice time at is proof the rink exists,
// which makes this the highest-confidence source in the registry.
type IceTimeSync struct {
	store  store.Store
	peer   IceTimeReader
	logger *zap.Logger
}

// NewIceTimeSync creates a sync against an open peer database.
func NewIceTimeSync(st store.Store, peer IceTimeReader) *IceTimeSync {
	return &IceTimeSync{store: st, peer: peer, logger: zap.L().With(zap.String("component", "pipeline.icetime"))}
}

// Run records a skatetrax source corroboration for every directory rink
// that appears in the peer's ice_time table, stamped with the most recent
// skate date. Rinks the directory has never heard of are only counted.
func (s *IceTimeSync) Run(ctx context.Context) (Stats, error) {
	stats := newStats("total_rinks_in_ice_time", "confirmed", "missing_from_directory")

	rows, err := s.peer.IceTimeByRink(ctx)
	if err != nil {
		return nil, err
	}
	stats["total_rinks_in_ice_time"] = len(rows)
	s.logger.Info("found distinct rinks in ice_time", zap.Int("rinks", len(rows)))
	if len(rows) == 0 {
		return stats, nil
	}

	src, err := s.store.GetSourceByName(ctx, peerSourceName)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, eris.Errorf("pipeline: %q source not found in sources table", peerSourceName)
	}

	for _, row := range rows {
		loc, err := s.store.GetLocation(ctx, row.RinkID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			s.logger.Debug("rink in ice_time but not in directory", zap.String("rink_id", row.RinkID))
			stats["missing_from_directory"]++
			continue
		}

		seen := row.LastSkated
		if seen == nil {
			now := time.Now().UTC()
			seen = &now
		}
		err = s.store.UpsertLocationSource(ctx, &model.LocationSource{
			LocationID:  loc.ID,
			SourceID:    src.ID,
			FirstSeenAt: seen,
			LastSeenAt:  seen,
			IsPresent:   true,
		})
		if err != nil {
			return nil, err
		}
		stats["confirmed"]++
	}

	s.logger.Info("ice time sync complete",
		zap.Int("confirmed", stats["confirmed"]),
		zap.Int("missing_from_directory", stats["missing_from_directory"]),
		zap.Int("total", stats["total_rinks_in_ice_time"]))
	return stats, nil
}
