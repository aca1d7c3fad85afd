package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
	"github.com/skatetrax/ice-maker/pkg/skatetrax"
)

// PushTarget is the slice of the peer database the pusher writes to.
type PushTarget interface {
	HasLocationsTable(ctx context.Context) (bool, error)
	RinkNames(ctx context.Context) (map[string]string, error)
	UpsertRinks(ctx context.Context, rows []skatetrax.PushRow) (int64, error)
}

// Pusher mirrors active directory locations into the peer skatetrax
// database. Existing peer rows keep their curated name, phone, url and
// timezone; only address fields are refreshed. Nothing is ever deleted.
type Pusher struct {
	store  store.Store
	peer   PushTarget
	logger *zap.Logger
}

// NewPusher creates a pusher against an open peer database.
func NewPusher(st store.Store, peer PushTarget) *Pusher {
	return &Pusher{store: st, peer: peer, logger: zap.L().With(zap.String("component", "pipeline.push"))}
}

// Push sends every active location with a zip to the peer. When the local
// name differs from the peer's curated one, the local name is kept here as
// an alias instead of overwriting theirs. dryRun logs the plan and counts
// without writing to either side.
func (p *Pusher) Push(ctx context.Context, dryRun bool) (Stats, error) {
	stats := newStats(
		"icemaker_active", "already_in_skatetrax", "updated", "inserted",
		"aliases_created", "skipped_no_zip", "errors",
	)

	ok, err := p.peer.HasLocationsTable(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.New("pipeline: peer database has no locations table, is SKATETRAX_DB_URL pointing at the right database?")
	}

	locations, err := p.store.ActiveLocations(ctx)
	if err != nil {
		return nil, err
	}
	stats["icemaker_active"] = len(locations)
	p.logger.Info("found active locations to push", zap.Int("count", len(locations)))

	peerNames, err := p.peer.RinkNames(ctx)
	if err != nil {
		return nil, err
	}
	stats["already_in_skatetrax"] = len(peerNames)
	p.logger.Info("peer currently has locations", zap.Int("count", len(peerNames)))

	type pendingAlias struct {
		locationID string
		aliasName  string
		dataSource string
	}
	var rows []skatetrax.PushRow
	var aliases []pendingAlias

	for _, loc := range locations {
		if loc.Zip == "" {
			stats["skipped_no_zip"]++
			continue
		}

		row := skatetrax.PushRow{
			ID:         loc.ID,
			Name:       loc.Name,
			Address:    loc.Address,
			City:       loc.City,
			State:      loc.State,
			Country:    loc.Country,
			Zip:        loc.Zip,
			DataSource: loc.DataSource,
			CreatedAt:  loc.CreatedAt,
		}
		if row.Country == "" {
			row.Country = "US"
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		rows = append(rows, row)

		peerName, exists := peerNames[loc.ID]
		if !exists {
			stats["inserted"]++
			if dryRun {
				p.logger.Info("would insert",
					zap.String("name", loc.Name),
					zap.String("city", loc.City),
					zap.String("state", loc.State),
					zap.String("rink_id", loc.ID))
			}
			continue
		}

		stats["updated"]++
		if nameDiffers(peerName, loc.Name) {
			stats["aliases_created"]++
			aliases = append(aliases, pendingAlias{
				locationID: loc.ID,
				aliasName:  loc.Name,
				dataSource: loc.DataSource,
			})
			if dryRun {
				p.logger.Info("would update, peer name kept",
					zap.String("peer_name", peerName),
					zap.String("local_name", loc.Name))
			}
		} else if dryRun {
			p.logger.Info("would update",
				zap.String("name", peerName),
				zap.String("city", loc.City),
				zap.String("state", loc.State))
		}
	}

	if dryRun {
		p.logger.Info("dry run complete, nothing written",
			zap.Int("updated", stats["updated"]),
			zap.Int("inserted", stats["inserted"]),
			zap.Int("aliases", stats["aliases_created"]))
		return stats, nil
	}

	if len(rows) > 0 {
		if _, err := p.peer.UpsertRinks(ctx, rows); err != nil {
			return nil, err
		}
	}
	p.logger.Info("pushed locations to peer",
		zap.Int("updated", stats["updated"]),
		zap.Int("inserted", stats["inserted"]),
		zap.Int("skipped_no_zip", stats["skipped_no_zip"]))

	stats["aliases_created"] = 0
	for _, a := range aliases {
		exists, err := p.store.AliasExists(ctx, a.locationID, a.aliasName)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		alias := &model.LocationAlias{
			LocationID: a.locationID,
			AliasName:  a.aliasName,
			Notes:      fmt.Sprintf("auto: push name mismatch (source: %s)", a.dataSource),
		}
		if err := p.store.InsertLocationAlias(ctx, alias); err != nil {
			return nil, err
		}
		stats["aliases_created"]++
	}
	if len(aliases) > 0 {
		p.logger.Info("recorded name aliases", zap.Int("aliases", stats["aliases_created"]))
	}

	return stats, nil
}

// nameDiffers reports a real name disagreement: both sides non-empty and
// unequal after trimming and lowercasing.
func nameDiffers(peerName, localName string) bool {
	a := strings.ToLower(strings.TrimSpace(peerName))
	b := strings.ToLower(strings.TrimSpace(localName))
	return a != "" && b != "" && a != b
}
