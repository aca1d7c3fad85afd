package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/fetcher"
	"github.com/skatetrax/ice-maker/internal/geocode"
	"github.com/skatetrax/ice-maker/internal/pipeline"
	"github.com/skatetrax/ice-maker/internal/source"
	"github.com/skatetrax/ice-maker/internal/store"
	"github.com/skatetrax/ice-maker/pkg/nominatim"
	"github.com/skatetrax/ice-maker/pkg/skatetrax"
)

func initStore(ctx context.Context) (*store.PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return store.NewPostgres(ctx, cfg.DB.URL, &store.PoolConfig{MaxConns: int32(cfg.DB.MaxConns)})
}

func initRegistry() *source.Registry {
	client := fetcher.NewClient(fetcher.Options{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
	})
	return source.NewRegistry(client)
}

// initVerifier builds the Nominatim-backed verifier. The returned func
// releases the geocode cache and is safe to call when caching is off.
func initVerifier(noCache bool) (*geocode.Verifier, func(), error) {
	opts := []nominatim.Option{
		nominatim.WithBaseURL(cfg.Geocode.URL),
		nominatim.WithGap(cfg.Geocode.Gap),
		nominatim.WithUserAgent(cfg.HTTP.UserAgent),
		nominatim.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
	}

	cleanup := func() {}
	if !noCache && cfg.Geocode.CachePath != "" {
		cache, err := nominatim.OpenCache(cfg.Geocode.CachePath, cfg.Geocode.CacheTTL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open geocode cache")
		}
		opts = append(opts, nominatim.WithCache(cache))
		cleanup = func() { _ = cache.Close() }
	}

	return geocode.NewVerifier(nominatim.NewClient(opts...)), cleanup, nil
}

// initPeerDirectory wires the promotion-time rink lookup: the public
// skatetrax API, plus its database when one is configured. A peer that
// cannot be reached degrades to an empty directory rather than blocking
// promotion, so connection failures here only log.
func initPeerDirectory(ctx context.Context) (*skatetrax.Directory, func()) {
	client := skatetrax.NewClient(skatetrax.WithAPIURL(cfg.Skatetrax.APIURL))

	if cfg.Skatetrax.DBURL == "" {
		return skatetrax.NewDirectory(client, nil), func() {}
	}

	peerDB, err := skatetrax.OpenDB(ctx, cfg.Skatetrax.DBURL)
	if err != nil {
		zap.L().Warn("skatetrax database unreachable, using API only", zap.Error(err))
		return skatetrax.NewDirectory(client, nil), func() {}
	}
	return skatetrax.NewDirectory(client, peerDB), peerDB.Close
}

// initPeerDB opens the skatetrax database for commands that write to it
// or read ice time from it. Unlike promotion these cannot degrade, so a
// missing URL or a dead peer is an error.
func initPeerDB(ctx context.Context) (*skatetrax.DB, error) {
	return skatetrax.OpenDB(ctx, cfg.Skatetrax.DBURL)
}

// printStats writes pipeline counters one per line, keys sorted.
func printStats(out io.Writer, stats pipeline.Stats) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", k, stats[k])
	}
	_ = w.Flush()
}
