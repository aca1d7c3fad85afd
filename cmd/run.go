package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Scrape a source and carry it through parsing, dedup and verification",
	Long: `Run the ingestion pipeline for one registered source, or for every
enabled source with --all. A full run captures raw entries, parses and
normalizes them, applies the dedup gauntlet, and geocodes survivors.
With --all the run finishes by promoting verified candidates into the
locations directory.

Examples:
  # One source, full pipeline
  run sk8stuff

  # Everything, end to end
  run --all

  # Capture only, no parsing or geocoding
  run arena_guide --scrape-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.Bool("all", false, "run every enabled source, then geocode and promote")
	f.Bool("scrape-only", false, "capture raw entries and stop")
	f.Bool("no-geocode", false, "parse and dedup but defer geocoding")
	f.Int("limit", 0, "stop after N raw entries (0=no limit)")
	f.Bool("no-cache", false, "bypass the geocode result cache")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	all, _ := cmd.Flags().GetBool("all")
	scrapeOnly, _ := cmd.Flags().GetBool("scrape-only")
	noGeocode, _ := cmd.Flags().GetBool("no-geocode")
	limit, _ := cmd.Flags().GetInt("limit")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	registry := initRegistry()
	if !all && len(args) == 0 {
		return eris.Errorf("run: name a source (%s) or pass --all", strings.Join(registry.Names(), ", "))
	}
	if all && len(args) > 0 {
		return eris.New("run: --all takes no source argument")
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	verifier, closeCache, err := initVerifier(noCache)
	if err != nil {
		return err
	}
	defer closeCache()

	runner := pipeline.NewRunner(st, registry, verifier)
	opts := pipeline.RunOptions{ScrapeOnly: scrapeOnly, NoGeocode: noGeocode, Limit: limit}

	var stats pipeline.Stats
	if all {
		peer, closePeer := initPeerDirectory(ctx)
		defer closePeer()

		promoter := pipeline.NewPromoter(st, peer, cfg.Pipeline.PromoteBatch)
		stats, err = pipeline.RunAll(ctx, runner, promoter, opts)
	} else {
		stats, err = runner.RunSource(ctx, args[0], opts)
	}
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
