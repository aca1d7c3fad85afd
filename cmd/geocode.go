package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var geocodePendingCmd = &cobra.Command{
	Use:   "geocode-pending",
	Short: "Geocode candidates still awaiting verification",
	Long: `Work through candidates left unverified by earlier runs, oldest
first. Picks up where --no-geocode or an interrupted run left off.
Respects the Nominatim rate gap, so large backlogs take a while.`,
	RunE: runGeocodePending,
}

func init() {
	f := geocodePendingCmd.Flags()
	f.String("source", "", "only candidates from this source")
	f.Bool("no-cache", false, "bypass the geocode result cache")

	rootCmd.AddCommand(geocodePendingCmd)
}

func runGeocodePending(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceName, _ := cmd.Flags().GetString("source")
	noCache, _ := cmd.Flags().GetBool("no-cache")

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

	runner := pipeline.NewRunner(st, nil, verifier)

	stats, err := runner.GeocodePending(ctx, sourceName, cfg.Pipeline.GeocodeBatch)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
