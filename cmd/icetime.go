package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var syncIceTimeCmd = &cobra.Command{
	Use:   "sync-ice-time",
	Short: "Pull ice time counts from skatetrax into source presence windows",
	Long: `Read per-rink ice time activity from the skatetrax database and
fold it into the skatetrax source's presence windows. A rink someone
actually skated at counts as confirmed by skatetrax itself, without
scraping anything.`,
	RunE: runSyncIceTime,
}

func init() {
	rootCmd.AddCommand(syncIceTimeCmd)
}

func runSyncIceTime(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	peerDB, err := initPeerDB(ctx)
	if err != nil {
		return err
	}
	defer peerDB.Close()

	stats, err := pipeline.NewIceTimeSync(st, peerDB).Run(ctx)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
