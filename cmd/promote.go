package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote verified candidates into the locations directory",
	Long: `Move verified candidates into the locations directory in three
phases: promote verified candidates (adopting skatetrax UUIDs where the
peer already knows the rink), link duplicate rejections to the location
their primary landed on, and link street-less wiki entries by name.
Safe to re-run; already-promoted candidates are skipped.`,
	RunE: runPromote,
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}

func runPromote(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	peer, closePeer := initPeerDirectory(ctx)
	defer closePeer()

	stats, err := pipeline.NewPromoter(st, peer, cfg.Pipeline.PromoteBatch).Run(ctx)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
