package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the locations directory to the skatetrax database",
	Long: `Upsert every location into the skatetrax rinks table. New rinks are
inserted; known rinks get directory fields refreshed without touching
columns skatetrax owns. Use --dry-run to see what would change.`,
	RunE: runPush,
}

func init() {
	f := pushCmd.Flags()
	f.Bool("dry-run", false, "report what would be pushed without writing")

	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

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

	stats, err := pipeline.NewPusher(st, peerDB).Push(ctx, dryRun)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
