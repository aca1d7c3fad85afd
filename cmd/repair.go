package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/pipeline"
)

var repairFailedCmd = &cobra.Command{
	Use:   "repair-failed",
	Short: "Reset failed geocodes for another attempt",
	Long: `Put geocode_failed candidates back to unverified so the next
geocode-pending pass retries them. Useful after a Nominatim outage.`,
	RunE: runRepairFailed,
}

func init() {
	rootCmd.AddCommand(repairFailedCmd)
}

func runRepairFailed(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	stats, err := pipeline.NewRunner(st, nil, nil).RepairFailed(ctx)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}
