package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the staging schema and seed the source registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		seeded, err := st.SeedSources(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("schema up to date, %d new sources seeded\n", seeded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
