package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the locations directory to a file",
	Long: `Write the locations directory to an interchange file. CSV and XLSX
carry every location; GeoJSON and shapefile carry the subset with
geocoded coordinates.

Examples:
  export rinks.csv
  export rinks.xlsx --format xlsx
  export rinks.geojson --format geojson
  export rinks.shp --format shp`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("format", "csv", "output format: csv, xlsx, geojson or shp")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	n, err := export.New(st).Export(ctx, args[0], format)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %d locations to %s\n", n, args[0])
	return nil
}
