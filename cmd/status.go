package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skatetrax/ice-maker/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staging counts and per-source run history",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// candidateStatusOrder fixes the display order; map iteration would
// shuffle it every run.
var candidateStatusOrder = []model.VerificationStatus{
	model.StatusUnverified,
	model.StatusGeocodeMatch,
	model.StatusGeocodeMismatch,
	model.StatusGeocodeFailed,
	model.StatusSourceVerified,
	model.StatusDuplicate,
	model.StatusHumanApproved,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	var (
		rawCount   int
		byStatus   map[model.VerificationStatus]int
		locCount   int
		unreviewed int
		sources    []model.Source
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawCount, err = st.CountRawEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = st.CandidateStatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		locCount, err = st.CountLocations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unreviewed, err = st.CountUnreviewedRejections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sources, err = st.ListSources(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	formatStatus(os.Stdout, rawCount, byStatus, locCount, unreviewed, sources)
	return nil
}

func formatStatus(out io.Writer, rawCount int, byStatus map[model.VerificationStatus]int, locCount, unreviewed int, sources []model.Source) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "raw entries\t%d\n", rawCount)
	for _, s := range candidateStatusOrder {
		if n, ok := byStatus[s]; ok {
			_, _ = fmt.Fprintf(w, "candidates %s\t%d\n", s, n)
		}
	}
	_, _ = fmt.Fprintf(w, "locations\t%d\n", locCount)
	_, _ = fmt.Fprintf(w, "unreviewed rejections\t%d\n", unreviewed)
	_ = w.Flush()

	if len(sources) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tENABLED\tLAST RUN\tSTATUS\tCOUNT")
	_, _ = fmt.Fprintln(w, "------\t-------\t--------\t------\t-----")
	for _, src := range sources {
		lastRun := "never"
		if src.LastRunAt != nil {
			lastRun = src.LastRunAt.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\n",
			src.Name, src.Enabled, lastRun, src.LastRunStatus, src.LastRunCount)
	}
	_ = w.Flush()
}
