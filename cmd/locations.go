package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skatetrax/ice-maker/internal/curator"
	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Search and curate the locations directory",
	Long:  "Commands for finding promoted locations and fixing what promotion got wrong: demoting, renaming, and merging duplicates.",
}

// -- locations search --

var locationsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find locations by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		state, _ := cmd.Flags().GetString("state")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := curator.New(st).Search(ctx, args[0], state)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "no locations found")
			return nil
		}

		formatLocationList(os.Stdout, results)
		return nil
	},
}

// -- locations demote --

var locationsDemoteCmd = &cobra.Command{
	Use:   "demote <location> <status>",
	Short: "Change a location's status",
	Long:  "Set a location to closed_permanently, seasonal, disabled, or back to active. The location may be named by id or by name.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := curator.New(st).Demote(ctx, locationTarget(args[0]), model.LocationStatus(args[1]))
		if err != nil {
			return describeAmbiguous(err)
		}

		fmt.Printf("demoted %q (%s, %s): %s -> %s\n",
			res.Location.Name, res.Location.City, res.Location.State, res.OldStatus, res.NewStatus)
		return nil
	},
}

// -- locations rename --

var locationsRenameCmd = &cobra.Command{
	Use:   "rename <location> <new-name>",
	Short: "Rename a location, keeping the old name as an alias",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := curator.New(st).Rename(ctx, locationTarget(args[0]), args[1])
		if err != nil {
			return describeAmbiguous(err)
		}

		fmt.Printf("renamed %q -> %q\n", res.OldName, res.Location.Name)
		if res.AliasCreated {
			fmt.Println("old name kept as an alias")
		}
		return nil
	},
}

// -- locations merge --

var locationsMergeCmd = &cobra.Command{
	Use:   "merge <from> <into>",
	Short: "Fold a duplicate location into the one to keep",
	Long:  "Move the duplicate's source links and candidates onto the surviving location, keep its name as an alias, and mark it merged. Both locations may be named by id or by name.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c := curator.New(st)

		from, err := c.Find(ctx, locationTarget(args[0]))
		if err != nil {
			return describeAmbiguous(err)
		}
		into, err := c.Find(ctx, locationTarget(args[1]))
		if err != nil {
			return describeAmbiguous(err)
		}

		res, err := c.Merge(ctx, from.ID, into.ID)
		if err != nil {
			return err
		}

		fmt.Printf("merged %q into %q: %d links moved, %d absorbed, %d candidates re-pointed\n",
			res.From.Name, res.Into.Name, res.SourcesMoved, res.SourcesMerged, res.CandidatesRepointed)
		return nil
	},
}

func init() {
	locationsSearchCmd.Flags().String("state", "", "narrow to one state code")

	locationsCmd.AddCommand(locationsSearchCmd)
	locationsCmd.AddCommand(locationsDemoteCmd)
	locationsCmd.AddCommand(locationsRenameCmd)
	locationsCmd.AddCommand(locationsMergeCmd)
	rootCmd.AddCommand(locationsCmd)
}

// locationTarget treats arguments that parse as UUIDs as location ids
// and anything else as a name.
func locationTarget(arg string) curator.Target {
	if _, err := uuid.Parse(arg); err == nil {
		return curator.Target{ID: arg}
	}
	return curator.Target{Name: arg}
}

// describeAmbiguous lists the matches behind an ambiguous-name error so
// the operator can retry with an id. Other errors pass through.
func describeAmbiguous(err error) error {
	var ambiguous *curator.AmbiguousNameError
	if errors.As(err, &ambiguous) {
		fmt.Fprintf(os.Stderr, "%q matched %d locations:\n", ambiguous.Name, len(ambiguous.Matches))
		for _, loc := range ambiguous.Matches {
			fmt.Fprintf(os.Stderr, "  %s  %s, %s  (%s)\n", loc.ID, loc.City, loc.State, loc.Name)
		}
	}
	return err
}

func formatLocationList(out io.Writer, results []store.LocationSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCITY\tSTATE\tSTATUS\tSOURCES\tID")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t------\t-------\t--")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Location.Name, r.Location.City, r.Location.State, r.Location.Status, r.SourceCount, r.Location.ID)
	}
	_ = w.Flush()
}
