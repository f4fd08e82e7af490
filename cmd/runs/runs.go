package runs

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/datastore"
	"github.com/Stennix/tilemerge/internal/logger"
)

// Command creates the runs command group reading the audit database.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect merge runs recorded in the audit database",
	}

	cmd.PersistentFlags().String("db-type", "sqlite", "Audit database type: sqlite, mysql")
	cmd.PersistentFlags().String("db-path", "tilemerge.db", "SQLite audit database path")
	if err := conf.AnnotateFlags(cmd.PersistentFlags(), map[string]string{
		"db-type": "output.database.type",
		"db-path": "output.database.sqlite.path",
	}); err != nil {
		panic(fmt.Sprintf("runs: %v", err))
	}

	cmd.AddCommand(listCommand(ctx), showCommand(ctx))

	return cmd
}

func openStore(ctx *conf.Context) (*datastore.Store, error) {
	return datastore.Open(&ctx.Settings.Output.Database, logger.Global().Module("datastore"))
}

func listCommand(ctx *conf.Context) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tGRID\tDETECTIONS\tKEPT\tMERGES\tINPUT")
			for i := range runs {
				r := &runs[i]
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Rows, r.Cols,
					r.Detections, r.Kept, r.Merges, r.InputPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", datastore.DefaultListLimit, "Maximum number of runs to list")

	return cmd
}

func showCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its merge decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := store.ListEvents(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Run\t%s\n", run.ID)
			fmt.Fprintf(w, "Started\t%s\n", run.StartedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "Input\t%s\n", run.InputPath)
			fmt.Fprintf(w, "Output\t%s\n", run.OutputPath)
			fmt.Fprintf(w, "Grid\t%d rows x %d cols, %dx%d px\n", run.Rows, run.Cols, run.ImageWidth, run.ImageHeight)
			fmt.Fprintf(w, "Tolerance\t%g px, threshold %g\n", run.EdgeTolerance, run.OverlapThreshold)
			fmt.Fprintf(w, "Detections\t%d loaded, %d kept\n", run.Detections, run.Kept)
			fmt.Fprintf(w, "Merges\t%d (vertical %d, horizontal %d)\n", run.Merges, run.Vertical, run.Horizontal)
			if err := w.Flush(); err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout())
			w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tREMOVED\tKEPT\tLABEL\tCONFIDENCE\tDIRECTION\tORIENTATION")
			for i := range events {
				e := &events[i]
				fmt.Fprintf(w, "%d\t%d#%d\t%d#%d\t%s\t%g\t%s\t%s\n",
					e.Seq, e.RemovedTile, e.RemovedIndex, e.KeptTile, e.KeptIndex,
					e.Label, e.WinningConfidence, e.Direction, e.Orientation)
			}
			return w.Flush()
		},
	}
}
