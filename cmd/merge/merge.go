package merge

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stennix/tilemerge/internal/analysis"
	"github.com/Stennix/tilemerge/internal/conf"
)

// Command creates a new cobra.Command for a merge run.
func Command(ctx *conf.Context) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "merge <input-dir>",
		Short: "Remove duplicate detections across tile boundaries",
		Long: `Reads every *.json LabelMe document in input-dir, one per tile, named
<anything>_<tile id>.json. Detections duplicated across a shared tile boundary
are reduced to the most confident one and the filtered documents are written
to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.Settings.Input.Path = args[0]

			var opts []analysis.Option
			if runID != "" {
				opts = append(opts, analysis.WithRunID(runID))
			}

			report, err := analysis.Run(cmd.Context(), ctx.Settings, opts...)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), report)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(fmt.Sprintf("merge: %v", err))
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier recorded in logs and outputs (default: random UUID)")

	return cmd
}

// flagKeys maps each merge flag to the setting it overrides.
var flagKeys = map[string]string{
	"output":       "output.path",
	"overwrite":    "output.overwrite",
	"rows":         "grid.rows",
	"cols":         "grid.cols",
	"width":        "image.width",
	"height":       "image.height",
	"tolerance":    "merge.edgetolerance",
	"threshold":    "merge.overlapthreshold",
	"workers":      "input.workers",
	"log":          "output.log.enabled",
	"log-path":     "output.log.path",
	"log-format":   "output.log.format",
	"db":           "output.database.enabled",
	"db-type":      "output.database.type",
	"db-path":      "output.database.sqlite.path",
	"metrics":      "metrics.enabled",
	"metrics-path": "metrics.path",
	"push-url":     "metrics.pushurl",
}

// setupFlags defines flags specific to the merge command.
func setupFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	f.StringP("output", "o", "merged", "Directory receiving the filtered documents")
	f.Bool("overwrite", false, "Allow the output directory to be the input directory")
	f.IntP("rows", "r", conf.DefaultRows, "Tiles per column")
	f.IntP("cols", "k", conf.DefaultCols, "Tiles per row")
	f.Int("width", conf.DefaultImageWidth, "Tile width in pixels")
	f.Int("height", conf.DefaultImageHeight, "Tile height in pixels")
	f.Float64P("tolerance", "e", conf.DefaultEdgeTolerance, "Pixels from a tile boundary that count as touching it")
	f.Float64P("threshold", "t", conf.DefaultOverlapThreshold, "Minimum overlap fraction along the shared boundary, 0.0 to 1.0")
	f.IntP("workers", "w", 4, "Documents parsed concurrently")
	f.Bool("log", true, "Write the merge log")
	f.String("log-path", "merge_log.json", "Merge log path, relative paths are placed in the output directory")
	f.String("log-format", "json", "Merge log format: json, yaml, csv")
	f.Bool("db", false, "Record the run in the audit database")
	f.String("db-type", "sqlite", "Audit database type: sqlite, mysql")
	f.String("db-path", "tilemerge.db", "SQLite audit database path")
	f.Bool("metrics", false, "Export run metrics")
	f.String("metrics-path", "tilemerge.prom", "Prometheus textfile destination")
	f.String("push-url", "", "Prometheus Pushgateway URL")

	return conf.AnnotateFlags(f, flagKeys)
}

func printSummary(out io.Writer, report *analysis.Report) error {
	s := report.Result.Summary

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run\t%s\n", report.RunID)
	fmt.Fprintf(w, "Documents\t%d\n", report.Documents)
	fmt.Fprintf(w, "Detections loaded\t%d\n", s.DetectionsLoaded)
	fmt.Fprintf(w, "Detections kept\t%d\n", s.DetectionsKept)
	fmt.Fprintf(w, "Duplicates removed\t%d (vertical %d, horizontal %d)\n", s.TotalMerges, s.VerticalMerges, s.HorizontalMerges)
	for _, label := range s.Labels() {
		fmt.Fprintf(w, "  %s\t%d\n", label, s.MergesByLabel[label])
	}
	if len(s.AffectedTiles) > 0 {
		tiles := make([]string, len(s.AffectedTiles))
		for i, id := range s.AffectedTiles {
			tiles[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(w, "Affected tiles\t%s\n", strings.Join(tiles, ", "))
	}
	fmt.Fprintf(w, "Output\t%s\n", report.OutputPath)
	if report.LogPath != "" {
		fmt.Fprintf(w, "Merge log\t%s\n", report.LogPath)
	}
	fmt.Fprintf(w, "Elapsed\t%s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return w.Flush()
}
