package grid

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/grid"
)

// Command creates a new cobra.Command describing one tile of the mosaic.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid <tile-id>",
		Short: "Show the position and neighbours of a tile",
		Long:  "Tile ids are 1-based and run down each column first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tileID, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Newf("tile id %q is not a number", args[0]).
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}

			topology, err := grid.New(ctx.Settings.Grid.Rows, ctx.Settings.Grid.Cols)
			if err != nil {
				return err
			}
			pos, err := topology.PositionOf(tileID)
			if err != nil {
				return err
			}
			neighbors, err := topology.Neighbors(tileID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Grid\t%d rows x %d cols\n", topology.Rows(), topology.Cols())
			fmt.Fprintf(w, "Tile\t%d\n", tileID)
			fmt.Fprintf(w, "Position\trow %d, col %d\n", pos.Row, pos.Col)
			for _, n := range neighbors {
				if n.OK {
					fmt.Fprintf(w, "%s\t%d\n", n.Direction, n.TileID)
				} else {
					fmt.Fprintf(w, "%s\t-\n", n.Direction)
				}
			}
			return w.Flush()
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(fmt.Sprintf("grid: %v", err))
	}

	return cmd
}

// setupFlags defines flags specific to the grid command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().IntP("rows", "r", conf.DefaultRows, "Tiles per column")
	cmd.Flags().IntP("cols", "k", conf.DefaultCols, "Tiles per row")

	return conf.AnnotateFlags(cmd.Flags(), map[string]string{
		"rows": "grid.rows",
		"cols": "grid.cols",
	})
}
