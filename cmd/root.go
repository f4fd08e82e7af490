package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Stennix/tilemerge/cmd/config"
	"github.com/Stennix/tilemerge/cmd/grid"
	"github.com/Stennix/tilemerge/cmd/merge"
	"github.com/Stennix/tilemerge/cmd/runs"
	"github.com/Stennix/tilemerge/cmd/version"
	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/errors"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tilemerge",
		Short: "Merge duplicate detections across microscope tile boundaries",
		Long: `tilemerge reads one LabelMe document per tile of a column-major mosaic,
removes detections duplicated across shared tile boundaries and writes the
filtered documents together with a merge log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, ctx)

	versionCmd := version.Command(ctx)
	configCmd := config.Command(ctx)

	subcommands := []*cobra.Command{
		merge.Command(ctx),
		grid.Command(ctx),
		runs.Command(ctx),
		configCmd,
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := ctx.BindFlags(cmd.Flags()); err != nil {
			return err
		}

		// Skip setup for commands that do not read settings
		if cmd == versionCmd || config.SkipsInitialize(cmd) {
			return nil
		}

		return ctx.Initialize()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *conf.Context) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config file (default: config.yaml in ., ~/.config/tilemerge or /etc/tilemerge)")
	flags.BoolP("debug", "d", false, "Enable debug output")

	if err := conf.AnnotateFlag(flags, "debug", "debug"); err != nil {
		panic(fmt.Sprintf("root: %v", err))
	}
}

// PrintError writes err to w. Categorized errors are followed by their
// component, category and context values in key order.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var ee *errors.EnhancedError
	if !errors.As(err, &ee) {
		return
	}
	fmt.Fprintf(w, "  component: %s\n", ee.GetComponent())
	fmt.Fprintf(w, "  category: %s\n", ee.GetCategory())
	ctx := ee.GetContext()
	for _, key := range slices.Sorted(maps.Keys(ctx)) {
		fmt.Fprintf(w, "  %s: %v\n", key, ctx[key])
	}
}
