package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Stennix/tilemerge/internal/conf"
)

const (
	initCommandName = "init"
	redacted        = "[redacted]"
)

// SkipsInitialize reports whether cmd runs without loading settings.
func SkipsInitialize(cmd *cobra.Command) bool {
	return cmd.Name() == initCommandName && cmd.Parent() != nil && cmd.Parent().Name() == "config"
}

// Command creates the config command group.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	cmd.AddCommand(initCommand(), showCommand(ctx))

	return cmd
}

func initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   initCommandName + " [path]",
		Short: "Write the annotated default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func showCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Prints the settings after defaults, config file and environment overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := *ctx.Settings
			if settings.Output.Database.MySQL.Password != "" {
				settings.Output.Database.MySQL.Password = redacted
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&settings); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
