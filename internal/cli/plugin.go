package cli

import (
	"fmt"
	"slices"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/plugin"
	"github.com/glorpus-work/gogenome/pkg/tools"
	"github.com/spf13/cobra"
)

// NewPluginCmd creates the plugin command with subcommands.
func NewPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Inspect plugins",
		Long:  "Plugins run after a genome install. Enable them with the plugins setting.",
	}

	cmd.AddCommand(newPluginListCmd())

	return cmd
}

func newPluginListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available plugins",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			names, err := plugin.Available(cfg.Settings.PluginDir, tools.NewExecRunner())
			if err != nil {
				return err
			}

			table := newTable("PLUGIN", "ENABLED")
			for _, name := range names {
				enabled := "no"
				if slices.Contains(cfg.Settings.Plugins, name) {
					enabled = "yes"
				}
				table.Append([]string{name, enabled})
			}
			table.Render()
			for _, name := range cfg.Settings.Plugins {
				if !slices.Contains(names, name) {
					logger.Warnf("Enabled plugin %q not found", name)
				}
			}
			fmt.Printf("\nScript plugins are read from %s\n", cfg.Settings.PluginDir)
			return nil
		},
	}
}
