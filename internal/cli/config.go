package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/config"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify gogenome configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigFileCmd(),
		newConfigGenerateCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration as YAML",
		RunE:  runConfigShow,
	}

	return cmd
}

func newConfigFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), getConfigPath())
			return nil
		},
	}
}

func newConfigGenerateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a configuration file",
		Long:  "Write a configuration file with the default settings",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigGenerate(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

// Number of arguments expected by the set command.
const setCommandArgs = 2

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key to a specific value",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Get configuration values",
		Long:  "Print the value of a configuration key, or all settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigGet(args)
		},
	}

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := cfg.ToYAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigGenerate(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite): %w", configPath, errors.ErrConfigFileExists)
	}

	if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": configPath})
	return nil
}

func runConfigSet(key, value string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set configuration value: %w", err)
	}

	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Success("Configuration updated", logger.Fields{"key": key, "value": value})
	return nil
}

func runConfigGet(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		value, err := cfg.GetValue(args[0])
		if err != nil {
			return fmt.Errorf("failed to get configuration value: %w", err)
		}
		fmt.Println(value)
		return nil
	}

	settings := cfg.ToMap()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable("SETTING", "VALUE")
	for _, k := range keys {
		table.Append([]string{k, settings[k]})
	}
	table.Render()
	return nil
}
