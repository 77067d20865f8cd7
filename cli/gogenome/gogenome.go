package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/gogenome/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gogenome",
		Short: "Download and manage reference genomes",
		Long: `gogenome downloads genomes and gene annotations from Ensembl, UCSC, NCBI
or any URL into one consistent directory layout.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewSearchCmd(),
		cli.NewGenomesCmd(),
		cli.NewProvidersCmd(),
		cli.NewInstalledCmd(),
		cli.NewConfigCmd(),
		cli.NewCacheCmd(),
		cli.NewPluginCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
