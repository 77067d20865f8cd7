package cli

import (
	"fmt"
	"iter"

	"github.com/glorpus-work/gogenome/pkg/catalog"
	"github.com/glorpus-work/gogenome/pkg/provider"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		providerName string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search for genomes",
		Long: `Search the provider catalogs for genomes. TERM is matched case-insensitively
against names, descriptions and metadata. A number matches the taxonomy id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(providerName, limit, func(p provider.Provider) iter.Seq2[catalog.Entry, error] {
				return p.Search(cmd.Context(), args[0])
			})
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Only search this provider")
	cmd.Flags().IntVar(&limit, "limit", DefaultSearchLimit, "Maximum number of results (0 = unlimited)")

	return cmd
}

// NewGenomesCmd creates the genomes command.
func NewGenomesCmd() *cobra.Command {
	var providerName string

	cmd := &cobra.Command{
		Use:   "genomes",
		Short: "List available genomes",
		Long:  "List all genomes in the catalog of a provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(providerName, 0, func(p provider.Provider) iter.Seq2[catalog.Entry, error] {
				return p.ListAvailableGenomes(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider to list (required)")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

// NewProvidersCmd creates the providers command.
func NewProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List genome providers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range provider.Names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func runCatalog(providerName string, limit int, list func(provider.Provider) iter.Seq2[catalog.Entry, error]) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	providers := a.registry.List()
	if providerName != "" {
		p, err := a.registry.Create(providerName)
		if err != nil {
			return err
		}
		providers = []provider.Provider{p}
	}

	table := newTable("NAME", "PROVIDER", "ACCESSION", "TAXID", "DESCRIPTION")
	rows := 0
outer:
	for _, p := range providers {
		for e, err := range list(p) {
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			table.Append([]string{e.Name, p.Name(), e.Accession, e.TaxID, truncate(e.Description, MaxDescriptionLength)})
			rows++
			if limit > 0 && rows >= limit {
				break outer
			}
		}
	}

	if rows == 0 {
		fmt.Println("No genomes found")
		return nil
	}
	table.Render()
	fmt.Printf("\nFound %d genome(s)\n", rows)
	return nil
}
