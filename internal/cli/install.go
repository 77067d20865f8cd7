package cli

import (
	"fmt"

	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/installer"
	"github.com/glorpus-work/gogenome/pkg/provider"
	"github.com/spf13/cobra"
)

type installFlags struct {
	localName      string
	mask           string
	regex          string
	invertMatch    bool
	bgzip          bool
	annotation     bool
	onlyAnnotation bool
	toplevel       bool
	version        string
	toAnnotation   string
	threads        int
	force          bool
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var f installFlags

	cmd := &cobra.Command{
		Use:   "install NAME PROVIDER",
		Short: "Install a genome",
		Long: `Download a genome from a provider (ensembl, ucsc, ncbi or url) into the
genomes directory, generate its sizes and gaps files and optionally its gene
annotation. Configured plugins run afterwards.

For the url provider NAME is the link to the FASTA file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args[0], args[1], f)
		},
	}

	cmd.Flags().StringVarP(&f.localName, "localname", "l", "", "Custom name for the genome directory")
	cmd.Flags().StringVarP(&f.mask, "mask", "m", "soft", "Repeat masking: soft, hard or none")
	cmd.Flags().StringVarP(&f.regex, "regex", "r", "", "Keep only sequences whose name matches this regex")
	cmd.Flags().BoolVarP(&f.invertMatch, "invert-match", "n", false, "Drop the sequences matching --regex instead")
	cmd.Flags().BoolVar(&f.bgzip, "bgzip", false, "Compress the genome with bgzip (default from config)")
	cmd.Flags().BoolVarP(&f.annotation, "annotation", "a", false, "Also download the gene annotation")
	cmd.Flags().BoolVarP(&f.onlyAnnotation, "only-annotation", "o", false, "Only download the gene annotation")
	cmd.Flags().BoolVar(&f.toplevel, "toplevel", false, "Ensembl: always use the toplevel sequence")
	cmd.Flags().StringVar(&f.version, "version", "", "Ensembl: release to download instead of the current one")
	cmd.Flags().StringVar(&f.toAnnotation, "to-annotation", "", "url: link to the gene annotation")
	cmd.Flags().IntVarP(&f.threads, "threads", "t", 0, "Threads for bgzip and plugins (default from config)")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Download the genome again and regenerate sizes, gaps and plugin indexes; an existing annotation is kept unless --annotation is given")

	return cmd
}

func runInstall(cmd *cobra.Command, name, providerName string, f installFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	inst, err := a.installer()
	if err != nil {
		return err
	}
	inst.Hooks = installer.Hooks{OnEvent: func(e installer.Event) {
		if e.Msg != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", e.Phase, e.Msg, e.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Phase, e.ID)
		}
	}}

	threads := f.threads
	if threads <= 0 {
		threads = a.cfg.Settings.Threads
	}
	desc := genome.Descriptor{
		RemoteName:  name,
		LocalName:   f.localName,
		Provider:    providerName,
		Mask:        genome.ParseMask(f.mask),
		Regex:       f.regex,
		InvertMatch: f.invertMatch,
	}
	opts := installer.Options{
		BGZip:          f.bgzip || a.cfg.Settings.BGZip,
		Annotation:     f.annotation,
		OnlyAnnotation: f.onlyAnnotation,
		Force:          f.force,
		Threads:        threads,
		Provider: provider.Options{
			Version:      f.version,
			Toplevel:     f.toplevel,
			ToAnnotation: f.toAnnotation,
		},
	}

	g, err := inst.Install(cmd.Context(), desc, opts)
	if err != nil {
		return fmt.Errorf("failed to install %s: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Genome %s installed in %s\n", g.Name, g.Dir)
	return nil
}
