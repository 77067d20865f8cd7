//go:generate mockgen -destination=./mocks/installer.go . Providers,Annotator

package installer

import (
	"context"

	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/provider"
)

// Providers resolves a provider name to its instance.
type Providers interface {
	Create(name string) (provider.Provider, error)
}

// Annotator installs a gene annotation next to an installed genome.
type Annotator interface {
	Install(ctx context.Context, g *genome.Genome, link string) error
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // resolving|downloading|unpacking|processing|publishing|sidecars|annotation|plugins|done|warning
	ID    string // local genome name
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Options control a genome install.
type Options struct {
	// BGZip compresses the published sequence with bgzip.
	BGZip bool
	// Annotation also installs the gene annotation.
	Annotation bool
	// OnlyAnnotation skips the genome download and installs the annotation only.
	OnlyAnnotation bool
	// Force redownloads and regenerates everything that already exists.
	Force bool
	// Threads is passed to bgzip and the plugins.
	Threads int
	// Provider holds the provider specific options.
	Provider provider.Options
}

// wantsAnnotation reports whether any option asks for the annotation.
func (o Options) wantsAnnotation() bool {
	return o.Annotation || o.OnlyAnnotation || o.Provider.ToAnnotation != ""
}
