//go:generate mockgen -destination=mocks/plugin.go . Plugin

// Package plugin runs post-download steps, such as building aligner indexes,
// on a freshly installed genome. Built-in plugins are written in Go; further
// plugins are tengo scripts in the plugin directory.
package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	"github.com/glorpus-work/gogenome/pkg/tools"
	"github.com/hashicorp/go-multierror"
)

// ScriptExt is the file extension of script plugins.
const ScriptExt = ".tengo"

// Plugin is invoked after a genome has been installed.
type Plugin interface {
	// Name returns the name the plugin is enabled by.
	Name() string
	// AfterGenomeDownload runs the plugin on g. With force set, previous
	// results are rebuilt.
	AfterGenomeDownload(ctx context.Context, g *genome.Genome, threads int, force bool) error
}

// Builtins returns the plugins shipped with the binary, keyed by name.
func Builtins(runner tools.Runner) map[string]Plugin {
	return map[string]Plugin{
		"minimap2": NewMinimap2(runner),
	}
}

// Load resolves enabled plugin names in order. A name is either a builtin or
// a script <pluginDir>/<name>.tengo.
func Load(names []string, pluginDir string, runner tools.Runner) ([]Plugin, error) {
	builtins := Builtins(runner)
	out := make([]Plugin, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if p, ok := builtins[name]; ok {
			out = append(out, p)
			continue
		}
		if pluginDir != "" {
			path := filepath.Join(pluginDir, name+ScriptExt)
			if _, err := os.Stat(path); err == nil {
				out = append(out, NewScript(name, path))
				continue
			}
		}
		return nil, fmt.Errorf("%q: %w", name, errors.ErrPluginUnknown)
	}
	return out, nil
}

// Available lists the names of all builtin and script plugins, sorted.
func Available(pluginDir string, runner tools.Runner) ([]string, error) {
	var names []string
	for name := range Builtins(runner) {
		names = append(names, name)
	}
	if pluginDir != "" {
		entries, err := os.ReadDir(pluginDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read plugin directory %s", pluginDir)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ScriptExt {
				names = append(names, strings.TrimSuffix(e.Name(), ScriptExt))
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// RunAll runs plugins in order. A failing plugin does not stop the others;
// all failures are returned together.
func RunAll(ctx context.Context, plugins []Plugin, g *genome.Genome, threads int, force bool) error {
	var result *multierror.Error
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}
		logger.Debug("running plugin", logger.Fields{"plugin": p.Name(), "genome": g.Name})
		if err := p.AfterGenomeDownload(ctx, g, threads, force); err != nil {
			result = multierror.Append(result, fmt.Errorf("plugin %s: %w", p.Name(), err))
		}
	}
	return result.ErrorOrNil()
}
