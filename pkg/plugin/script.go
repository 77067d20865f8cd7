package plugin

import (
	"context"
	"fmt"
	"os"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
)

// Script is a plugin written in tengo. The script sees the installed genome
// through the "genome" module (name, dir, fasta, sizes, gaps, readme,
// annotation_gtf, annotation_bed, index_dir) and the globals threads and
// force. Setting a global err to a non-empty string or an error value
// fails the plugin.
type Script struct {
	name string
	path string
}

// NewScript creates a script plugin.
func NewScript(name, path string) *Script {
	return &Script{name: name, path: path}
}

// Name implements Plugin.
func (s *Script) Name() string { return s.name }

// AfterGenomeDownload implements Plugin.
func (s *Script) AfterGenomeDownload(ctx context.Context, g *genome.Genome, threads int, force bool) error {
	logger.Debug("Executing plugin script", logger.Fields{"plugin": s.name, "path": s.path, "genome": g.Name})

	content, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read plugin script %s: %w", s.path, err)
	}

	moduleMap := stdlib.GetModuleMap(stdlib.AllModuleNames()...)
	moduleMap.AddBuiltinModule("genome", map[string]tengo.Object{
		"name":           &tengo.String{Value: g.Name},
		"dir":            &tengo.String{Value: g.Dir},
		"fasta":          &tengo.String{Value: g.FastaPath()},
		"sizes":          &tengo.String{Value: g.SizesPath()},
		"gaps":           &tengo.String{Value: g.GapsPath()},
		"readme":         &tengo.String{Value: g.ReadmePath()},
		"annotation_gtf": &tengo.String{Value: g.AnnotationGTFPath()},
		"annotation_bed": &tengo.String{Value: g.AnnotationBEDPath()},
		"index_dir":      &tengo.String{Value: g.IndexDir(s.name)},
	})

	script := tengo.NewScript(content)
	script.SetImports(moduleMap)
	if err := script.Add("threads", threads); err != nil {
		return fmt.Errorf("failed to add threads to script: %w", err)
	}
	if err := script.Add("force", force); err != nil {
		return fmt.Errorf("failed to add force to script: %w", err)
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.path, errors.ErrPluginScript, err)
	}

	switch v := compiled.Get("err").Object().(type) {
	case *tengo.Error:
		return fmt.Errorf("%s: %w: %s", s.name, errors.ErrPluginScript, v.Value.String())
	case *tengo.String:
		if v.Value != "" {
			return fmt.Errorf("%s: %w: %s", s.name, errors.ErrPluginScript, v.Value)
		}
	}
	return nil
}
