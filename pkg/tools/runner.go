//go:generate mockgen -destination=mocks/runner.go . Runner

// Package tools runs the external command line programs the pipeline relies
// on: bgzip, the UCSC genePred converters and aligner index builders.
package tools

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
)

// Runner executes external programs.
type Runner interface {
	// Run executes name with args and waits for it to finish.
	Run(ctx context.Context, name string, args ...string) error
	// Available reports whether name can be found on PATH.
	Available(name string) bool
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// maxStderr caps how much tool output ends up in an error message.
const maxStderr = 4096

// Run executes name. A non-zero exit is reported as ErrToolFailed carrying
// the tail of the program's stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, errors.ErrToolMissing)
	}

	logger.Debug("running external tool", logger.Fields{"tool": name, "args": strings.Join(args, " ")})

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[len(msg)-maxStderr:]
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s: %w: %w", name, exitErr.ExitCode(), msg, errors.ErrDownloadFailed, errors.ErrToolFailed)
		}
		return fmt.Errorf("%s: %v: %w: %w", name, err, errors.ErrDownloadFailed, errors.ErrToolFailed)
	}
	return nil
}

// Available reports whether name can be found on PATH.
func (r *ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
