// Package generator runs the external localization class generator over
// the written bundles and checks that it produced what was expected.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommand is the Flutter localization generator.
var DefaultCommand = []string{"flutter", "gen-l10n"}

// ErrNotInstalled is returned when the generator executable is not on PATH.
var ErrNotInstalled = errors.New("generator not installed")

// MissingOutputError reports an expected artifact the generator did not
// produce.
type MissingOutputError struct {
	Path string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("generator did not produce %s", e.Path)
}

// Options configures Run.
type Options struct {
	// Command is the executable and its arguments; empty means
	// DefaultCommand.
	Command []string
	// Dir is the working directory; relative Expected paths resolve
	// against it.
	Dir      string
	Expected []string
	Stdout   io.Writer
	Stderr   io.Writer
}

// Run executes the generator and verifies its outputs. It never touches
// the bundles it reads.
func Run(ctx context.Context, opts Options) error {
	command := opts.Command
	if len(command) == 0 {
		command = DefaultCommand
	}

	bin, err := exec.LookPath(command[0])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotInstalled, command[0], err)
	}

	cmd := exec.CommandContext(ctx, bin, command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", strings.Join(command, " "), err)
	}

	for _, p := range opts.Expected {
		path := p
		if !filepath.IsAbs(path) && opts.Dir != "" {
			path = filepath.Join(opts.Dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return &MissingOutputError{Path: path}
		}
	}
	return nil
}
