// Package execx provides a thin abstraction over running system commands.
//
// Bootstrap stages drive the host through external tools (apt-get, git,
// groupadd, systemctl). Routing every invocation through a [Runner] keeps the
// stages unit-testable: tests substitute a [Fake] that records commands and
// scripts their results.
package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external commands on behalf of a bootstrap stage.
type Runner interface {
	// Run executes a command and returns an error carrying the combined
	// output on failure.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its trimmed standard output.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// LookPath reports the absolute path of a binary, or an error if it is
	// not present on PATH.
	LookPath(name string) (string, error)
}

// System is the production Runner backed by os/exec.
type System struct {
	// Env, when non-nil, replaces the inherited environment for every
	// command. Used to pin HOME for git global config operations.
	Env []string
}

// Run executes the command and folds combined output into the error.
func (s *System) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if s.Env != nil {
		cmd.Env = s.Env
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Output executes the command and returns trimmed stdout.
func (s *System) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if s.Env != nil {
		cmd.Env = s.Env
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath resolves a binary on PATH.
func (s *System) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
