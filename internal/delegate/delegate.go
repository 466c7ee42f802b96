// Package delegate hands control to the private bootstrap entry point
// inside the fetched repository.
//
// The delegate is an opaque executable: it is located at a fixed relative
// path, made executable if needed, run with inherited standard streams so
// the operator sees its output live, and its exit code is propagated
// verbatim.
package delegate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/corelane/bootstrap/internal/pipeline"
)

// ExitError reports a delegate that ran but exited non-zero. The code is
// surfaced, not interpreted: the pipeline's own exit status becomes this
// code.
type ExitError struct {
	// Path is the delegate script that failed.
	Path string

	// Code is the delegate's exit code.
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("private bootstrap %s exited with code %d", e.Path, e.Code)
}

// Runner executes the second-stage bootstrap script.
type Runner struct {
	// Stdout and Stderr receive the delegate's output. They default to the
	// process's own streams; tests substitute buffers.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Runner streaming to the current process's stdio.
func New() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run locates scriptPath, ensures it is executable, and runs it with the
// repository root as working directory. A missing script is fatal with a
// diagnostic naming the expected path; a non-zero exit comes back as
// *ExitError.
func (r *Runner) Run(ctx context.Context, repoDir, scriptPath string) error {
	info, err := os.Stat(scriptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &pipeline.FatalError{
				Op:          fmt.Sprintf("private bootstrap entry point not found at %s", scriptPath),
				Remediation: "verify the repository contents and the configured repository URL",
			}
		}
		return fmt.Errorf("failed to inspect %s: %w", scriptPath, err)
	}

	if err := ensureExecutable(scriptPath, info.Mode()); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, scriptPath) // #nosec G204 -- fixed path inside the fetched repository
	cmd.Dir = repoDir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Path: scriptPath, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", scriptPath, err)
	}
	return nil
}

// ensureExecutable adds an exec bit for every class that can already read
// the script, the same way chmod +x does. Already executable scripts are
// left untouched.
func ensureExecutable(path string, mode fs.FileMode) error {
	if mode&0o111 != 0 {
		return nil
	}
	if err := os.Chmod(path, mode.Perm()|(mode.Perm()&0o444)>>2); err != nil {
		return fmt.Errorf("failed to make %s executable: %w", path, err)
	}
	return nil
}
