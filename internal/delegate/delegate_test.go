package delegate

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelane/bootstrap/internal/pipeline"
)

func writeScript(t *testing.T, repoDir, body string, mode fs.FileMode) string {
	t.Helper()
	scriptDir := filepath.Join(repoDir, "scripts")
	require.NoError(t, os.MkdirAll(scriptDir, 0o755))
	path := filepath.Join(scriptDir, "bootstrap.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), mode))
	return path
}

func bufferedRunner() (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Runner{Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func TestRun_StreamsOutputAndSucceeds(t *testing.T) {
	repoDir := t.TempDir()
	script := writeScript(t, repoDir, "echo hello from delegate\necho warn >&2\n", 0o755)
	r, stdout, stderr := bufferedRunner()

	require.NoError(t, r.Run(context.Background(), repoDir, script))
	assert.Equal(t, "hello from delegate\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestRun_RunsFromRepoDir(t *testing.T) {
	repoDir := t.TempDir()
	script := writeScript(t, repoDir, "pwd\n", 0o755)
	r, stdout, _ := bufferedRunner()

	require.NoError(t, r.Run(context.Background(), repoDir, script))
	// Resolve symlinks: on some systems TMPDIR itself is a symlink.
	resolved, err := filepath.EvalSymlinks(repoDir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(string(bytes.TrimSpace(stdout.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
}

func TestRun_PropagatesExitCode(t *testing.T) {
	repoDir := t.TempDir()
	script := writeScript(t, repoDir, "exit 7\n", 0o755)
	r, _, _ := bufferedRunner()

	err := r.Run(context.Background(), repoDir, script)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
	assert.Equal(t, script, exitErr.Path)
}

func TestRun_MakesScriptExecutable(t *testing.T) {
	repoDir := t.TempDir()
	script := writeScript(t, repoDir, "exit 0\n", 0o644)
	r, _, _ := bufferedRunner()

	require.NoError(t, r.Run(context.Background(), repoDir, script))

	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())
}

func TestRun_KeepsExistingMode(t *testing.T) {
	repoDir := t.TempDir()
	script := writeScript(t, repoDir, "exit 0\n", 0o700)
	r, _, _ := bufferedRunner()

	require.NoError(t, r.Run(context.Background(), repoDir, script))

	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o700), info.Mode().Perm(), "executable scripts are not re-chmodded")
}

func TestRun_MissingScriptIsFatal(t *testing.T) {
	repoDir := t.TempDir()
	missing := filepath.Join(repoDir, "scripts", "bootstrap.sh")
	r, _, _ := bufferedRunner()

	err := r.Run(context.Background(), repoDir, missing)
	require.Error(t, err)
	var fatal *pipeline.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Contains(t, fatal.Error(), missing)
}
