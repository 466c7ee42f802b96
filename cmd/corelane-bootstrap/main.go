// Package main is the entry point for the corelane-bootstrap CLI.
//
// corelane-bootstrap prepares a fresh Debian-family Linux host to run the
// private Corelane platform installer: it provisions the shared platform
// directory and group, installs Docker and Git, sets up a deploy key for the
// private repository, clones it, and hands control to the second-stage
// bootstrap script inside the clone.
//
// All tunables are CORELANE_* environment variables; run
//
//	corelane-bootstrap --help
//
// for details.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corelane/bootstrap/cmd/corelane-bootstrap/commands"
	"github.com/corelane/bootstrap/internal/delegate"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Root().ExecuteContext(ctx)
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)

	// A failed delegate reports its own exit code verbatim.
	var exitErr *delegate.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}
