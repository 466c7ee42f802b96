// Package handlers implements command execution for the corelane-bootstrap
// CLI. Commands stay thin; the logic and its test seams live here.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/delegate"
	"github.com/corelane/bootstrap/internal/envprep"
	"github.com/corelane/bootstrap/internal/execx"
	"github.com/corelane/bootstrap/internal/gitid"
	"github.com/corelane/bootstrap/internal/pipeline"
	"github.com/corelane/bootstrap/internal/pkgmgr"
	"github.com/corelane/bootstrap/internal/repo"
	"github.com/corelane/bootstrap/internal/sshkey"
)

// Factory function variables - can be replaced in tests.
var (
	// geteuid reports the effective uid for the privilege check.
	geteuid = os.Geteuid

	// loadConfig builds the effective configuration.
	loadConfig = config.Load

	// newRunner builds the command runner for a bootstrap run.
	newRunner = func() execx.Runner { return &execx.System{} }

	// buildStages assembles the pipeline.
	buildStages = defaultStages
)

// Run executes the full bootstrap pipeline.
func Run(ctx context.Context) error {
	if geteuid() != 0 {
		return errors.New("corelane-bootstrap must run with root privileges (re-run with sudo)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := pipeline.Run(ctx, buildStages(cfg, newRunner())); err != nil {
		var exitErr *delegate.ExitError
		if errors.As(err, &exitErr) {
			printDelegateHints()
		}
		return err
	}

	log.Println("Bootstrap complete")
	return nil
}

// defaultStages wires the six pipeline stages against the real host.
func defaultStages(cfg *config.Config, run execx.Runner) []pipeline.Stage {
	prep := envprep.New(cfg, run)

	return []pipeline.Stage{
		{
			Name: "prepare environment",
			Run:  prep.Ensure,
		},
		{
			Name: "install packages",
			Run:  pkgmgr.New(run).Ensure,
		},
		{
			Name: "configure git identity",
			Run: func(ctx context.Context) error {
				return gitid.New(run).Ensure(ctx, gitid.Identity{Name: cfg.GitName, Email: cfg.GitEmail})
			},
		},
		{
			Name: "provision deploy key",
			Run:  sshkey.NewProvisioner(cfg, run).Ensure,
		},
		{
			Name: "fetch platform repository",
			Run: func(ctx context.Context) error {
				owner, err := prep.Reconciler()
				if err != nil {
					return err
				}
				aliasRegistered := func() (bool, error) {
					return sshkey.HasAlias(cfg.SSHConfigPath, config.HostAlias)
				}
				return repo.New(cfg, run, aliasRegistered, owner).Ensure(ctx)
			},
		},
		{
			Name: "run private bootstrap",
			Run: func(ctx context.Context) error {
				return delegate.New().Run(ctx, cfg.RepoDir, cfg.DelegateScript())
			},
		},
	}
}

// printDelegateHints gives generic remediation guidance when the private
// bootstrap script fails; its exit code is surfaced, not interpreted.
func printDelegateHints() {
	fmt.Println()
	fmt.Println("The private bootstrap script failed. Common causes:")
	fmt.Println("  - incorrect or incomplete platform configuration")
	fmt.Println("  - the Docker service is not running")
	fmt.Println("  - network access to required registries or hosts is blocked")
	fmt.Println("  - file permissions under the platform directory")
	fmt.Println("Fix the underlying issue and re-run corelane-bootstrap; every step is idempotent.")
}
