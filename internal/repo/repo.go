// Package repo fetches the private platform repository.
//
// The fetcher clones when the target is absent and reconciles the remote URL
// and ownership when a clone already exists. It deliberately never fetches
// or merges content: keeping the checkout current is the private installer's
// concern, not the bootstrap's.
package repo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/envprep"
	"github.com/corelane/bootstrap/internal/execx"
	"github.com/corelane/bootstrap/internal/pipeline"
)

// Fetcher ensures the repository clone exists and points at the right
// remote.
type Fetcher struct {
	cfg *config.Config
	run execx.Runner

	// aliasRegistered reports whether the SSH host alias block exists, which
	// decides whether the effective remote URL goes through the alias.
	aliasRegistered func() (bool, error)

	// reconcile applies ownership/mode to the clone. Nil disables
	// reconciliation (tests).
	reconcile func(path string) error
}

// New returns a Fetcher. aliasRegistered and reconcile connect the fetcher
// to the key provisioner's alias state and the environment preparer's
// ownership reconciler.
func New(cfg *config.Config, run execx.Runner, aliasRegistered func() (bool, error), owner *envprep.Ownership) *Fetcher {
	f := &Fetcher{cfg: cfg, run: run, aliasRegistered: aliasRegistered}
	if owner != nil {
		f.reconcile = owner.Reconcile
	}
	return f
}

// EffectiveURL computes the remote URL the clone should use: the alias form
// when the alias is registered, otherwise the raw URL with a warning.
func (f *Fetcher) EffectiveURL() (string, error) {
	registered, err := f.aliasRegistered()
	if err != nil {
		return "", fmt.Errorf("failed to check SSH host alias: %w", err)
	}
	if !registered {
		log.Printf("Warning: SSH host alias %q not registered, using raw remote URL", config.HostAlias)
		return f.cfg.RepoURL, nil
	}

	url, ok := config.AliasRemoteURL(f.cfg.RepoURL)
	if !ok {
		log.Printf("Warning: remote URL %q does not reference %s, using it as-is", f.cfg.RepoURL, config.ForgeHost)
	}
	return url, nil
}

// Ensure clones or reconciles the repository at the configured path.
func (f *Fetcher) Ensure(ctx context.Context) error {
	url, err := f.EffectiveURL()
	if err != nil {
		return err
	}

	info, statErr := os.Stat(f.cfg.RepoDir)
	switch {
	case statErr == nil && info.IsDir():
		return f.reconcileExisting(ctx, url)
	case statErr == nil:
		return &pipeline.FatalError{
			Op:          fmt.Sprintf("repository path %s exists but is not a directory", f.cfg.RepoDir),
			Remediation: "remove it manually and re-run",
		}
	case os.IsNotExist(statErr):
		return f.clone(ctx, url)
	default:
		return fmt.Errorf("failed to inspect repository path %s: %w", f.cfg.RepoDir, statErr)
	}
}

// reconcileExisting validates an existing directory as a git repository and
// aligns its remote URL, without touching content.
func (f *Fetcher) reconcileExisting(ctx context.Context, url string) error {
	if _, err := os.Stat(filepath.Join(f.cfg.RepoDir, ".git")); err != nil {
		return &pipeline.FatalError{
			Op:          fmt.Sprintf("directory %s exists but is not a git repository", f.cfg.RepoDir),
			Remediation: "remove it manually and re-run (likely a corrupted earlier attempt)",
		}
	}
	if err := f.run.Run(ctx, "git", "-C", f.cfg.RepoDir, "rev-parse", "--git-dir"); err != nil {
		return &pipeline.FatalError{
			Op:          fmt.Sprintf("directory %s contains malformed git metadata", f.cfg.RepoDir),
			Remediation: "remove it manually and re-run",
			Err:         err,
		}
	}

	current, err := f.run.Output(ctx, "git", "-C", f.cfg.RepoDir, "remote", "get-url", "origin")
	if err != nil || current != url {
		if err := f.run.Run(ctx, "git", "-C", f.cfg.RepoDir, "remote", "set-url", "origin", url); err != nil {
			return fmt.Errorf("failed to update remote URL: %w", err)
		}
		log.Printf("Updated remote URL of %s to %s", f.cfg.RepoDir, url)
	} else {
		log.Printf("Repository %s already present with matching remote", f.cfg.RepoDir)
	}

	return f.applyOwnership()
}

// clone creates parent directories and performs the initial clone.
func (f *Fetcher) clone(ctx context.Context, url string) error {
	if err := os.MkdirAll(filepath.Dir(f.cfg.RepoDir), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	log.Printf("Cloning %s into %s...", url, f.cfg.RepoDir)
	if err := f.run.Run(ctx, "git", "clone", url, f.cfg.RepoDir); err != nil {
		return &pipeline.FatalError{
			Op:  fmt.Sprintf("failed to clone %s", url),
			Err: err,
		}
	}

	return f.applyOwnership()
}

func (f *Fetcher) applyOwnership() error {
	if f.reconcile == nil {
		return nil
	}
	if err := f.reconcile(f.cfg.RepoDir); err != nil {
		return fmt.Errorf("failed to reconcile clone ownership: %w", err)
	}
	return nil
}
