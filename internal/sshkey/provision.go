package sshkey

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/execx"
)

// Provisioner walks the deploy key through absent -> generated ->
// registered -> verified.
type Provisioner struct {
	cfg      *config.Config
	verifier *Verifier

	// Confirm blocks for the mandatory out-of-band key registration.
	confirm ConfirmFunc

	// hostname and now are seams for deterministic key comments in tests.
	hostname func() (string, error)
	now      func() time.Time
}

// NewProvisioner returns a Provisioner with the interactive confirmation.
func NewProvisioner(cfg *config.Config, run execx.Runner) *Provisioner {
	return &Provisioner{
		cfg:      cfg,
		verifier: NewVerifier(run),
		confirm:  InteractiveConfirm,
		hostname: os.Hostname,
		now:      time.Now,
	}
}

// WithConfirm replaces the confirmation provider.
func (p *Provisioner) WithConfirm(confirm ConfirmFunc) *Provisioner {
	p.confirm = confirm
	return p
}

// Ensure drives the key through the full state machine.
func (p *Provisioner) Ensure(ctx context.Context) error {
	keyPath := p.cfg.KeyPath()

	// absent -> generated
	if Exists(keyPath) {
		log.Printf("Deploy key already exists at %s", keyPath)
	} else {
		hostname, err := p.hostname()
		if err != nil {
			hostname = "unknown-host"
		}
		if err := Generate(keyPath, KeyComment(hostname, p.now())); err != nil {
			return err
		}
		log.Printf("Generated deploy key at %s", keyPath)

		publicKey, err := os.ReadFile(p.cfg.PublicKeyPath()) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to read generated public key: %w", err)
		}
		fmt.Println()
		fmt.Println("Register this deploy key with the private repository:")
		fmt.Println()
		fmt.Print(string(publicKey))
		fmt.Println()
		if err := p.confirm(ctx); err != nil {
			return err
		}
	}

	// generated -> registered
	registered, err := HasAlias(p.cfg.SSHConfigPath, config.HostAlias)
	if err != nil {
		return err
	}
	if registered {
		log.Printf("SSH host alias %q already registered", config.HostAlias)
	} else {
		if err := AppendAlias(p.cfg.SSHConfigPath, config.HostAlias, config.ForgeHost, config.GitSSHUser, keyPath); err != nil {
			return err
		}
		log.Printf("Registered SSH host alias %q", config.HostAlias)
	}

	// registered -> verified. The metadata fallback goes through the alias
	// so it exercises the same path git will use for the clone.
	aliasURL, _ := config.AliasRemoteURL(p.cfg.RepoURL)
	if err := p.verifier.Verify(ctx, config.ForgeHost, config.GitSSHUser, keyPath, aliasURL); err != nil {
		if p.cfg.SkipKeyVerify {
			log.Printf("Warning: %v (continuing: %s is set)", err, config.EnvSkipKeyVerify)
			return nil
		}
		return fmt.Errorf("%w; set %s=true to proceed anyway", err, config.EnvSkipKeyVerify)
	}
	log.Println("Deploy key access verified")
	return nil
}
