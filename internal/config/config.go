// Package config defines the bootstrap configuration and its loading rules.
//
// All tunables are environment variables with documented defaults. An
// optional YAML settings file sits between the built-in defaults and the
// environment: defaults < settings file < environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Fixed, non-tunable values. These are part of the contract with the private
// platform repository and the forge, not operator knobs.
const (
	// ForgeHost is the real host of the private repository.
	ForgeHost = "github.com"

	// GitSSHUser is the SSH user the forge expects for git operations.
	GitSSHUser = "git"

	// HostAlias is the SSH client alias bound to the deploy key.
	HostAlias = "github.com-corelane"

	// KeyName is the deploy key filename under the SSH directory.
	KeyName = "corelane_deploy"

	// DelegatePath is the second-stage bootstrap entry point, relative to
	// the repository root.
	DelegatePath = "scripts/bootstrap.sh"

	// DirOwner is the user that owns the base directory tree.
	DirOwner = "root"

	// DirMode is the base directory mode: group-writable with setgid so new
	// entries inherit the shared group.
	DirMode = 0o2775
)

// Config holds every operator-tunable setting.
type Config struct {
	// BaseDir is the shared platform directory.
	BaseDir string `yaml:"baseDir"`

	// RepoDir is where the private platform repository is cloned.
	RepoDir string `yaml:"repoDir"`

	// RepoURL is the SSH remote of the private platform repository.
	RepoURL string `yaml:"repoURL"`

	// Group is the shared group owning the base directory tree.
	Group string `yaml:"group"`

	// User is an optional non-privileged user added to the shared group.
	// Skipped with a warning when the account does not exist.
	User string `yaml:"user"`

	// SSHDir holds the deploy key pair.
	SSHDir string `yaml:"sshDir"`

	// SSHConfigPath is the SSH client configuration that receives the host
	// alias block.
	SSHConfigPath string `yaml:"sshConfig"`

	// GitName and GitEmail are the global git identity for the automation
	// account.
	GitName  string `yaml:"gitName"`
	GitEmail string `yaml:"gitEmail"`

	// SkipKeyVerify downgrades a failed deploy-key access check from fatal
	// to a warning.
	SkipKeyVerify bool `yaml:"skipKeyVerify"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		BaseDir:       "/opt/corelane",
		RepoDir:       "/opt/corelane/platform",
		RepoURL:       "git@github.com:corelane/platform.git",
		Group:         "corelane",
		User:          "corelane",
		SSHDir:        "/root/.ssh",
		SSHConfigPath: "/root/.ssh/config",
		GitName:       "Corelane Bootstrap",
		GitEmail:      "bootstrap@corelane.io",
	}
}

// KeyPath returns the private deploy key path.
func (c *Config) KeyPath() string {
	return filepath.Join(c.SSHDir, KeyName)
}

// PublicKeyPath returns the public deploy key path.
func (c *Config) PublicKeyPath() string {
	return c.KeyPath() + ".pub"
}

// DelegateScript returns the absolute path of the second-stage entry point.
func (c *Config) DelegateScript() string {
	return filepath.Join(c.RepoDir, DelegatePath)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for _, field := range []struct {
		name, value string
	}{
		{"base directory", c.BaseDir},
		{"repository directory", c.RepoDir},
		{"repository URL", c.RepoURL},
		{"group name", c.Group},
		{"SSH directory", c.SSHDir},
		{"SSH config path", c.SSHConfigPath},
		{"git identity name", c.GitName},
		{"git identity email", c.GitEmail},
	} {
		if field.value == "" {
			return fmt.Errorf("%s must not be empty", field.name)
		}
	}
	for _, path := range []struct {
		name, value string
	}{
		{"base directory", c.BaseDir},
		{"repository directory", c.RepoDir},
		{"SSH directory", c.SSHDir},
		{"SSH config path", c.SSHConfigPath},
	} {
		if !filepath.IsAbs(path.value) {
			return fmt.Errorf("%s must be an absolute path, got %q", path.name, path.value)
		}
	}
	if !strings.Contains(c.GitEmail, "@") {
		return fmt.Errorf("git identity email %q is not an email address", c.GitEmail)
	}
	return nil
}
