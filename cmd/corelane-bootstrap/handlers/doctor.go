package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/envprep"
	"github.com/corelane/bootstrap/internal/execx"
	"github.com/corelane/bootstrap/internal/pkgmgr"
	"github.com/corelane/bootstrap/internal/sshkey"
	"github.com/corelane/bootstrap/internal/ui"
)

// Report is the host-readiness diagnostic produced by doctor.
type Report struct {
	Privileged  bool             `json:"privileged"`
	Environment EnvironmentCheck `json:"environment"`
	Packages    PackageCheck     `json:"packages"`
	Identity    IdentityCheck    `json:"identity"`
	DeployKey   DeployKeyCheck   `json:"deployKey"`
	Repository  RepositoryCheck  `json:"repository"`
	Delegate    DelegateCheck    `json:"delegate"`

	// Ready means a bootstrap run would mutate nothing before handing
	// control to the private bootstrap script.
	Ready bool `json:"ready"`
}

// EnvironmentCheck covers the base directory and shared group.
type EnvironmentCheck struct {
	DirExists   bool `json:"dirExists"`
	OwnershipOK bool `json:"ownershipOK"`
	ModeOK      bool `json:"modeOK"`
	GroupExists bool `json:"groupExists"`
	UserInGroup bool `json:"userInGroup"`
}

// PackageCheck covers the container runtime and git.
type PackageCheck struct {
	Docker  bool `json:"docker"`
	Compose bool `json:"compose"`
	Git     bool `json:"git"`
}

// IdentityCheck covers the global git identity.
type IdentityCheck struct {
	NameOK  bool `json:"nameOK"`
	EmailOK bool `json:"emailOK"`
}

// DeployKeyCheck covers the key pair and its SSH host alias.
type DeployKeyCheck struct {
	KeyExists       bool `json:"keyExists"`
	AliasRegistered bool `json:"aliasRegistered"`
}

// RepositoryCheck covers the platform repository clone.
type RepositoryCheck struct {
	Present  bool `json:"present"`
	IsRepo   bool `json:"isRepo"`
	RemoteOK bool `json:"remoteOK"`
}

// DelegateCheck covers the private bootstrap entry point.
type DelegateCheck struct {
	Present    bool `json:"present"`
	Executable bool `json:"executable"`
}

// Doctor inspects the host and prints the readiness report.
func Doctor(ctx context.Context, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := inspect(ctx, cfg, newRunner())

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printReport(cfg, report)
	return nil
}

// inspect gathers every check without mutating the host.
func inspect(ctx context.Context, cfg *config.Config, run execx.Runner) *Report {
	r := &Report{Privileged: geteuid() == 0}

	env := envprep.New(cfg, run).Inspect()
	r.Environment = EnvironmentCheck{
		DirExists:   env.DirExists,
		OwnershipOK: env.DirExists && env.DirUID == env.OwnerUID && env.DirGID == env.GroupGID && env.GroupGID >= 0,
		ModeOK:      env.DirExists && env.DirMode == envprep.DirMode(),
		GroupExists: env.GroupExists,
		UserInGroup: cfg.User == "" || env.UserInGroup,
	}

	pkgs := pkgmgr.New(run).Inspect(ctx)
	r.Packages = PackageCheck{
		Docker:  pkgs.DockerInstalled,
		Compose: pkgs.ComposeInstalled,
		Git:     pkgs.GitInstalled,
	}

	r.Identity = inspectIdentity(ctx, cfg, run)

	aliasRegistered, _ := sshkey.HasAlias(cfg.SSHConfigPath, config.HostAlias)
	r.DeployKey = DeployKeyCheck{
		KeyExists:       sshkey.Exists(cfg.KeyPath()),
		AliasRegistered: aliasRegistered,
	}

	r.Repository = inspectRepository(ctx, cfg, run, aliasRegistered)
	r.Delegate = inspectDelegate(cfg)

	r.Ready = r.Environment.DirExists && r.Environment.OwnershipOK && r.Environment.ModeOK &&
		r.Environment.GroupExists && r.Environment.UserInGroup &&
		r.Packages.Docker && r.Packages.Compose && r.Packages.Git &&
		r.Identity.NameOK && r.Identity.EmailOK &&
		r.DeployKey.KeyExists && r.DeployKey.AliasRegistered &&
		r.Repository.Present && r.Repository.IsRepo && r.Repository.RemoteOK &&
		r.Delegate.Present && r.Delegate.Executable

	return r
}

func inspectIdentity(ctx context.Context, cfg *config.Config, run execx.Runner) IdentityCheck {
	var check IdentityCheck
	if name, err := run.Output(ctx, "git", "config", "--global", "--get", "user.name"); err == nil {
		check.NameOK = name == cfg.GitName
	}
	if email, err := run.Output(ctx, "git", "config", "--global", "--get", "user.email"); err == nil {
		check.EmailOK = email == cfg.GitEmail
	}
	return check
}

func inspectRepository(ctx context.Context, cfg *config.Config, run execx.Runner, aliasRegistered bool) RepositoryCheck {
	var check RepositoryCheck
	info, err := os.Stat(cfg.RepoDir)
	if err != nil || !info.IsDir() {
		return check
	}
	check.Present = true

	if _, err := os.Stat(filepath.Join(cfg.RepoDir, ".git")); err != nil {
		return check
	}
	check.IsRepo = true

	want := cfg.RepoURL
	if aliasRegistered {
		want, _ = config.AliasRemoteURL(cfg.RepoURL)
	}
	if current, err := run.Output(ctx, "git", "-C", cfg.RepoDir, "remote", "get-url", "origin"); err == nil {
		check.RemoteOK = current == want
	}
	return check
}

func inspectDelegate(cfg *config.Config) DelegateCheck {
	var check DelegateCheck
	info, err := os.Stat(cfg.DelegateScript())
	if err != nil {
		return check
	}
	check.Present = true
	check.Executable = info.Mode()&0o111 != 0
	return check
}

// printReport renders the human-readable readiness report.
func printReport(cfg *config.Config, r *Report) {
	fmt.Println(ui.Title("corelane-bootstrap doctor"))
	if !r.Privileged {
		fmt.Println(ui.Warn("not running as root", "ownership checks may be inconclusive"))
	}

	fmt.Println(ui.Section("Environment"))
	fmt.Println(ui.Status(r.Environment.DirExists, "base directory exists", cfg.BaseDir))
	fmt.Println(ui.Status(r.Environment.OwnershipOK, "ownership", config.DirOwner+":"+cfg.Group))
	fmt.Println(ui.Status(r.Environment.ModeOK, "directory mode", "2775"))
	fmt.Println(ui.Status(r.Environment.GroupExists, "shared group exists", cfg.Group))
	if cfg.User != "" {
		fmt.Println(ui.Status(r.Environment.UserInGroup, "user in group", cfg.User))
	}

	fmt.Println(ui.Section("Packages"))
	fmt.Println(ui.Status(r.Packages.Docker, "docker engine", ""))
	fmt.Println(ui.Status(r.Packages.Compose, "compose plugin", ""))
	fmt.Println(ui.Status(r.Packages.Git, "git", ""))

	fmt.Println(ui.Section("Git identity"))
	fmt.Println(ui.Status(r.Identity.NameOK, "user.name", cfg.GitName))
	fmt.Println(ui.Status(r.Identity.EmailOK, "user.email", cfg.GitEmail))

	fmt.Println(ui.Section("Deploy key"))
	fmt.Println(ui.Status(r.DeployKey.KeyExists, "key pair exists", cfg.KeyPath()))
	fmt.Println(ui.Status(r.DeployKey.AliasRegistered, "SSH host alias", config.HostAlias))

	fmt.Println(ui.Section("Repository"))
	fmt.Println(ui.Status(r.Repository.Present, "clone present", cfg.RepoDir))
	fmt.Println(ui.Status(r.Repository.IsRepo, "valid git repository", ""))
	fmt.Println(ui.Status(r.Repository.RemoteOK, "remote URL", ""))

	fmt.Println(ui.Section("Delegate"))
	fmt.Println(ui.Status(r.Delegate.Present, "entry point present", cfg.DelegateScript()))
	fmt.Println(ui.Status(r.Delegate.Executable, "executable", ""))

	fmt.Println()
	if r.Ready {
		fmt.Println(ui.Status(true, "host fully provisioned; a run would only invoke the delegate", ""))
	} else {
		fmt.Println(ui.Status(false, "host not fully provisioned; run corelane-bootstrap as root", ""))
	}
}
