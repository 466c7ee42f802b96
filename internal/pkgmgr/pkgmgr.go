// Package pkgmgr installs the container runtime and version-control tooling.
//
// Installation follows the vendor's documented apt flow for Debian-family
// hosts: signing key into /etc/apt/keyrings, a sources.list.d entry built
// from the host architecture and release codename, then apt-get. Detection
// short-circuits so an already-provisioned host performs no package
// operations at all.
package pkgmgr

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/corelane/bootstrap/internal/execx"
)

const (
	dockerKeyURL     = "https://download.docker.com/linux/%s/gpg"
	dockerRepoURL    = "https://download.docker.com/linux/%s"
	keyringPath      = "/etc/apt/keyrings/docker.asc"
	sourcesListPath  = "/etc/apt/sources.list.d/docker.list"
	osReleaseDefault = "/etc/os-release"
)

// dockerPackages is the full engine install set: runtime, CLI, containerd,
// and the buildx/compose plugins.
var dockerPackages = []string{
	"docker-ce",
	"docker-ce-cli",
	"containerd.io",
	"docker-buildx-plugin",
	"docker-compose-plugin",
}

// State reports which tools are already present.
type State struct {
	DockerInstalled  bool
	ComposeInstalled bool
	GitInstalled     bool
}

// Installer ensures Docker and Git are present.
type Installer struct {
	run execx.Runner

	// fetch downloads the vendor signing key. Replaced in tests.
	fetch func(ctx context.Context, url string) ([]byte, error)

	// osReleasePath locates the os-release file. Replaced in tests.
	osReleasePath string

	// keyringPath and sourcesPath are the apt files written during
	// installation. Replaced in tests.
	keyringPath string
	sourcesPath string
}

// New returns an Installer using the given runner.
func New(run execx.Runner) *Installer {
	return &Installer{
		run:           run,
		fetch:         fetchURL,
		osReleasePath: osReleaseDefault,
		keyringPath:   keyringPath,
		sourcesPath:   sourcesListPath,
	}
}

// Inspect probes for the docker binary, the compose plugin, and git.
func (i *Installer) Inspect(ctx context.Context) State {
	var s State
	if _, err := i.run.LookPath("docker"); err == nil {
		s.DockerInstalled = true
		if err := i.run.Run(ctx, "docker", "compose", "version"); err == nil {
			s.ComposeInstalled = true
		}
	}
	if _, err := i.run.LookPath("git"); err == nil {
		s.GitInstalled = true
	}
	return s
}

// Ensure installs whatever Inspect reports missing and re-verifies the
// result. Verification failure after an install is fatal.
func (i *Installer) Ensure(ctx context.Context) error {
	state := i.Inspect(ctx)

	if state.DockerInstalled && state.ComposeInstalled {
		log.Println("Docker Engine and Compose plugin already installed")
	} else {
		if err := i.installDocker(ctx); err != nil {
			return err
		}
	}

	if state.GitInstalled {
		log.Println("Git already installed")
	} else {
		log.Println("Installing git...")
		if err := i.run.Run(ctx, "apt-get", "install", "-y", "git"); err != nil {
			return fmt.Errorf("failed to install git: %w", err)
		}
	}

	return i.verify(ctx)
}

func (i *Installer) installDocker(ctx context.Context) error {
	log.Println("Installing Docker Engine and Compose plugin...")

	distro, codename, err := osRelease(i.osReleasePath)
	if err != nil {
		return fmt.Errorf("failed to identify host distribution: %w", err)
	}

	key, err := i.fetch(ctx, fmt.Sprintf(dockerKeyURL, distro))
	if err != nil {
		return fmt.Errorf("failed to download Docker signing key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(i.keyringPath), 0o755); err != nil {
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}
	if err := os.WriteFile(i.keyringPath, key, 0o644); err != nil {
		return fmt.Errorf("failed to write Docker signing key: %w", err)
	}

	arch, err := i.run.Output(ctx, "dpkg", "--print-architecture")
	if err != nil {
		return fmt.Errorf("failed to determine package architecture: %w", err)
	}

	entry := fmt.Sprintf("deb [arch=%s signed-by=%s] %s %s stable\n",
		arch, i.keyringPath, fmt.Sprintf(dockerRepoURL, distro), codename)
	if err := os.WriteFile(i.sourcesPath, []byte(entry), 0o644); err != nil {
		return fmt.Errorf("failed to write Docker apt source: %w", err)
	}

	if err := i.run.Run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("failed to refresh package index: %w", err)
	}
	installArgs := append([]string{"install", "-y"}, dockerPackages...)
	if err := i.run.Run(ctx, "apt-get", installArgs...); err != nil {
		return fmt.Errorf("failed to install Docker packages: %w", err)
	}

	if err := i.run.Run(ctx, "systemctl", "enable", "--now", "docker"); err != nil {
		return fmt.Errorf("failed to enable Docker service: %w", err)
	}
	return nil
}

// verify re-checks the tools after any installation work.
func (i *Installer) verify(ctx context.Context) error {
	if err := i.run.Run(ctx, "docker", "--version"); err != nil {
		return fmt.Errorf("docker verification failed after install: %w", err)
	}
	if err := i.run.Run(ctx, "docker", "compose", "version"); err != nil {
		return fmt.Errorf("docker compose verification failed after install: %w", err)
	}
	if err := i.run.Run(ctx, "git", "--version"); err != nil {
		return fmt.Errorf("git verification failed after install: %w", err)
	}
	return nil
}

// osRelease extracts the distribution ID and release codename from an
// os-release file.
func osRelease(path string) (id, codename string, err error) {
	data, err := os.ReadFile(path) // #nosec G304 -- fixed system path, overridable only in tests
	if err != nil {
		return "", "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "ID":
			id = value
		case "VERSION_CODENAME":
			codename = value
		}
	}
	if id == "" || codename == "" {
		return "", "", fmt.Errorf("%s is missing ID or VERSION_CODENAME", path)
	}
	return id, codename, nil
}

// fetchURL downloads a small file over HTTPS.
func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
