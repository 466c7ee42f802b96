// Package sshkey provisions the deploy key that grants the host read access
// to the private platform repository.
//
// The provisioner is a small state machine: absent -> generated ->
// registered -> verified. Generation happens at most once per host; an
// existing key pair is never touched, and the alias block in the SSH client
// configuration is appended exactly once.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// KeyComment builds the comment embedded in the public key: the provisioning
// host and date, so operators can tell deploy keys apart in the forge UI.
func KeyComment(hostname string, now time.Time) string {
	return fmt.Sprintf("corelane-deploy@%s-%s", hostname, now.Format("2006-01-02"))
}

// Exists reports whether a key pair is already present at keyPath.
func Exists(keyPath string) bool {
	_, privErr := os.Stat(keyPath)
	_, pubErr := os.Stat(keyPath + ".pub")
	return privErr == nil && pubErr == nil
}

// Generate creates an ed25519 key pair at keyPath (private) and
// keyPath+".pub" (public). The private key is written 0600, the public key
// 0644, and the containing directory is created 0700 if missing. Generate
// must not be called when a pair already exists.
func Generate(keyPath, comment string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("failed to derive SSH public key: %w", err)
	}
	authorized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	publicLine := fmt.Sprintf("%s %s\n", authorized, comment)

	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(keyPath+".pub", []byte(publicLine), 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}
