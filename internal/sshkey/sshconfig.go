package sshkey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HasAlias reports whether the SSH client configuration already contains a
// Host block for the given alias. A missing configuration file simply means
// no alias.
func HasAlias(configPath, alias string) (bool, error) {
	data, err := os.ReadFile(configPath) // #nosec G304 -- operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read SSH config %s: %w", configPath, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "Host") {
			continue
		}
		for _, pattern := range fields[1:] {
			if pattern == alias {
				return true, nil
			}
		}
	}
	return false, nil
}

// AppendAlias appends a Host block binding alias to the real host, the git
// user, and the deploy key, with IdentitiesOnly so SSH never falls back to
// other keys. Existing blocks are never rewritten; callers must check
// HasAlias first.
func AppendAlias(configPath, alias, host, user, keyPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create SSH directory: %w", err)
	}

	f, err := os.OpenFile(configPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open SSH config %s: %w", configPath, err)
	}
	defer f.Close()

	block := fmt.Sprintf("\nHost %s\n"+
		"    HostName %s\n"+
		"    User %s\n"+
		"    IdentityFile %s\n"+
		"    IdentitiesOnly yes\n",
		alias, host, user, keyPath)

	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to append SSH host alias: %w", err)
	}
	return nil
}
