package config

import "strings"

// AliasRemoteURL rewrites a remote URL so git connects through the SSH host
// alias (and therefore the deploy key) instead of the real forge host. Both
// scp-like ("git@host:org/repo.git") and ssh:// forms are handled. ok is
// false when the URL does not reference the forge host, in which case the
// caller should use the raw URL.
func AliasRemoteURL(raw string) (url string, ok bool) {
	scpPrefix := GitSSHUser + "@" + ForgeHost + ":"
	if rest, found := strings.CutPrefix(raw, scpPrefix); found {
		return GitSSHUser + "@" + HostAlias + ":" + rest, true
	}

	sshPrefix := "ssh://" + GitSSHUser + "@" + ForgeHost + "/"
	if rest, found := strings.CutPrefix(raw, sshPrefix); found {
		return "ssh://" + GitSSHUser + "@" + HostAlias + "/" + rest, true
	}

	return raw, false
}
