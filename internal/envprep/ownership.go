package envprep

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Ownership reconciles a directory tree to a fixed owner, group, and
// directory mode. It is shared between the environment preparer (base
// directory) and the repository fetcher (fresh clones).
type Ownership struct {
	UID     int
	GID     int
	DirMode fs.FileMode
}

// Reconcile walks root, chowns every entry that differs from the target
// ownership, and applies DirMode to every directory. Files keep their modes;
// only ownership is enforced on them. Already-compliant entries are left
// untouched.
func (o *Ownership) Reconcile(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if stat, ok := info.Sys().(*syscall.Stat_t); !ok || int(stat.Uid) != o.UID || int(stat.Gid) != o.GID {
			if err := os.Lchown(path, o.UID, o.GID); err != nil {
				return fmt.Errorf("failed to chown %s: %w", path, err)
			}
		}

		if d.IsDir() {
			current := info.Mode() & (fs.ModePerm | fs.ModeSetgid | fs.ModeSetuid | fs.ModeSticky)
			if current != o.DirMode {
				if err := os.Chmod(path, o.DirMode); err != nil {
					return fmt.Errorf("failed to chmod %s: %w", path, err)
				}
			}
		}
		return nil
	})
}
