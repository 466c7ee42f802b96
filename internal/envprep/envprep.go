// Package envprep prepares the shared platform directory and group.
//
// The stage is modeled as inspect -> plan -> apply: Inspect observes the
// host, Plan is a pure function from observed state to an action list, and
// Apply executes only the planned actions. A host that is already compliant
// yields an empty plan and the stage performs no mutations.
package envprep

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/execx"
)

// Action is a single mutation the preparer may apply.
type Action string

const (
	ActionCreateDir   Action = "create base directory"
	ActionCreateGroup Action = "create shared group"
	ActionAddUser     Action = "add designated user to group"
	ActionChownTree   Action = "reconcile ownership"
	ActionChmodDir    Action = "reconcile directory mode"
)

// State is the observed host state relevant to this stage. Unknown values
// (failed inspections) are recorded so Plan schedules the mutation anyway.
type State struct {
	DirExists bool
	DirUID    int // -1 when unknown
	DirGID    int // -1 when unknown
	DirMode   fs.FileMode

	GroupExists bool
	GroupGID    int // -1 when the group does not exist yet

	UserExists  bool
	UserInGroup bool

	// OwnerUID is the uid the tree must be owned by (resolved from the
	// fixed owner account).
	OwnerUID int
}

// Plan computes the actions needed to make the observed state compliant.
func Plan(s State) []Action {
	var actions []Action

	if !s.GroupExists {
		actions = append(actions, ActionCreateGroup)
	}
	if !s.DirExists {
		actions = append(actions, ActionCreateDir)
	}
	if s.UserExists && !s.UserInGroup {
		actions = append(actions, ActionAddUser)
	}

	ownershipUnknown := s.DirUID < 0 || s.DirGID < 0 || s.GroupGID < 0
	if !s.DirExists || ownershipUnknown || s.DirUID != s.OwnerUID || s.DirGID != s.GroupGID {
		actions = append(actions, ActionChownTree)
	}
	if !s.DirExists || s.DirMode != DirMode() {
		actions = append(actions, ActionChmodDir)
	}
	return actions
}

// DirMode returns the target directory mode: 2775 (group-writable, setgid).
func DirMode() fs.FileMode {
	return fs.FileMode(config.DirMode&0o777) | fs.ModeSetgid
}

// Preparer reconciles the base directory and shared group.
type Preparer struct {
	cfg *config.Config
	run execx.Runner

	// Lookup seams, replaced in tests.
	lookupGroup func(name string) (*user.Group, error)
	lookupUser  func(name string) (*user.User, error)
	groupIDs    func(u *user.User) ([]string, error)
}

// New returns a Preparer for the given configuration.
func New(cfg *config.Config, run execx.Runner) *Preparer {
	return &Preparer{
		cfg:         cfg,
		run:         run,
		lookupGroup: user.LookupGroup,
		lookupUser:  user.Lookup,
		groupIDs:    (*user.User).GroupIds,
	}
}

// Inspect observes the current host state. Inspection failures degrade to
// "unknown" so the corresponding mutation is planned rather than skipped.
func (p *Preparer) Inspect() State {
	s := State{DirUID: -1, DirGID: -1, GroupGID: -1}

	if owner, err := p.lookupUser(config.DirOwner); err == nil {
		if uid, err := strconv.Atoi(owner.Uid); err == nil {
			s.OwnerUID = uid
		}
	}

	if info, err := os.Stat(p.cfg.BaseDir); err == nil {
		s.DirExists = true
		s.DirMode = info.Mode() & (fs.ModePerm | fs.ModeSetgid | fs.ModeSetuid | fs.ModeSticky)
		if stat, ok := info.Sys().(*syscall.Stat_t); ok {
			s.DirUID = int(stat.Uid)
			s.DirGID = int(stat.Gid)
		}
	}

	group, err := p.lookupGroup(p.cfg.Group)
	if err == nil {
		s.GroupExists = true
		if gid, err := strconv.Atoi(group.Gid); err == nil {
			s.GroupGID = gid
		}
	}

	if p.cfg.User != "" {
		u, err := p.lookupUser(p.cfg.User)
		if err == nil {
			s.UserExists = true
			if group != nil {
				ids, err := p.groupIDs(u)
				if err == nil {
					for _, gid := range ids {
						if gid == group.Gid {
							s.UserInGroup = true
							break
						}
					}
				}
			}
		}
	}

	return s
}

// Ensure makes the host compliant, applying only the planned actions.
func (p *Preparer) Ensure(ctx context.Context) error {
	state := p.Inspect()
	actions := Plan(state)

	if p.cfg.User != "" && !state.UserExists {
		log.Printf("Warning: user %q does not exist, skipping group membership", p.cfg.User)
	}
	if len(actions) == 0 {
		log.Printf("Base directory %s already compliant", p.cfg.BaseDir)
		return nil
	}

	for _, action := range actions {
		if err := p.apply(ctx, action); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
	}
	return nil
}

func (p *Preparer) apply(ctx context.Context, action Action) error {
	switch action {
	case ActionCreateGroup:
		return p.run.Run(ctx, "groupadd", p.cfg.Group)
	case ActionCreateDir:
		return os.MkdirAll(p.cfg.BaseDir, 0o775)
	case ActionAddUser:
		return p.run.Run(ctx, "usermod", "-aG", p.cfg.Group, p.cfg.User)
	case ActionChownTree, ActionChmodDir:
		owner, err := p.ownership()
		if err != nil {
			return err
		}
		return owner.Reconcile(p.cfg.BaseDir)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// Ownership resolves the target ownership for the base directory tree. The
// group must exist by the time this is called.
func (p *Preparer) ownership() (*Ownership, error) {
	owner, err := p.lookupUser(config.DirOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner %q: %w", config.DirOwner, err)
	}
	uid, err := strconv.Atoi(owner.Uid)
	if err != nil {
		return nil, fmt.Errorf("unexpected uid %q for %q: %w", owner.Uid, config.DirOwner, err)
	}

	group, err := p.lookupGroup(p.cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("failed to look up group %q: %w", p.cfg.Group, err)
	}
	gid, err := strconv.Atoi(group.Gid)
	if err != nil {
		return nil, fmt.Errorf("unexpected gid %q for group %q: %w", group.Gid, p.cfg.Group, err)
	}

	return &Ownership{UID: uid, GID: gid, DirMode: DirMode()}, nil
}

// Reconciler returns the ownership reconciler other stages apply to paths
// under the base directory (e.g. a fresh repository clone).
func (p *Preparer) Reconciler() (*Ownership, error) {
	return p.ownership()
}
