package envprep

import (
	"context"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/execx"
)

func compliantState() State {
	return State{
		DirExists:   true,
		DirUID:      0,
		DirGID:      2000,
		DirMode:     DirMode(),
		GroupExists: true,
		GroupGID:    2000,
		UserExists:  true,
		UserInGroup: true,
		OwnerUID:    0,
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		want   []Action
	}{
		{
			name:   "compliant host yields empty plan",
			mutate: func(*State) {},
			want:   nil,
		},
		{
			name: "fresh host plans everything",
			mutate: func(s *State) {
				*s = State{OwnerUID: 0, DirUID: -1, DirGID: -1, GroupGID: -1}
			},
			want: []Action{ActionCreateGroup, ActionCreateDir, ActionChownTree, ActionChmodDir},
		},
		{
			name:   "wrong owner plans chown only",
			mutate: func(s *State) { s.DirUID = 1000 },
			want:   []Action{ActionChownTree},
		},
		{
			name:   "wrong group plans chown only",
			mutate: func(s *State) { s.DirGID = 999 },
			want:   []Action{ActionChownTree},
		},
		{
			name:   "missing setgid plans chmod only",
			mutate: func(s *State) { s.DirMode = 0o775 },
			want:   []Action{ActionChmodDir},
		},
		{
			name:   "user not in group plans membership",
			mutate: func(s *State) { s.UserInGroup = false },
			want:   []Action{ActionAddUser},
		},
		{
			name: "missing user skips membership",
			mutate: func(s *State) {
				s.UserExists = false
				s.UserInGroup = false
			},
			want: nil,
		},
		{
			name: "unknown ownership degrades to chown",
			mutate: func(s *State) {
				s.DirUID = -1
				s.DirGID = -1
			},
			want: []Action{ActionChownTree},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := compliantState()
			tt.mutate(&state)
			assert.Equal(t, tt.want, Plan(state))
		})
	}
}

func TestDirMode(t *testing.T) {
	mode := DirMode()
	assert.Equal(t, fs.FileMode(0o775), mode.Perm())
	assert.NotZero(t, mode&fs.ModeSetgid)
}

// currentIdentity returns uid/gid of the test process so ownership
// reconciliation can run without privileges.
func currentIdentity(t *testing.T) (int, int) {
	t.Helper()
	u, err := user.Current()
	require.NoError(t, err)
	uid, err := strconv.Atoi(u.Uid)
	require.NoError(t, err)
	gid, err := strconv.Atoi(u.Gid)
	require.NoError(t, err)
	return uid, gid
}

func TestOwnership_Reconcile(t *testing.T) {
	uid, gid := currentIdentity(t)
	root := t.TempDir()
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "data.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o640))

	owner := &Ownership{UID: uid, GID: gid, DirMode: DirMode()}
	require.NoError(t, owner.Reconcile(root))

	for _, dir := range []string{root, sub} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, fs.FileMode(0o775), info.Mode().Perm(), dir)
		assert.NotZero(t, info.Mode()&fs.ModeSetgid, dir)
	}

	// File modes are left alone.
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm())
}

func TestOwnership_ReconcileIdempotent(t *testing.T) {
	uid, gid := currentIdentity(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0o644))

	owner := &Ownership{UID: uid, GID: gid, DirMode: DirMode()}
	require.NoError(t, owner.Reconcile(root))
	first, err := os.Stat(root)
	require.NoError(t, err)

	require.NoError(t, owner.Reconcile(root))
	second, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, first.Mode(), second.Mode())
}

func testPreparer(cfg *config.Config, fake *execx.Fake) *Preparer {
	p := New(cfg, fake)
	p.lookupUser = func(name string) (*user.User, error) {
		u, err := user.Current()
		if err != nil {
			return nil, err
		}
		u.Username = name
		return u, nil
	}
	p.lookupGroup = func(string) (*user.Group, error) {
		u, _ := user.Current()
		return &user.Group{Gid: u.Gid, Name: cfg.Group}, nil
	}
	p.groupIDs = func(u *user.User) ([]string, error) {
		return []string{u.Gid}, nil
	}
	return p
}

func TestPreparer_EnsureCreatesDirectory(t *testing.T) {
	cfg := config.Defaults()
	cfg.BaseDir = filepath.Join(t.TempDir(), "corelane")
	fake := &execx.Fake{}

	p := testPreparer(cfg, fake)
	require.NoError(t, p.Ensure(context.Background()))

	info, err := os.Stat(cfg.BaseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, fs.FileMode(0o775), info.Mode().Perm())
	assert.NotZero(t, info.Mode()&fs.ModeSetgid)
}

func TestPreparer_EnsureSecondRunIsNoop(t *testing.T) {
	cfg := config.Defaults()
	cfg.BaseDir = filepath.Join(t.TempDir(), "corelane")
	fake := &execx.Fake{}

	p := testPreparer(cfg, fake)
	require.NoError(t, p.Ensure(context.Background()))

	// The Preparer runs as a non-root test user, so the observed owner
	// matches and the second run must plan nothing.
	uid, _ := currentIdentity(t)
	state := p.Inspect()
	state.OwnerUID = uid
	assert.Empty(t, Plan(state))
}

func TestPreparer_EnsureCreatesGroupViaRunner(t *testing.T) {
	cfg := config.Defaults()
	cfg.BaseDir = filepath.Join(t.TempDir(), "corelane")
	fake := &execx.Fake{}

	p := testPreparer(cfg, fake)
	p.lookupGroup = func(string) (*user.Group, error) {
		return nil, user.UnknownGroupError(cfg.Group)
	}

	// Group resolution fails for the chown step too, so Ensure reports it;
	// the groupadd must still have been attempted first.
	err := p.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, fake.Ran("groupadd "+cfg.Group), "expected groupadd to run, got %v", fake.Calls)
}
