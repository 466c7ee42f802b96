package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelane/bootstrap/internal/config"
	"github.com/corelane/bootstrap/internal/delegate"
	"github.com/corelane/bootstrap/internal/execx"
	"github.com/corelane/bootstrap/internal/pipeline"
)

// saveAndRestoreFactories saves and restores the handler factory functions.
func saveAndRestoreFactories(t *testing.T) {
	origGeteuid := geteuid
	origLoadConfig := loadConfig
	origNewRunner := newRunner
	origBuildStages := buildStages

	t.Cleanup(func() {
		geteuid = origGeteuid
		loadConfig = origLoadConfig
		newRunner = origNewRunner
		buildStages = origBuildStages
	})
}

func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestRun_RequiresRoot(t *testing.T) {
	saveAndRestoreFactories(t)
	geteuid = func() int { return 1000 }

	err := Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root privileges")
}

func TestRun_ConfigErrorIsFatal(t *testing.T) {
	saveAndRestoreFactories(t)
	geteuid = func() int { return 0 }
	loadConfig = func() (*config.Config, error) {
		return nil, errors.New("configuration validation failed")
	}

	err := Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestRun_StageFailureAborts(t *testing.T) {
	saveAndRestoreFactories(t)
	geteuid = func() int { return 0 }
	loadConfig = func() (*config.Config, error) { return config.Defaults(), nil }

	var ran []string
	buildStages = func(*config.Config, execx.Runner) []pipeline.Stage {
		return []pipeline.Stage{
			{Name: "first", Run: func(context.Context) error { ran = append(ran, "first"); return nil }},
			{Name: "second", Run: func(context.Context) error { ran = append(ran, "second"); return errors.New("boom") }},
			{Name: "third", Run: func(context.Context) error { ran = append(ran, "third"); return nil }},
		}
	}

	err := Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestRun_DelegateExitCodeSurfaces(t *testing.T) {
	saveAndRestoreFactories(t)
	geteuid = func() int { return 0 }
	loadConfig = func() (*config.Config, error) { return config.Defaults(), nil }
	buildStages = func(*config.Config, execx.Runner) []pipeline.Stage {
		return []pipeline.Stage{
			{Name: "run private bootstrap", Run: func(context.Context) error {
				return &delegate.ExitError{Path: "/opt/corelane/platform/scripts/bootstrap.sh", Code: 7}
			}},
		}
	}

	var err error
	output := captureOutput(func() {
		err = Run(context.Background())
	})
	require.Error(t, err)

	var exitErr *delegate.ExitError
	require.ErrorAs(t, err, &exitErr, "exit code must survive pipeline wrapping")
	assert.Equal(t, 7, exitErr.Code)
	assert.Contains(t, output, "private bootstrap script failed")
}

func TestRun_Success(t *testing.T) {
	saveAndRestoreFactories(t)
	geteuid = func() int { return 0 }
	loadConfig = func() (*config.Config, error) { return config.Defaults(), nil }
	buildStages = func(*config.Config, execx.Runner) []pipeline.Stage {
		return []pipeline.Stage{
			{Name: "noop", Run: func(context.Context) error { return nil }},
		}
	}

	assert.NoError(t, Run(context.Background()))
}

func TestDefaultStages_Wiring(t *testing.T) {
	stages := defaultStages(config.Defaults(), &execx.Fake{})

	var names []string
	for _, s := range stages {
		names = append(names, s.Name)
		require.NotNil(t, s.Run, "stage %q has no run function", s.Name)
	}
	assert.Equal(t, []string{
		"prepare environment",
		"install packages",
		"configure git identity",
		"provision deploy key",
		"fetch platform repository",
		"run private bootstrap",
	}, names)
}
