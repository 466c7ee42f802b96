package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ExecutesStagesInOrder(t *testing.T) {
	var order []string
	stages := []Stage{
		{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return nil }},
		{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
		{Name: "third", Run: func(context.Context) error { order = append(order, "third"); return nil }},
	}

	require.NoError(t, Run(context.Background(), stages))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	stages := []Stage{
		{Name: "ok", Run: func(context.Context) error { ran = append(ran, "ok"); return nil }},
		{Name: "broken", Run: func(context.Context) error { ran = append(ran, "broken"); return boom }},
		{Name: "never", Run: func(context.Context) error { ran = append(ran, "never"); return nil }},
	}

	err := Run(context.Background(), stages)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `stage "broken" failed`)
	assert.Equal(t, []string{"ok", "broken"}, ran)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := Run(ctx, []Stage{{Name: "unreached", Run: func(context.Context) error { ran = true; return nil }}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestFatalError_Message(t *testing.T) {
	err := &FatalError{
		Op:          "clone repository",
		Remediation: "remove /opt/corelane/platform manually and re-run",
		Err:         errors.New("exit status 128"),
	}

	assert.Contains(t, err.Error(), "clone repository")
	assert.Contains(t, err.Error(), "exit status 128")
	assert.Contains(t, err.Error(), "remove /opt/corelane/platform manually")
	assert.ErrorIs(t, err, err.Err)
}

func TestFatalf(t *testing.T) {
	err := Fatalf("missing entry point %s", "/x/y")
	assert.Equal(t, "missing entry point /x/y", err.Error())
	assert.Nil(t, err.Unwrap())
}
