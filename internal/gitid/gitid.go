// Package gitid reconciles the global git identity of the automation
// account. The bootstrap itself never commits, but the private installer it
// delegates to expects the identity to be present.
package gitid

import (
	"context"
	"fmt"
	"log"

	"github.com/corelane/bootstrap/internal/execx"
)

// Identity is the target global git identity.
type Identity struct {
	Name  string
	Email string
}

// Configurator sets git config fields only when they differ.
type Configurator struct {
	run execx.Runner
}

// New returns a Configurator using the given runner.
func New(run execx.Runner) *Configurator {
	return &Configurator{run: run}
}

// Ensure sets user.name and user.email globally when their current values
// differ from the target. A failure to read the current value is treated as
// "unset" and the write is attempted anyway.
func (c *Configurator) Ensure(ctx context.Context, id Identity) error {
	for _, field := range []struct {
		key, want string
	}{
		{"user.name", id.Name},
		{"user.email", id.Email},
	} {
		current, err := c.run.Output(ctx, "git", "config", "--global", "--get", field.key)
		if err == nil && current == field.want {
			log.Printf("Git %s already set", field.key)
			continue
		}
		if err := c.run.Run(ctx, "git", "config", "--global", field.key, field.want); err != nil {
			return fmt.Errorf("failed to set git %s: %w", field.key, err)
		}
		log.Printf("Set git %s to %q", field.key, field.want)
	}
	return nil
}
