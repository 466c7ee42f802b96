package sshkey

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ConfirmFunc blocks until the operator confirms the public key has been
// registered with the forge. Production uses InteractiveConfirm; tests
// supply a canned function.
type ConfirmFunc func(ctx context.Context) error

// InteractiveConfirm prompts the operator on a terminal, or falls back to a
// plain line read when stdin is not a TTY (e.g. piped input). It re-prompts
// until the operator answers affirmatively; there is no timeout.
func InteractiveConfirm(ctx context.Context) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Println("Press Enter once the deploy key is registered...")
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		return nil
	}

	for {
		var registered bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Deploy key registered?").
				Description("Add the public key shown above to the repository's deploy keys before continuing.").
				Affirmative("Yes, continue").
				Negative("Not yet").
				Value(&registered),
		))
		if err := form.RunWithContext(ctx); err != nil {
			return fmt.Errorf("confirmation aborted: %w", err)
		}
		if registered {
			return nil
		}
	}
}
