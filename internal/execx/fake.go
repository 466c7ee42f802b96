package execx

import (
	"context"
	"fmt"
	"strings"
)

// Fake is a scripted Runner for tests. Commands are matched by prefix against
// the space-joined command line; unmatched commands succeed with empty output.
type Fake struct {
	// Calls records every command line passed to Run or Output, in order.
	Calls []string

	// Errors maps a command-line prefix to the error Run/Output returns.
	Errors map[string]error

	// Outputs maps a command-line prefix to the stdout Output returns.
	Outputs map[string]string

	// Missing lists binaries LookPath reports as absent.
	Missing []string
}

func (f *Fake) record(name string, args ...string) string {
	line := strings.Join(append([]string{name}, args...), " ")
	f.Calls = append(f.Calls, line)
	return line
}

func (f *Fake) match(line string) (string, bool) {
	for prefix := range f.Errors {
		if strings.HasPrefix(line, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// Run records the command and returns any scripted error.
func (f *Fake) Run(_ context.Context, name string, args ...string) error {
	line := f.record(name, args...)
	if prefix, ok := f.match(line); ok {
		return f.Errors[prefix]
	}
	return nil
}

// Output records the command and returns scripted output or error.
func (f *Fake) Output(_ context.Context, name string, args ...string) (string, error) {
	line := f.record(name, args...)
	if prefix, ok := f.match(line); ok {
		return "", f.Errors[prefix]
	}
	for prefix, out := range f.Outputs {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", nil
}

// LookPath reports binaries in Missing as absent and resolves the rest.
func (f *Fake) LookPath(name string) (string, error) {
	for _, m := range f.Missing {
		if m == name {
			return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
		}
	}
	return "/usr/bin/" + name, nil
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	for _, call := range f.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}
