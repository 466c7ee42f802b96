package pipeline

import "fmt"

// FatalError is a stage failure that carries remediation instructions for
// the operator. The pipeline never retries: the message tells the operator
// what to fix before re-running.
type FatalError struct {
	// Op names the operation that failed.
	Op string

	// Remediation is an optional instruction, e.g. "remove the directory
	// manually and re-run".
	Remediation string

	// Err is the underlying cause, if any.
	Err error
}

func (e *FatalError) Error() string {
	msg := e.Op
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Remediation != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Remediation)
	}
	return msg
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatalf builds a FatalError without remediation text.
func Fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{Op: fmt.Sprintf(format, args...)}
}
