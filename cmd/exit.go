package cmd

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitRuntime         = 1
	ExitScenariosFailed = 2
)

// ErrScenariosFailed reports that every suite ran but at least one case failed.
var ErrScenariosFailed = errors.New("scenarios failed")

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code. Interrupted runs
// count as runtime failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitRuntime
}
