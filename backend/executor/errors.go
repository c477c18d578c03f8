package executor

import "strings"

// FailurePrefix starts the text recorded for a command that could not be run successfully.
const FailurePrefix = "Command failed after retries: "

// CommandExecutionFailure reports that the primary command and, when given, its
// alternate both failed. It is carried as data, never returned from Execute.
type CommandExecutionFailure struct {
	Primary   string
	Alternate string
	Attempts  int
	Output    string
	Err       error
}

func (e *CommandExecutionFailure) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return FailurePrefix + msg
}

func (e *CommandExecutionFailure) Unwrap() error {
	return e.Err
}

// Text renders the failure together with whatever the last attempt printed.
func (e *CommandExecutionFailure) Text() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return e.Error()
	}
	return e.Error() + "\n" + out
}
