package pipeline

import "fmt"

// MalformedTaskError means no target could be read from the task description.
// It aborts the run before any stage executes.
type MalformedTaskError struct {
	Description string
}

func (e *MalformedTaskError) Error() string {
	return fmt.Sprintf("malformed task %q: expected at least two whitespace-separated words, the second being the target", e.Description)
}

// UnrecognizedTaskError marks a task list entry no tool template matches.
// It is recorded as a result, never returned.
type UnrecognizedTaskError struct {
	Task string
}

func (e *UnrecognizedTaskError) Error() string {
	return "Unknown task: " + e.Task
}
