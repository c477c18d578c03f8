package pipeline

import (
	"fmt"
)

type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusFailed    ResultStatus = "failed"
	StatusSkipped   ResultStatus = "skipped"
	StatusUnknown   ResultStatus = "unknown"
)

// Result is the outcome of one task list entry.
type Result struct {
	Task          string       `json:"task"`
	Tool          string       `json:"tool,omitempty"`
	Target        string       `json:"target,omitempty"`
	Command       string       `json:"command,omitempty"`
	Output        string       `json:"output"`
	Status        ResultStatus `json:"status"`
	Attempts      int          `json:"attempts,omitempty"`
	UsedAlternate bool         `json:"usedAlternate,omitempty"`
}

func (r Result) String() string {
	switch r.Status {
	case StatusSkipped, StatusUnknown:
		return r.Output
	default:
		return fmt.Sprintf("%s result for %s:\n%s", r.Tool, r.Target, r.Output)
	}
}

// State is the aggregate threaded through every stage of one run.
type State struct {
	Task         string   `json:"task"`
	TaskList     []string `json:"taskList"`
	Results      []Result `json:"results"`
	AllowedScope []string `json:"allowedScope"`
	Logs         []string `json:"logs"`
	FinalReport  string   `json:"finalReport"`
}

func NewState(task string, allowedScope []string) State {
	return State{
		Task:         task,
		TaskList:     []string{},
		Results:      []Result{},
		AllowedScope: append([]string(nil), allowedScope...),
		Logs:         []string{},
	}
}

// Clone copies the slices so a stage never writes into its predecessor's arrays.
func (s State) Clone() State {
	cp := s
	cp.TaskList = append([]string(nil), s.TaskList...)
	cp.Results = append([]Result(nil), s.Results...)
	cp.AllowedScope = append([]string(nil), s.AllowedScope...)
	cp.Logs = append([]string(nil), s.Logs...)
	return cp
}

func (s *State) logf(format string, args ...any) {
	s.Logs = append(s.Logs, fmt.Sprintf(format, args...))
}

// Output is the caller-facing view of a finished run.
type Output struct {
	FinalReport string   `json:"finalReport"`
	Logs        []string `json:"logs"`
	Results     []string `json:"results"`
	TaskList    []string `json:"taskList"`
}

func (s State) Output() Output {
	results := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, r.String())
	}
	return Output{
		FinalReport: s.FinalReport,
		Logs:        append([]string(nil), s.Logs...),
		Results:     results,
		TaskList:    append([]string(nil), s.TaskList...),
	}
}

func formatList(items []string) string {
	return fmt.Sprintf("%q", items)
}
