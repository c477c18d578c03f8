package pipeline

import (
	"context"
	"strings"
)

const (
	ReportHeader = "=== Security Audit Report ==="
	LogsHeader   = "\n=== Execution Logs ==="
)

// GenerateReport renders results and logs into FinalReport. The closing log
// entry is appended after rendering and is not part of the report body.
func GenerateReport(_ context.Context, st State) (State, error) {
	lines := make([]string, 0, len(st.Results)+len(st.Logs)+2)
	lines = append(lines, ReportHeader)
	for _, r := range st.Results {
		lines = append(lines, r.String())
	}
	lines = append(lines, LogsHeader)
	lines = append(lines, st.Logs...)
	st.FinalReport = strings.Join(lines, "\n")
	st.logf("[Generate Report] Final report generated.")
	return st, nil
}
