package pipeline

import (
	"context"
	"fmt"
	"strings"
)

const (
	ToolNmap     = "nmap"
	ToolGobuster = "gobuster"
)

// Decomposer expands a target into concrete task descriptors.
type Decomposer func(target string) []string

// TemplateTasks is the fixed two-task plan: a port scan and a directory scan.
func TemplateTasks(target string) []string {
	return []string{
		fmt.Sprintf("%s scan on %s", ToolNmap, target),
		fmt.Sprintf("%s scan on %s directories", ToolGobuster, target),
	}
}

// ExtractTarget returns the second whitespace-separated word of description.
func ExtractTarget(description string) (string, error) {
	fields := strings.Fields(description)
	if len(fields) < 2 {
		return "", &MalformedTaskError{Description: description}
	}
	return fields[1], nil
}

type Planner struct {
	decompose Decomposer
}

func NewPlanner(decompose Decomposer) *Planner {
	if decompose == nil {
		decompose = TemplateTasks
	}
	return &Planner{decompose: decompose}
}

func (p *Planner) Plan(_ context.Context, st State) (State, error) {
	target, err := ExtractTarget(st.Task)
	if err != nil {
		return st, err
	}
	st.TaskList = append(st.TaskList, p.decompose(target)...)
	st.logf("[Task Decomposition] Decomposed task into: %s", formatList(st.TaskList))
	return st, nil
}
