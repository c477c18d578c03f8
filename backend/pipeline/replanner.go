package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Rule appends a follow-up task when a result shows a finding.
type Rule struct {
	Name       string
	Contains   string
	IgnoreCase bool
	Task       string
	DedupKey   string

	pattern *regexp.Regexp
}

// HTTPRule adds an HTTP scan once port 80 is reported open.
var HTTPRule = Rule{
	Name:     "http-open-80",
	Contains: "80/tcp open",
	Task:     "HTTP scan on %s",
	DedupKey: "HTTP scan on",
}

func DefaultRules() []Rule {
	return []Rule{HTTPRule}
}

// NewRule validates a rule; pattern, when set, is a regular expression tried in
// addition to contains.
func NewRule(name, contains, pattern string, ignoreCase bool, task, dedupKey string) (Rule, error) {
	r := Rule{Name: name, Contains: contains, IgnoreCase: ignoreCase, Task: task, DedupKey: dedupKey}
	if strings.TrimSpace(task) == "" {
		return r, pkgerrors.Errorf("replan rule %q: task template is empty", name)
	}
	if contains == "" && pattern == "" {
		return r, pkgerrors.Errorf("replan rule %q: contains or pattern required", name)
	}
	if pattern != "" {
		expr := pattern
		if ignoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return r, pkgerrors.Wrapf(err, "replan rule %q", name)
		}
		r.pattern = re
	}
	return r, nil
}

func (r Rule) matches(text string) bool {
	if r.Contains != "" {
		if r.IgnoreCase {
			if strings.Contains(strings.ToLower(text), strings.ToLower(r.Contains)) {
				return true
			}
		} else if strings.Contains(text, r.Contains) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(text)
}

func (r Rule) render(target string) string {
	if strings.Contains(r.Task, "%s") {
		return fmt.Sprintf(r.Task, target)
	}
	return r.Task
}

func (r Rule) present(taskList []string, task string) bool {
	for _, t := range taskList {
		if t == task {
			return true
		}
		if r.DedupKey != "" && strings.Contains(t, r.DedupKey) {
			return true
		}
	}
	return false
}

// Replanner inspects completed results and appends follow-up tasks. The
// appended tasks are recorded but not dispatched within the same run.
type Replanner struct {
	rules []Rule
}

func NewReplanner(rules []Rule) *Replanner {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Replanner{rules: rules}
}

func (p *Replanner) Replan(_ context.Context, st State) (State, error) {
	target, err := ExtractTarget(st.Task)
	if err != nil {
		return st, err
	}
	for _, res := range st.Results {
		if res.Status == StatusSkipped || res.Status == StatusUnknown {
			continue
		}
		for _, rule := range p.rules {
			if !rule.matches(res.Output) {
				continue
			}
			task := rule.render(target)
			if rule.present(st.TaskList, task) {
				continue
			}
			st.TaskList = append(st.TaskList, task)
			st.logf("[Dynamic Update] Added new task: %s", task)
		}
	}
	return st, nil
}
