package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"reconaudit/backend/executor"
)

const (
	defaultNmapPath      = "nmap"
	defaultNmapPrimary   = "-p-"
	defaultNmapAlternate = "-sV"
	defaultGobusterPath  = "gobuster"
	defaultGobusterWords = "wordlist.txt"
)

// Commander runs a primary command with an optional alternate. *executor.Executor satisfies it.
type Commander interface {
	Execute(ctx context.Context, primary, alternate string) executor.Outcome
}

// CommandTemplates holds the per-tool command lines the runner fills with a target.
type CommandTemplates struct {
	NmapPath           string `json:"nmapPath"`
	NmapPrimaryFlags   string `json:"nmapPrimaryFlags"`
	NmapAlternateFlags string `json:"nmapAlternateFlags"`
	GobusterPath       string `json:"gobusterPath"`
	Wordlist           string `json:"wordlist"`
	GobusterFlags      string `json:"gobusterFlags"`
}

func (t CommandTemplates) WithDefaults() CommandTemplates {
	cp := t
	if strings.TrimSpace(cp.NmapPath) == "" {
		cp.NmapPath = defaultNmapPath
	}
	if strings.TrimSpace(cp.NmapPrimaryFlags) == "" {
		cp.NmapPrimaryFlags = defaultNmapPrimary
	}
	if strings.TrimSpace(cp.NmapAlternateFlags) == "" {
		cp.NmapAlternateFlags = defaultNmapAlternate
	}
	if strings.TrimSpace(cp.GobusterPath) == "" {
		cp.GobusterPath = defaultGobusterPath
	}
	if strings.TrimSpace(cp.Wordlist) == "" {
		cp.Wordlist = defaultGobusterWords
	}
	return cp
}

// Nmap returns the full TCP sweep and the service/version detection fallback.
func (t CommandTemplates) Nmap(target string) (primary, alternate string) {
	bin := quoteArg(t.NmapPath)
	primary = joinCommand(bin, t.NmapPrimaryFlags, quoteArg(target))
	alternate = joinCommand(bin, t.NmapAlternateFlags, quoteArg(target))
	return primary, alternate
}

// Gobuster returns the HTTPS directory brute force and its HTTP variant.
func (t CommandTemplates) Gobuster(target string) (primary, alternate string) {
	bin := quoteArg(t.GobusterPath)
	words := quoteArg(t.Wordlist)
	primary = joinCommand(bin, "dir -u", quoteArg("https://"+target), "-w", words, t.GobusterFlags)
	alternate = joinCommand(bin, "dir -u", quoteArg("http://"+target), "-w", words, t.GobusterFlags)
	return primary, alternate
}

// Runner dispatches every approved task through the Commander.
type Runner struct {
	commander Commander
	templates CommandTemplates
	logger    logrus.FieldLogger
}

func NewRunner(commander Commander, templates CommandTemplates, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{commander: commander, templates: templates.WithDefaults(), logger: logger}
}

func (r *Runner) Run(ctx context.Context, st State) (State, error) {
	target, err := ExtractTarget(st.Task)
	if err != nil {
		return st, err
	}
	for _, task := range st.TaskList {
		switch {
		case IsSkipped(task):
			st.Results = append(st.Results, Result{
				Task:   task,
				Target: target,
				Output: "Skipped: " + task,
				Status: StatusSkipped,
			})
			st.logf("[Execute Tasks] Skipped out-of-scope task: %s", task)
		case strings.Contains(task, ToolNmap):
			primary, alternate := r.templates.Nmap(target)
			st.Results = append(st.Results, r.dispatch(ctx, task, ToolNmap, target, primary, alternate))
			st.logf("[Execute Tasks] nmap scan executed for %s", target)
		case strings.Contains(task, ToolGobuster):
			primary, alternate := r.templates.Gobuster(target)
			st.Results = append(st.Results, r.dispatch(ctx, task, ToolGobuster, target, primary, alternate))
			st.logf("[Execute Tasks] gobuster scan executed for %s", target)
		default:
			unknown := &UnrecognizedTaskError{Task: task}
			st.Results = append(st.Results, Result{
				Task:   task,
				Target: target,
				Output: unknown.Error(),
				Status: StatusUnknown,
			})
			st.logf("[Execute Tasks] Unknown task encountered: %s", task)
			r.logger.WithField("task", task).Warn(unknown.Error())
		}
	}
	return st, nil
}

func (r *Runner) dispatch(ctx context.Context, task, tool, target, primary, alternate string) Result {
	r.logger.WithField("tool", tool).WithField("target", target).Info("dispatching task")
	outcome := r.commander.Execute(ctx, primary, alternate)
	res := Result{
		Task:          task,
		Tool:          tool,
		Target:        target,
		Command:       outcome.Command,
		Output:        outcome.Text(),
		Status:        StatusCompleted,
		Attempts:      outcome.Attempts,
		UsedAlternate: outcome.UsedAlternate,
	}
	if outcome.Failed() {
		res.Status = StatusFailed
	}
	return res
}

func joinCommand(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// quoteArg wraps values containing whitespace or quotes so shlex keeps them as one argument.
func quoteArg(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || !strings.ContainsAny(v, " \t\"'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return fmt.Sprintf(`"%s"`, r.Replace(v))
}
