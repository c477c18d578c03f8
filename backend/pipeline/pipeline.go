package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"reconaudit/backend/executor"
)

// StageFunc takes the full state and returns the next one.
type StageFunc func(ctx context.Context, st State) (State, error)

type Stage struct {
	Name string
	Run  StageFunc
}

// Options is the explicit configuration of a Pipeline; nothing is read from the environment.
type Options struct {
	Scope     []string
	Executor  executor.Options
	Templates CommandTemplates
	Rules     []Rule
	Decompose Decomposer
	// Launcher spawns processes; nil uses the host.
	Launcher executor.Launcher
	Logger   logrus.FieldLogger
}

// Pipeline wires planner, scope filter, runner, re-planner and report generator.
// It holds no per-run data and may be shared by concurrent runs.
type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	opts.Scope = append([]string(nil), opts.Scope...)
	opts.Templates = opts.Templates.WithDefaults()
	opts.Executor = opts.Executor.WithDefaults()
	return &Pipeline{opts: opts}
}

func (p *Pipeline) Options() Options {
	return p.opts
}

// stages builds the stage graph for one run. Every run gets its own executor.
func (p *Pipeline) stages(logger logrus.FieldLogger) []Stage {
	exec := executor.New(p.opts.Executor, p.opts.Launcher, logger)
	runner := NewRunner(exec, p.opts.Templates, logger)
	return []Stage{
		{Name: "Task Decomposition", Run: NewPlanner(p.opts.Decompose).Plan},
		{Name: "Apply Scope Constraints", Run: FilterScope},
		{Name: "Execute Tasks with Retry", Run: runner.Run},
		{Name: "Dynamic Task Update", Run: NewReplanner(p.opts.Rules).Replan},
		{Name: "Generate Report", Run: GenerateReport},
	}
}

// Run executes every stage in order against a fresh state. A malformed
// description is rejected before any stage runs.
func (p *Pipeline) Run(ctx context.Context, description string) (*State, error) {
	return p.RunWithLogger(ctx, description, p.opts.Logger)
}

// RunWithLogger is Run with a caller supplied logger, typically carrying a run id.
func (p *Pipeline) RunWithLogger(ctx context.Context, description string, logger logrus.FieldLogger) (*State, error) {
	if logger == nil {
		logger = p.opts.Logger
	}
	target, err := ExtractTarget(description)
	if err != nil {
		logger.WithError(err).Error("pipeline rejected task")
		return nil, err
	}
	logger = logger.WithField("target", target)

	st := NewState(description, p.opts.Scope)
	for _, stage := range p.stages(logger) {
		begin := time.Now()
		next, err := stage.Run(ctx, st.Clone())
		if err != nil {
			logger.WithField("stage", stage.Name).WithError(err).Error("stage failed")
			return nil, err
		}
		st = next
		logger.WithField("stage", stage.Name).
			WithField("tasks", len(st.TaskList)).
			WithField("results", len(st.Results)).
			WithField("duration", time.Since(begin).String()).
			Debug("stage completed")
	}
	logger.WithField("results", len(st.Results)).Info("pipeline completed")
	return &st, nil
}

// RunPipeline is the invocation entrypoint returning the caller-facing view.
func (p *Pipeline) RunPipeline(ctx context.Context, description string) (Output, error) {
	st, err := p.Run(ctx, description)
	if err != nil {
		return Output{}, err
	}
	return st.Output(), nil
}
