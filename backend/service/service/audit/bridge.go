package audit

import (
	"reconaudit/backend/application"
	"reconaudit/backend/config"
	"reconaudit/backend/database"
	"reconaudit/backend/database/repository"
	"reconaudit/backend/executor"
	"reconaudit/backend/pipeline"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Bridge builds the pipeline and manager from the application config.
type Bridge struct {
	app     *application.Application
	manager *Manager
	history repository.AuditRunRepository
	db      *gorm.DB
}

// NewBridge wires a manager for app. launcher may be nil to spawn real processes.
func NewBridge(app *application.Application, launcher executor.Launcher) (*Bridge, error) {
	opts, err := OptionsFromConfig(app.Config)
	if err != nil {
		return nil, err
	}
	opts.Launcher = launcher
	opts.Logger = app.Logger

	b := &Bridge{app: app}
	if app.Config.History {
		b.db, err = database.Open(app.Config.DatabaseFile)
		if err != nil {
			return nil, err
		}
		b.history = repository.NewAuditRunRepository(b.db)
	}
	b.manager, err = NewManager(pipeline.New(opts), b.history, app.Config.Concurrency, app.Logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bridge) Manager() *Manager {
	return b.manager
}

// History is nil when run history is disabled.
func (b *Bridge) History() repository.AuditRunRepository {
	return b.history
}

// Close stops outstanding runs and closes the history database.
func (b *Bridge) Close() {
	b.manager.Release()
	if b.db == nil {
		return
	}
	if err := database.Close(b.db); err != nil {
		b.app.Logger.WithError(err).Warn("close database failed")
	}
}

// OptionsFromConfig maps the persisted config onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (pipeline.Options, error) {
	rules, err := rulesFromConfig(cfg.ReplanRules)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Scope: cfg.Scope,
		Executor: executor.Options{
			Timeout:    cfg.Executor.Timeout,
			MaxRetries: cfg.Executor.MaxRetries,
			RetryDelay: cfg.Executor.RetryDelay,
		},
		Templates: pipeline.CommandTemplates{
			NmapPath:           cfg.Tools.Nmap.Path,
			NmapPrimaryFlags:   cfg.Tools.Nmap.PrimaryFlags,
			NmapAlternateFlags: cfg.Tools.Nmap.AlternateFlags,
			GobusterPath:       cfg.Tools.Gobuster.Path,
			Wordlist:           cfg.Tools.Gobuster.Wordlist,
			GobusterFlags:      cfg.Tools.Gobuster.Flags,
		},
		Rules: rules,
	}, nil
}

// rulesFromConfig returns nil for an empty list so the built-in HTTP rule applies.
func rulesFromConfig(items []config.ReplanRule) ([]pipeline.Rule, error) {
	if len(items) == 0 {
		return nil, nil
	}
	rules := make([]pipeline.Rule, 0, len(items))
	for _, item := range items {
		rule, err := pipeline.NewRule(item.Name, item.Contains, item.Pattern, item.IgnoreCase, item.Task, item.DedupKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config")
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
