package application

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yitter/idgenerator-go/idgen"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"reconaudit/backend/config"
	"reconaudit/backend/logger"
)

const Version = "1.2.0"

const (
	configFileName       = "config.yaml"
	legacyConfigFileName = "config.ini"
)

func init() {
	ini.PrettyFormat = false
	// WorkerId 固定为 1，单进程内生成运行 ID 足够
	idgen.SetIdGenerator(idgen.NewIdGeneratorOptions(1))
}

var iniOptions = ini.LoadOptions{
	SkipUnrecognizableLines:  true, //跳过无法识别的行
	SpaceBeforeInlineComment: true,
	AllowShadows:             true,
}

func DefaultConfig() *config.Config {
	return &config.Config{
		Version:     Version,
		Scope:       []string{"*"},
		Concurrency: runtime.NumCPU(),
		History:     true,
		Executor: config.Executor{
			Timeout:    60 * time.Second,
			MaxRetries: 2,
			RetryDelay: 0,
		},
		Tools: config.Tools{
			Nmap: config.Nmap{
				Path:           "nmap",
				PrimaryFlags:   "-p-",
				AlternateFlags: "-sV",
			},
			Gobuster: config.Gobuster{
				Path:     "gobuster",
				Wordlist: "wordlist.txt",
			},
		},
	}
}

type Application struct {
	Config     *config.Config
	ConfigFile string
	AppDir     string
	Logger     *logrus.Logger
}

// NewApp loads configFile, or <home>/.reconaudit/config.yaml when it is empty.
// A missing file is generated from defaults; a legacy config.ini next to it is
// converted to YAML first.
func NewApp(configFile string) (*Application, error) {
	app := &Application{
		Config: &config.Config{},
		Logger: logger.New(),
	}
	if err := app.init(configFile); err != nil {
		return nil, err
	}
	return app, nil
}

func (r *Application) init(configFile string) error {
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return errors.Wrap(err, "resolve config path")
		}
		r.ConfigFile = abs
		r.AppDir = filepath.Dir(abs)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "locate home directory")
		}
		r.AppDir = filepath.Join(home, ".reconaudit")
		r.ConfigFile = filepath.Join(r.AppDir, configFileName)
	}

	if fileExist(r.ConfigFile) {
		return r.loadConfigFile()
	}
	legacy := filepath.Join(r.AppDir, legacyConfigFileName)
	if fileExist(legacy) {
		return r.transformConfigFile(legacy)
	}
	return r.generateConfigFile()
}

func (r *Application) generateConfigFile() error {
	r.Config = DefaultConfig()
	r.fillDefaults()
	if err := r.WriteConfig(r.Config); err != nil {
		return err
	}
	r.Logger = logger.NewWithLogDir(r.Config.LogDataDir)
	r.Logger.WithField("file", r.ConfigFile).Info("default config generated")
	return nil
}

// transformConfigFile 将旧版 ini 配置迁移为 yaml，迁移后删除 ini 文件。
func (r *Application) transformConfigFile(legacy string) error {
	cfg, err := ini.LoadSources(iniOptions, legacy)
	if err != nil {
		return errors.Wrap(err, "can't open config file")
	}
	r.Config = DefaultConfig()
	if err = cfg.MapTo(r.Config); err != nil {
		return errors.Wrap(err, "can't map to config file")
	}
	if err := r.WriteConfig(r.Config); err != nil {
		return err
	}
	if err := os.Remove(legacy); err != nil {
		r.Logger.WithError(err).Warn("remove legacy config failed")
	}
	return r.loadConfigFile()
}

func (r *Application) loadConfigFile() error {
	readData, err := os.ReadFile(r.ConfigFile)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	r.Config = &config.Config{}
	if err := yaml.Unmarshal(readData, r.Config); err != nil {
		return errors.Wrap(err, "parse config file")
	}
	needUpdate := r.fillDefaults()

	currentVersion, _ := version.NewVersion(Version)
	configFileVersion, err := version.NewVersion(r.Config.Version)
	if err != nil || currentVersion.GreaterThan(configFileVersion) {
		r.Config.Version = Version
		needUpdate = true
	}

	r.Logger = logger.NewWithLogDir(r.Config.LogDataDir)
	if needUpdate {
		if err := r.WriteConfig(r.Config); err != nil {
			r.Logger.WithError(err).Warn("rewrite config failed")
		}
	}
	r.Logger.WithField("file", r.ConfigFile).Debug("config loaded")
	return nil
}

// fillDefaults 补全缺失的配置项，返回是否有改动。
func (r *Application) fillDefaults() bool {
	defaults := DefaultConfig()
	cfg := r.Config
	needUpdate := false
	if cfg.LogDataDir == "" {
		cfg.LogDataDir = filepath.Join(r.AppDir, "data", "log")
		needUpdate = true
	}
	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = filepath.Join(r.AppDir, "data", "data.db")
		needUpdate = true
	}
	if cfg.ExportDataDir == "" {
		cfg.ExportDataDir = filepath.Join(r.AppDir, "data", "export")
		needUpdate = true
	}
	if len(cfg.Scope) == 0 {
		cfg.Scope = defaults.Scope
		needUpdate = true
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
		needUpdate = true
	}
	if cfg.Executor.Timeout <= 0 {
		cfg.Executor.Timeout = defaults.Executor.Timeout
		needUpdate = true
	}
	if cfg.Executor.MaxRetries <= 0 {
		cfg.Executor.MaxRetries = defaults.Executor.MaxRetries
		needUpdate = true
	}
	if strings.TrimSpace(cfg.Tools.Nmap.Path) == "" {
		cfg.Tools.Nmap = defaults.Tools.Nmap
		needUpdate = true
	}
	if strings.TrimSpace(cfg.Tools.Gobuster.Path) == "" {
		cfg.Tools.Gobuster.Path = defaults.Tools.Gobuster.Path
		needUpdate = true
	}
	if strings.TrimSpace(cfg.Tools.Gobuster.Wordlist) == "" {
		cfg.Tools.Gobuster.Wordlist = defaults.Tools.Gobuster.Wordlist
		needUpdate = true
	}
	return needUpdate
}

func (r *Application) WriteConfig(cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(r.ConfigFile), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(r.ConfigFile, data, 0o644); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

func fileExist(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
