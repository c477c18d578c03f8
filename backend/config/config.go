package config

import (
	"time"
)

type Executor struct {
	Timeout    time.Duration `ini:"timeout" yaml:"timeout" comment:"单条外部命令的超时时间，默认:60s"`
	MaxRetries int           `ini:"maxRetries" yaml:"maxRetries" comment:"主命令最大尝试次数，默认:2"`
	RetryDelay time.Duration `ini:"retryDelay" yaml:"retryDelay" comment:"主命令两次尝试之间的等待时间"`
}

type Nmap struct {
	Path           string `ini:"path" yaml:"path" comment:"nmap 程序路径，默认从 PATH 查找"`
	PrimaryFlags   string `ini:"primaryFlags" yaml:"primaryFlags" comment:"主命令参数，默认: -p-"`
	AlternateFlags string `ini:"alternateFlags" yaml:"alternateFlags" comment:"备用命令参数，默认: -sV"`
}

type Gobuster struct {
	Path     string `ini:"path" yaml:"path" comment:"gobuster 程序路径，默认从 PATH 查找"`
	Wordlist string `ini:"wordlist" yaml:"wordlist" comment:"目录爆破字典路径"`
	Flags    string `ini:"flags" yaml:"flags" comment:"额外的自定义参数（不包括 -u/-w）"`
}

type Tools struct {
	Nmap     Nmap     `ini:"Nmap" yaml:"nmap"`
	Gobuster Gobuster `ini:"Gobuster" yaml:"gobuster"`
}

// ReplanRule 描述一条动态追加任务的规则。
type ReplanRule struct {
	Name       string `yaml:"name"`
	Contains   string `yaml:"contains"`
	Pattern    string `yaml:"pattern"`
	IgnoreCase bool   `yaml:"ignoreCase"`
	Task       string `yaml:"task" comment:"追加任务模板，%s 替换为目标"`
	DedupKey   string `yaml:"dedupKey" comment:"任务列表中已包含该关键字时不再追加"`
}

type Config struct {
	Version       string       `ini:"version" yaml:"version"`
	DatabaseFile  string       `ini:"databaseFile" yaml:"databaseFile"`
	ExportDataDir string       `ini:"exportDataDir" yaml:"exportDataDir"`
	LogDataDir    string       `ini:"logDataDir" yaml:"logDataDir"`
	Scope         []string     `ini:"scope" yaml:"scope" comment:"允许扫描的目标，* 表示不限制"`
	Concurrency   int          `ini:"concurrency" yaml:"concurrency" comment:"批量扫描时同时运行的流水线数量"`
	History       bool         `ini:"history" yaml:"history" comment:"是否记录运行历史"`
	Executor      Executor     `ini:"Executor" yaml:"executor"`
	Tools         Tools        `ini:"Tools" yaml:"tools"`
	ReplanRules   []ReplanRule `ini:"-" yaml:"replanRules"`
}
