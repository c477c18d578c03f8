package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// New 返回仅输出到标准错误的日志器。
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// NewWithLogDir 同时输出到标准错误和日志目录下按天切分的文件，目录不可用时退化为 New。
func NewWithLogDir(dir string) *logrus.Logger {
	l := New()
	if dir == "" {
		return l
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.WithError(err).WithField("dir", dir).Warn("create log dir failed")
		return l
	}
	name := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.WithError(err).WithField("file", name).Warn("open log file failed")
		return l
	}
	l.SetOutput(io.MultiWriter(os.Stderr, file))
	return l
}

// Discard 返回丢弃所有输出的日志器，供测试和静默模式使用。
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
