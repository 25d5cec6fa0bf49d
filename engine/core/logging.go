package core

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the logging surface components receive at construction.
// *log.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
	// Caller reporting is useful while developing but noisy in release builds.
	ReportCaller bool `toml:"report_caller"`
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Prefix:       "Reactor ⚛️ ",
		ReportCaller: true,
	}
}

func NewLogger(cfg LogConfig) (*log.Logger, error) {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg LogConfig) (*log.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, err
		}
		level = l
	}
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          cfg.Prefix,
		Level:           level,
	})
	return l, nil
}

// ComponentLogger tags every line written through the returned logger with
// the component name. Loggers that are not *log.Logger are returned as is.
func ComponentLogger(l Logger, component string) Logger {
	if cl, ok := l.(*log.Logger); ok {
		return cl.With("component", component)
	}
	return l
}

// NopLogger discards everything. Mostly for tests.
func NopLogger() Logger {
	return log.New(io.Discard)
}
