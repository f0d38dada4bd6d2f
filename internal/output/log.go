// Package output provides the loggers used by the CLI and the pipeline.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// LogConfig controls how log lines are rendered.
type LogConfig struct {
	Verbose    bool
	Timestamps bool
}

// Logger is the process-wide logger used by the CLI. Library code takes a
// *log.Logger explicitly and only falls back to this one.
var Logger = New(os.Stderr, LogConfig{})

// New returns a logger writing to w. Verbose enables debug output and
// caller reporting.
func New(w io.Writer, cfg LogConfig) *log.Logger {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: cfg.Timestamps || cfg.Verbose,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

// SetupLogging replaces Logger according to cfg.
func SetupLogging(cfg LogConfig) {
	Logger = New(os.Stderr, cfg)
}

// RecipeLogger returns a child of Logger prefixed with the recipe name.
func RecipeLogger(name string) *log.Logger {
	return Logger.WithPrefix(name)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
