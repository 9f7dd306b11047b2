package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by New.
const (
	DefaultImportDepth = -1
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Model is the unified, format-agnostic representation of the application
// configuration.
type Model struct {
	// Workers bounds frame ingestion; 0 means one per CPU.
	Workers int
	// ImportDepth limits import resolution; negative is unbounded.
	ImportDepth int
	// Timeout bounds each remote fetch.
	Timeout time.Duration
	// BasePath anchors relative import references.
	BasePath string
	// Search holds doublestar patterns tried for imports with no direct match.
	Search []string
	// Imports maps an import reference to the location to load instead.
	Imports map[string]string

	Log     Log
	Metrics Metrics
}

// Log configures the application logger.
type Log struct {
	Level  string
	Format string
}

// Metrics configures the metrics and health endpoint. An empty Listen
// disables it.
type Metrics struct {
	Listen string
}

// New returns a model holding the defaults.
func New() *Model {
	return &Model{
		ImportDepth: DefaultImportDepth,
		Timeout:     DefaultTimeout,
		Imports:     map[string]string{},
		Log:         Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Validate normalizes the model and reports the first invalid field.
func (m *Model) Validate() error {
	if m.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", m.Workers)
	}
	if m.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", m.Timeout)
	}

	m.Log.Level = strings.ToLower(m.Log.Level)
	switch m.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", m.Log.Level)
	}
	m.Log.Format = strings.ToLower(m.Log.Format)
	if m.Log.Format != "text" && m.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", m.Log.Format)
	}
	return nil
}
