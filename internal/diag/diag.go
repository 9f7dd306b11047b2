// Package diag collects non-fatal problems found while ingesting documents.
package diag

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
)

// Warning is one non-fatal problem. Line is 0 when not tied to a line.
type Warning struct {
	Path    string
	Line    int
	Message string
}

func (w Warning) String() string {
	switch {
	case w.Path == "":
		return w.Message
	case w.Line == 0:
		return fmt.Sprintf("%s: %s", w.Path, w.Message)
	default:
		return fmt.Sprintf("%s:%d: %s", w.Path, w.Line, w.Message)
	}
}

// Collector is safe for concurrent use by ingestion workers.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
	onWarn   func(Warning)
}

// NewCollector creates a collector. onWarn, if not nil, is called for every
// warning after it is recorded.
func NewCollector(onWarn func(Warning)) *Collector {
	return &Collector{onWarn: onWarn}
}

// Warn records w and logs it through the context logger.
func (c *Collector) Warn(ctx context.Context, w Warning) {
	ctxlog.FromContext(ctx).Warn("Ingestion warning.", "path", w.Path, "line", w.Line, "message", w.Message)
	if c == nil {
		return
	}
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
	if c.onWarn != nil {
		c.onWarn(w)
	}
}

// Warnings returns a copy of everything recorded so far.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of recorded warnings.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}
