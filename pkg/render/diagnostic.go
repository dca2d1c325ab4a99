package render

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Kind classifies a render diagnostic.
type Kind string

const (
	KindUnknownType     Kind = "unknown_type"
	KindMalformed       Kind = "malformed"
	KindCondition       Kind = "condition"
	KindTransform       Kind = "transform"
	KindCycle           Kind = "cycle"
	KindDepth           Kind = "depth"
	KindDuplicateID     Kind = "duplicate_id"
	KindUnknownFragment Kind = "unknown_fragment"
	KindUnknownLayout   Kind = "unknown_layout"
	KindPanic           Kind = "panic"
)

// Diagnostic describes one non-fatal problem found while rendering. Path
// lists the ids of the enclosing components, outermost first.
type Diagnostic struct {
	Kind        Kind
	ComponentID string
	Type        string
	Path        []string
	Message     string
	Err         error
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)
	if d.ComponentID != "" {
		fmt.Fprintf(&b, " (id=%s", d.ComponentID)
		if d.Type != "" {
			fmt.Fprintf(&b, ", type=%s", d.Type)
		}
		b.WriteString(")")
	}
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	return b.String()
}

// Warning reports whether the diagnostic left the node rendered.
func (d Diagnostic) Warning() bool {
	return d.Kind == KindDuplicateID || d.Kind == KindTransform
}

// Reporter receives render diagnostics. Implementations must be safe for
// concurrent use when renders run in parallel.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

// Report implements Reporter.
func (fn ReporterFunc) Report(d Diagnostic) {
	if fn != nil {
		fn(d)
	}
}

// LogReporter writes diagnostics to logger at warn level.
func LogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return ReporterFunc(func(d Diagnostic) {
		attrs := []any{
			"kind", string(d.Kind),
			"id", d.ComponentID,
		}
		if d.Type != "" {
			attrs = append(attrs, "type", d.Type)
		}
		if len(d.Path) > 0 {
			attrs = append(attrs, "path", strings.Join(d.Path, "/"))
		}
		if d.Err != nil {
			attrs = append(attrs, "error", d.Err)
		}
		logger.Warn("render: "+d.Message, attrs...)
	})
}

// Collector records diagnostics in memory.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Report implements Reporter.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// Kinds returns the kinds reported so far, in order.
func (c *Collector) Kinds() []Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]Kind, len(c.items))
	for i, d := range c.items {
		kinds[i] = d.Kind
	}
	return kinds
}

// Reset drops recorded diagnostics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Tee fans a diagnostic out to several reporters.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(d Diagnostic) {
		for _, r := range reporters {
			if r != nil {
				r.Report(d)
			}
		}
	})
}
