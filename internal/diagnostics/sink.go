package diagnostics

import (
	"context"
	"log/slog"
	"sync"
)

// Sink receives diagnostics from the mapping, resolution and export paths.
// Implementations must be safe for concurrent use.
type Sink interface {
	Report(ev Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ev Event)

// Report calls f(ev)
func (f SinkFunc) Report(ev Event) { f(ev) }

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})

// OrDiscard returns s, or Discard when s is nil
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// SlogSink forwards events to a structured logger
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing to logger, or to slog.Default() when nil
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Report logs the event at a level derived from its kind
func (s *SlogSink) Report(ev Event) {
	level := slog.LevelWarn
	switch ev.Kind.Severity() {
	case SeverityInfo:
		level = slog.LevelInfo
	case SeverityError, SeverityFatal:
		level = slog.LevelError
	}

	attrs := []slog.Attr{slog.String("kind", ev.Kind.String())}
	if ev.Field != "" {
		attrs = append(attrs, slog.String("field", ev.Field))
	}
	if ev.Detail != "" {
		attrs = append(attrs, slog.String("detail", ev.Detail))
	}
	s.logger.LogAttrs(context.Background(), level, ev.Message, attrs...)
}

// Collector keeps events in memory so callers can surface them to users
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends the event
func (c *Collector) Report(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the recorded events
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfKind returns the recorded events of the given kind
func (c *Collector) OfKind(kind Kind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of recorded events
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Messages renders every event as a string, in order
func (c *Collector) Messages() []string {
	events := c.Events()
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.String())
	}
	return out
}

// Multi fans an event out to several sinks
type Multi []Sink

// Report forwards ev to every non-nil sink
func (m Multi) Report(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Report(ev)
		}
	}
}
