package framework

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxIterations           = 8
	DefaultFailureRepeatLimit      = 3
	DefaultCompleteResultMinLength = 100
	DefaultDirectLengthThreshold   = 50
	DefaultToolSelectLimit         = 3
)

// Config contains per-agent configuration knobs supplied by the CLI or server.
// Agents store the pointer passed to Initialize and read defaults from it.
type Config struct {
	Name          string
	Model         string
	MaxIterations int
	// FailureRepeatLimit stops a run once one failed action:input pair has
	// recurred this many times.
	FailureRepeatLimit int
	// CompleteResultMinLength and AmbiguousResultMarkers drive the "looks
	// complete" stop after a successful action.
	CompleteResultMinLength int
	AmbiguousResultMarkers  []string
	// DirectLengthThreshold is the task length above which unclassified tasks
	// are decomposed.
	DirectLengthThreshold int
	ToolSelectLimit       int
	DebugAgent            bool

	Logger    *slog.Logger
	Telemetry Telemetry
	Tracer    trace.Tracer
}

// DefaultConfig returns a Config populated with the stock thresholds.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.FailureRepeatLimit <= 0 {
		c.FailureRepeatLimit = DefaultFailureRepeatLimit
	}
	if c.CompleteResultMinLength <= 0 {
		c.CompleteResultMinLength = DefaultCompleteResultMinLength
	}
	if c.AmbiguousResultMarkers == nil {
		c.AmbiguousResultMarkers = []string{"timezone"}
	}
	if c.DirectLengthThreshold <= 0 {
		c.DirectLengthThreshold = DefaultDirectLengthThreshold
	}
	if c.ToolSelectLimit <= 0 {
		c.ToolSelectLimit = DefaultToolSelectLimit
	}
	if c.Logger == nil {
		c.Logger = DiscardLogger()
	}
	c.Tracer = TracerOrNoop(c.Tracer)
}

// Clone returns a shallow copy so callers can tweak knobs per agent.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	clone := *c
	if c.AmbiguousResultMarkers != nil {
		clone.AmbiguousResultMarkers = append([]string(nil), c.AmbiguousResultMarkers...)
	}
	return &clone
}

// Emit forwards an event to the configured telemetry sink, if any.
func (c *Config) Emit(event Event) {
	if c == nil || c.Telemetry == nil {
		return
	}
	c.Telemetry.Emit(event)
}
