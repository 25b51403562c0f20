package framework

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileTelemetryWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)
	sink.Emit(Event{Type: EventRunStart, RunID: "r1", Timestamp: time.Now()})
	sink.Emit(Event{Type: EventRunFinish, RunID: "r1", Timestamp: time.Now()})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var types []EventType
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		types = append(types, event.Type)
	}
	assert.Equal(t, []EventType{EventRunStart, EventRunFinish}, types)
}

func TestMultiplexAndRecordingTelemetry(t *testing.T) {
	a, b := &RecordingTelemetry{}, &RecordingTelemetry{}
	mux := MultiplexTelemetry{Sinks: []Telemetry{a, nil, b}}
	mux.Emit(Event{Type: EventToolCall})
	mux.Emit(Event{Type: EventToolResult})
	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.OfType(EventToolCall), 1)
	assert.Empty(t, b.OfType(EventPlanStep))
}

func TestLoggerTelemetryUsesDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	LoggerTelemetry{Logger: NewLogger(&buf, "debug", "json")}.Emit(Event{Type: EventPlanCreated, Agent: "planner"})
	assert.Contains(t, buf.String(), `"msg":"plan_created"`)
	assert.Contains(t, buf.String(), `"agent":"planner"`)

	buf.Reset()
	LoggerTelemetry{Logger: NewLogger(&buf, "info", "text")}.Emit(Event{Type: EventPlanCreated})
	assert.Empty(t, buf.String())
}

func TestConfigDefaultsAndClone(t *testing.T) {
	cfg := &Config{MaxIterations: 2}
	cfg.ApplyDefaults()
	assert.Equal(t, 2, cfg.MaxIterations)
	assert.Equal(t, DefaultFailureRepeatLimit, cfg.FailureRepeatLimit)
	assert.Equal(t, []string{"timezone"}, cfg.AmbiguousResultMarkers)
	assert.NotNil(t, cfg.Tracer)
	assert.NotNil(t, cfg.Logger)

	clone := cfg.Clone()
	clone.AmbiguousResultMarkers[0] = "changed"
	assert.Equal(t, "timezone", cfg.AmbiguousResultMarkers[0])

	var nilCfg *Config
	assert.Equal(t, DefaultMaxIterations, nilCfg.Clone().MaxIterations)
	assert.NotPanics(t, func() { nilCfg.Emit(Event{}) })
}
