package llm

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexcodex/orchestrate/framework"
)

// InstrumentedModel wraps a LanguageModel and emits telemetry and a span for
// every prompt.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry
	Tracer    trace.Tracer
	Name      string
	Debug     bool
}

// NewInstrumentedModel wraps inner. A nil tracer falls back to a no-op one.
func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry, tracer trace.Tracer, debug bool) *InstrumentedModel {
	return &InstrumentedModel{
		Inner:     inner,
		Telemetry: telemetry,
		Tracer:    framework.TracerOrNoop(tracer),
		Debug:     debug,
	}
}

// Chat forwards to the wrapped model.
func (m *InstrumentedModel) Chat(ctx context.Context, prompt string) (string, error) {
	tracer := framework.TracerOrNoop(m.Tracer)
	ctx, span := tracer.Start(ctx, "llm.Chat", trace.WithAttributes(
		attribute.String("llm.model", m.Name),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	m.emitPrompt(prompt)
	started := time.Now()
	reply, err := m.Inner.Chat(ctx, prompt)
	m.emitResponse(reply, time.Since(started), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.reply_chars", len(reply)))
	return reply, nil
}

func (m *InstrumentedModel) emitPrompt(prompt string) {
	if m == nil || m.Telemetry == nil {
		return
	}
	metadata := map[string]interface{}{
		"model":          m.Name,
		"prompt_chars":   len(prompt),
		"prompt_preview": clip(prompt, 1024),
	}
	if m.Debug {
		metadata["prompt"] = clip(prompt, 8192)
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMPrompt,
		Timestamp: time.Now().UTC(),
		Message:   "llm prompt",
		Metadata:  metadata,
	})
}

func (m *InstrumentedModel) emitResponse(reply string, elapsed time.Duration, err error) {
	if m == nil || m.Telemetry == nil {
		return
	}
	metadata := map[string]interface{}{
		"model":        m.Name,
		"duration_ms":  elapsed.Milliseconds(),
		"text_preview": clip(reply, 1024),
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMResponse,
		Timestamp: time.Now().UTC(),
		Message:   "llm response",
		Metadata:  metadata,
	})
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
