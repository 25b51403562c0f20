package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasoningTraceIsAppendOnly(t *testing.T) {
	var trace ReasoningTrace
	_, ok := trace.Last()
	assert.False(t, ok)

	trace.Append(ReasoningStep{Iteration: 1, Thought: "first"})
	trace.Append(ReasoningStep{Iteration: 2, Thought: "second", Action: "calculator"})
	assert.Equal(t, 2, trace.Len())

	steps := trace.Steps()
	steps[0].Thought = "mutated"
	assert.Equal(t, "first", trace.Steps()[0].Thought)

	last, ok := trace.Last()
	assert.True(t, ok)
	assert.True(t, last.HasAction())
	assert.Equal(t, 2, last.Iteration)
}

func TestFailureTally(t *testing.T) {
	tally := NewFailureTally()
	assert.Equal(t, 0, tally.Max())
	key := FailureKey("calculator", "1/0")
	assert.Equal(t, "calculator:1/0", key)
	assert.Equal(t, 1, tally.Record(key))
	assert.Equal(t, 1, tally.Record("search:x"))
	assert.Equal(t, 2, tally.Record(key))
	assert.Equal(t, 2, tally.Count(key))
	assert.Equal(t, 2, tally.Max())
	assert.Equal(t, []string{key, "search:x"}, tally.Keys())
}

func TestActionOutcomeText(t *testing.T) {
	var nilOutcome *ActionOutcome
	assert.Equal(t, "", nilOutcome.Text())
	assert.Equal(t, "42", (&ActionOutcome{Success: true, Output: "42"}).Text())
	assert.Equal(t, "boom", (&ActionOutcome{Error: "boom", Output: "partial"}).Text())
	assert.Equal(t, "partial", (&ActionOutcome{Output: "partial"}).Text())
}

func TestStreamHandlerEmit(t *testing.T) {
	var nilHandler StreamHandler
	assert.NotPanics(t, func() { nilHandler.Emit(StreamEvent{Type: StreamReasoningStep}) })

	var got []StreamEventType
	handler := StreamHandler(func(e StreamEvent) { got = append(got, e.Type) })
	handler.Emit(StreamEvent{Type: StreamReasoningStep})
	handler.Emit(StreamEvent{Type: StreamPlanStep})
	assert.Equal(t, []StreamEventType{StreamReasoningStep, StreamPlanStep}, got)
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
