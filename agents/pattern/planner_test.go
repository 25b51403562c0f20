package pattern

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/orchestrate/framework"
)

func TestPlannerAgentPlan(t *testing.T) {
	model := &stubLLM{responses: []string{"Find the president of the US\n\n  Find the capital of France  \n"}}
	planner := NewPlannerAgent(model, nil, nil)

	steps, err := planner.Plan(context.Background(), "Find the president of the US and the capital of France")
	require.NoError(t, err)
	assert.Equal(t, []string{"Find the president of the US", "Find the capital of France"}, steps)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Task: Find the president of the US and the capital of France")
}

func TestParsePlanIsIdempotent(t *testing.T) {
	raw := "step one\n   \nstep two\r\n\tstep three\n"
	first := ParsePlan(raw)
	second := ParsePlan(strings.Join(first, "\n"))
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	assert.Empty(t, ParsePlan("\n \n"))
}

func TestPlannerAgentRun(t *testing.T) {
	model := &stubLLM{responses: []string{"a\nb"}}
	planner := NewPlannerAgent(model, nil, nil)

	var streamed int
	res, err := planner.Run(context.Background(), "do a and b", func(framework.StreamEvent) { streamed++ })
	require.NoError(t, err)
	assert.Equal(t, "a\nb", res.FinalAnswer)
	assert.Equal(t, []string{"a", "b"}, res.Plan)
	assert.True(t, res.Success)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, "Decomposed task into 2 steps", res.Trace[0].Thought)
	assert.Equal(t, 1, streamed)
}

func TestPlannerAgentEmptyPlanIsUnsuccessful(t *testing.T) {
	planner := NewPlannerAgent(&stubLLM{responses: []string{"   "}}, nil, nil)
	res, err := planner.Run(context.Background(), "nothing", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Plan)
}

func TestPlannerAgentPropagatesModelError(t *testing.T) {
	boom := errors.New("down")
	planner := NewPlannerAgent(&stubLLM{err: boom}, nil, nil)
	_, err := planner.Plan(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestPlannerAgentCanHandle(t *testing.T) {
	planner := NewPlannerAgent(&stubLLM{}, nil, nil)
	assert.True(t, planner.CanHandle("search for cats and dogs"))
	assert.False(t, planner.CanHandle("2+2"))
}

type failingMemory struct{ calls int }

func (m *failingMemory) Remember(context.Context, string, map[string]interface{}, framework.MemoryScope) error {
	m.calls++
	return errors.New("disk full")
}

func TestMemoryWriteFailuresAreLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	cfg := framework.DefaultConfig()
	cfg.Logger = framework.NewLogger(&logs, "debug", "text")
	memory := &failingMemory{}

	planner := NewPlannerAgent(&stubLLM{responses: []string{"a\nb"}}, memory, cfg)
	steps, err := planner.Plan(context.Background(), "do a and b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, steps)
	assert.Contains(t, logs.String(), "memory write failed")
	assert.Contains(t, logs.String(), "agent=planner")

	logs.Reset()
	composite := &CompositeAgent{
		Planner:  &fixedPlanner{steps: []string{"find a", "find b"}},
		Executor: &scriptedAgent{results: map[string]*framework.RunResult{}},
		Memory:   memory,
		Config:   cfg,
	}
	_, err = composite.Run(context.Background(), "Find the capital of France and the capital of Spain", nil)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "agent=composite")
	assert.Equal(t, 2, memory.calls)
}
