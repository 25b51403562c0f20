package framework

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name     string
	keyword  string
	output   string
	err      error
	panics   bool
	priority *Priority
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake " + f.name }
func (f *fakeTool) InputSchema() map[string]any { return nil }
func (f *fakeTool) Match(prompt string) bool {
	return f.keyword != "" && strings.Contains(strings.ToLower(prompt), f.keyword)
}
func (f *fakeTool) Call(ctx context.Context, input string, tc ToolContext) (any, error) {
	if f.panics {
		panic("kaboom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}
func (f *fakeTool) FormatResult(result any) string { return "[" + result.(string) + "]" }

type rankedTool struct {
	fakeTool
}

func (r *rankedTool) Priority(prompt string) Priority { return *r.priority }

func TestToolManagerRegistration(t *testing.T) {
	m := NewToolManager()
	require.NoError(t, m.Register(&fakeTool{name: "a"}))
	require.NoError(t, m.Register(&fakeTool{name: "b"}))
	require.NoError(t, m.Register(&fakeTool{name: "a", output: "replaced"}))
	assert.Equal(t, []string{"a", "b"}, m.Names())
	assert.Equal(t, 2, m.Len())

	tool, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "replaced", tool.(*fakeTool).output)

	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeTool{name: "  "}))

	assert.True(t, m.Unregister("a"))
	assert.False(t, m.Unregister("a"))
	assert.Equal(t, []string{"b"}, m.Names())
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestExecuteAllIsolatesFailures(t *testing.T) {
	m := NewToolManager()
	require.NoError(t, m.Register(&fakeTool{name: "ok", keyword: "go", output: "fine"}))
	require.NoError(t, m.Register(&fakeTool{name: "broken", keyword: "go", err: errors.New("nope")}))
	require.NoError(t, m.Register(&fakeTool{name: "panicky", keyword: "go", panics: true}))
	require.NoError(t, m.Register(&fakeTool{name: "idle", keyword: "never"}))

	results := m.ExecuteAll(context.Background(), "let's go", nil)
	require.Len(t, results, 3)
	assert.True(t, results["ok"].Success)
	assert.Equal(t, "[fine]", results["ok"].Formatted)
	assert.False(t, results["broken"].Success)
	assert.Equal(t, "nope", results["broken"].Error)
	assert.False(t, results["panicky"].Success)
	assert.Contains(t, results["panicky"].Error, "panicked")
	assert.NotContains(t, results, "idle")
}

func TestNeedsTools(t *testing.T) {
	m := NewToolManager()
	require.NoError(t, m.Register(&fakeTool{name: "weather", keyword: "forecast"}))
	assert.True(t, m.NeedsTools("forecast for Paris"))
	assert.True(t, m.NeedsTools("please use the tool to answer"))
	assert.False(t, m.NeedsTools("tell me a joke"))
}

func TestSelectBestRanksByPriority(t *testing.T) {
	m := NewToolManager()
	search := &fakeTool{name: "web_search"}
	clock := &fakeTool{name: "current_time"}
	calc := &fakeTool{name: "calculator"}
	other := &fakeTool{name: "misc"}
	tools := []Tool{search, clock, other, calc}

	best := m.SelectBest(tools, "calculate 2+2", 10)
	require.Len(t, best, 4)
	assert.Equal(t, "calculator", best[0].Name())
	assert.Equal(t, "misc", best[1].Name())

	for limit := 1; limit <= 4; limit++ {
		assert.Len(t, m.SelectBest(tools, "calculate 2+2", limit), limit)
	}
	assert.Len(t, m.SelectBest(tools, "calculate 2+2", 0), DefaultToolSelectLimit)
	assert.Empty(t, m.SelectBest(nil, "calculate 2+2", 3))
}

func TestPriorityForPrefersToolRanking(t *testing.T) {
	m := NewToolManager()
	low := PriorityLow
	calc := &rankedTool{fakeTool: fakeTool{name: "calculator", priority: &low}}
	assert.Equal(t, PriorityLow, m.PriorityFor(calc, "2 + 2"))
	assert.Equal(t, PriorityHigh, m.PriorityFor(&fakeTool{name: "calculator"}, "2 + 2"))
	assert.Equal(t, PriorityNeutral, m.PriorityFor(&fakeTool{name: "misc"}, "2 + 2"))

	m.SetPriorityRules([]PriorityRule{{NameContains: "misc", Prefers: func(string) bool { return true }}})
	assert.Equal(t, PriorityHigh, m.PriorityFor(&fakeTool{name: "misc"}, "anything"))
	assert.Equal(t, PriorityNeutral, m.PriorityFor(&fakeTool{name: "calculator"}, "2 + 2"))
}

func TestAutoExecute(t *testing.T) {
	m := NewToolManager()
	require.NoError(t, m.Register(&fakeTool{name: "calculator", keyword: "+", output: "4"}))
	require.NoError(t, m.Register(&fakeTool{name: "web_search", keyword: "+", output: "links"}))
	require.NoError(t, m.Register(&fakeTool{name: "current_time", keyword: "+", output: "noon"}))
	require.NoError(t, m.Register(&fakeTool{name: "misc", keyword: "+", output: "x"}))

	results := m.AutoExecute(context.Background(), "2 + 2", nil)
	assert.Len(t, results, DefaultToolSelectLimit)
	assert.Contains(t, results, "calculator")
	assert.Nil(t, m.AutoExecute(context.Background(), "hello", nil))
}

func TestRenderToolCatalog(t *testing.T) {
	assert.Equal(t, "No tools available.", RenderToolCatalog(nil))
	catalog := RenderToolCatalog([]Tool{&fakeTool{name: "a"}, &fakeTool{name: "b"}})
	assert.Equal(t, "- a: fake a\n- b: fake b", catalog)
}

func TestPriorityPredicates(t *testing.T) {
	assert.True(t, LooksArithmetic("what is 12 * 3"))
	assert.True(t, LooksArithmetic("Calculate the total"))
	assert.False(t, LooksArithmetic("the year 1984"))
	assert.True(t, LooksLikeQuestion("Who wrote Dune?"))
	assert.True(t, LooksLikeCode("```python\nprint(1)\n```"))
	assert.True(t, LooksTemporal("what's the date today"))
	assert.False(t, LooksTemporal("2 + 2"))
}
