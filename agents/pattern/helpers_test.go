package pattern

import (
	"context"
	"errors"
	"strings"

	"github.com/lexcodex/orchestrate/framework"
)

type stubLLM struct {
	responses []string
	idx       int
	prompts   []string
	err       error
}

// Chat returns the next queued response for deterministic tests.
func (s *stubLLM) Chat(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if s.idx >= len(s.responses) {
		return "", errors.New("no response")
	}
	resp := s.responses[s.idx]
	s.idx++
	return resp, nil
}

// repeat queues the same reply n times.
func repeat(reply string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = reply
	}
	return out
}

type stubTool struct {
	name   string
	output string
	err    error
	calls  []string
}

func (t *stubTool) Name() string                { return t.name }
func (t *stubTool) Description() string         { return "stub tool" }
func (t *stubTool) InputSchema() map[string]any { return nil }
func (t *stubTool) Match(prompt string) bool {
	return strings.Contains(strings.ToLower(prompt), t.name)
}

// Call records the input and returns the canned output.
func (t *stubTool) Call(ctx context.Context, input string, tc framework.ToolContext) (any, error) {
	t.calls = append(t.calls, input)
	if t.err != nil {
		return nil, t.err
	}
	return t.output, nil
}

func (t *stubTool) FormatResult(result any) string {
	s, _ := result.(string)
	return s
}

func newTools(tools ...framework.Tool) *framework.ToolManager {
	manager := framework.NewToolManager()
	for _, tool := range tools {
		if err := manager.Register(tool); err != nil {
			panic(err)
		}
	}
	return manager
}

// scriptedAgent replays canned results per task.
type scriptedAgent struct {
	results map[string]*framework.RunResult
	err     error
	tasks   []string
}

func (a *scriptedAgent) Run(ctx context.Context, task string, handler framework.StreamHandler) (*framework.RunResult, error) {
	a.tasks = append(a.tasks, task)
	if a.err != nil {
		return nil, a.err
	}
	res, ok := a.results[task]
	if !ok {
		return &framework.RunResult{Task: task}, nil
	}
	clone := *res
	return &clone, nil
}

func (a *scriptedAgent) CanHandle(task string) bool { return true }
func (a *scriptedAgent) Description() string        { return "scripted agent" }

type fixedPlanner struct {
	steps []string
	err   error
	calls int
}

func (p *fixedPlanner) Plan(ctx context.Context, task string) ([]string, error) {
	p.calls++
	return p.steps, p.err
}
