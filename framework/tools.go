package framework

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrToolNotFound is reported when an action names an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// ErrNoAction is reported when the model produced neither an action nor a
// final answer.
var ErrNoAction = errors.New("no action specified")

// ToolContext carries per-invocation metadata (task, iteration, ...) to tools.
type ToolContext map[string]any

// Tool defines a capability agents can invoke. Implementations are stateless
// across invocations; fixed configuration such as a timeout is fine.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Match(prompt string) bool
	Call(ctx context.Context, input string, tc ToolContext) (any, error)
	FormatResult(result any) string
}

// Prioritizer lets a tool rank itself for a prompt. Tools that do not
// implement it are ranked by the manager's name rules.
type Prioritizer interface {
	Priority(prompt string) Priority
}

// ToolExecution is the isolated outcome of running one tool.
type ToolExecution struct {
	Tool      string `json:"tool"`
	Success   bool   `json:"success"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Formatted string `json:"formatted,omitempty"`
}

// ToolManager holds named tools in registration order. Re-registering a name
// replaces the tool in place.
type ToolManager struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	rules []PriorityRule
}

// NewToolManager builds a manager using DefaultPriorityRules.
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
		rules: DefaultPriorityRules(),
	}
}

// SetPriorityRules replaces the name-keyed ranking table.
func (m *ToolManager) SetPriorityRules(rules []PriorityRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append([]PriorityRule(nil), rules...)
}

// Register adds or replaces a tool.
func (m *ToolManager) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tool required")
	}
	name := tool.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("tool name required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = tool
	return nil
}

// Unregister removes a tool, reporting whether it existed.
func (m *ToolManager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tools[name]; !ok {
		return false
	}
	delete(m.tools, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Get fetches a tool by name.
func (m *ToolManager) Get(name string) (Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tool, ok := m.tools[name]
	return tool, ok
}

// List returns all tools in registration order.
func (m *ToolManager) List() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		res = append(res, m.tools[name])
	}
	return res
}

// Names returns the registered tool names in registration order.
func (m *ToolManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of registered tools.
func (m *ToolManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// FindMatching returns the tools whose Match predicate accepts prompt.
func (m *ToolManager) FindMatching(prompt string) []Tool {
	var matched []Tool
	for _, tool := range m.List() {
		if safeMatch(tool, prompt) {
			matched = append(matched, tool)
		}
	}
	return matched
}

// ExecuteAll runs every matching tool. Each tool is isolated: an error or
// panic in one never prevents the others from running.
func (m *ToolManager) ExecuteAll(ctx context.Context, prompt string, tc ToolContext) map[string]ToolExecution {
	return m.executeTools(ctx, m.FindMatching(prompt), prompt, tc)
}

// NeedsTools reports whether prompt explicitly asks for a tool or at least
// one registered tool matches it.
func (m *ToolManager) NeedsTools(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, term := range invocationVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return len(m.FindMatching(prompt)) > 0
}

// SelectBest ranks tools for prompt and returns at most limit of them. Ties
// keep their original order. A non-positive limit means DefaultToolSelectLimit.
func (m *ToolManager) SelectBest(tools []Tool, prompt string, limit int) []Tool {
	if limit <= 0 {
		limit = DefaultToolSelectLimit
	}
	ranked := make([]Tool, len(tools))
	copy(ranked, tools)
	priorities := make(map[int]Priority, len(ranked))
	for i, tool := range ranked {
		priorities[i] = m.PriorityFor(tool, prompt)
	}
	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return priorities[idx[a]] > priorities[idx[b]]
	})
	out := make([]Tool, 0, limit)
	for _, i := range idx {
		if len(out) == limit {
			break
		}
		out = append(out, ranked[i])
	}
	return out
}

// AutoExecute runs the best-ranked matching tools when the prompt needs tools
// and returns nil otherwise.
func (m *ToolManager) AutoExecute(ctx context.Context, prompt string, tc ToolContext) map[string]ToolExecution {
	if !m.NeedsTools(prompt) {
		return nil
	}
	selected := m.SelectBest(m.FindMatching(prompt), prompt, DefaultToolSelectLimit)
	return m.executeTools(ctx, selected, prompt, tc)
}

// PriorityFor resolves a tool's rank: its own Prioritizer first, then the
// name rules, else neutral.
func (m *ToolManager) PriorityFor(tool Tool, prompt string) Priority {
	if p, ok := tool.(Prioritizer); ok {
		return p.Priority(prompt)
	}
	m.mu.RLock()
	rules := m.rules
	m.mu.RUnlock()
	return rulePriority(rules, tool.Name(), prompt)
}

func (m *ToolManager) executeTools(ctx context.Context, tools []Tool, prompt string, tc ToolContext) map[string]ToolExecution {
	results := make(map[string]ToolExecution, len(tools))
	for _, tool := range tools {
		results[tool.Name()] = InvokeTool(ctx, tool, prompt, tc)
	}
	return results
}

// InvokeTool calls tool and converts errors and panics into a failed
// execution.
func InvokeTool(ctx context.Context, tool Tool, input string, tc ToolContext) (exec ToolExecution) {
	exec.Tool = tool.Name()
	defer func() {
		if r := recover(); r != nil {
			exec.Success = false
			exec.Result = nil
			exec.Error = fmt.Sprintf("tool %s panicked: %v", tool.Name(), r)
			exec.Formatted = ""
		}
	}()
	res, err := tool.Call(ctx, input, tc)
	if err != nil {
		exec.Error = err.Error()
		return exec
	}
	exec.Success = true
	exec.Result = res
	exec.Formatted = tool.FormatResult(res)
	return exec
}

func safeMatch(tool Tool, prompt string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return tool.Match(prompt)
}

// invocationVocabulary marks prompts that ask for a tool explicitly.
var invocationVocabulary = []string{
	"use tool",
	"use the tool",
	"use a tool",
	"call tool",
	"call the tool",
	"invoke",
	"run the tool",
	"with the tool",
}
