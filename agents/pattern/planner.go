package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexcodex/orchestrate/framework"
)

const planPromptTemplate = `You are a planning agent. Break the task below into the smallest ordered list of atomic steps needed to complete it.
Write exactly one step per line with no numbering, bullets or commentary.
If the task is already atomic, return it unchanged on a single line.

Task: %s
`

// PlannerAgent decomposes a task into ordered subtasks. It never executes
// the steps itself; orchestrators hand them to an executor agent.
type PlannerAgent struct {
	Model  framework.LanguageModel
	Memory framework.MemoryStore
	Config *framework.Config
}

// NewPlannerAgent wires a planner and initializes it with cfg.
func NewPlannerAgent(model framework.LanguageModel, memory framework.MemoryStore, cfg *framework.Config) *PlannerAgent {
	agent := &PlannerAgent{Model: model, Memory: memory}
	_ = agent.Initialize(cfg)
	return agent
}

// Initialize configures the agent.
func (a *PlannerAgent) Initialize(cfg *framework.Config) error {
	if cfg == nil {
		cfg = framework.DefaultConfig()
	}
	cfg.ApplyDefaults()
	a.Config = cfg
	return nil
}

// Description implements framework.Agent.
func (a *PlannerAgent) Description() string {
	return "Planner agent: decomposes a task into an ordered list of subtasks without executing them"
}

// CanHandle prefers compound or long tasks.
func (a *PlannerAgent) CanHandle(task string) bool {
	threshold := framework.DefaultDirectLengthThreshold
	if a.Config != nil {
		threshold = a.Config.DirectLengthThreshold
	}
	return HasConjunction(task) || len(task) > threshold
}

// Plan returns the ordered subtasks for task.
func (a *PlannerAgent) Plan(ctx context.Context, task string) ([]string, error) {
	plan, err := a.PlanDetailed(ctx, task)
	if err != nil {
		return nil, err
	}
	return plan.Steps, nil
}

// PlanDetailed returns the subtasks together with the raw joined text and a
// single-step trace describing the decomposition.
func (a *PlannerAgent) PlanDetailed(ctx context.Context, task string) (*framework.PlanResult, error) {
	if a.Config == nil {
		if err := a.Initialize(nil); err != nil {
			return nil, err
		}
	}
	if a.Model == nil {
		return nil, fmt.Errorf("planner agent missing model")
	}
	ctx, span := a.Config.Tracer.Start(ctx, "planner.Plan", trace.WithAttributes(attribute.String("task", task)))
	defer span.End()

	reply, err := a.Model.Chat(ctx, fmt.Sprintf(planPromptTemplate, task))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("planner: %w", err)
	}
	steps := ParsePlan(reply)
	span.SetAttributes(attribute.Int("plan.steps", len(steps)))
	a.Config.Logger.Debug("plan created", slog.String("agent", "planner"), slog.Int("steps", len(steps)))
	a.Config.Emit(framework.Event{
		Type:      framework.EventPlanCreated,
		Agent:     "planner",
		Message:   task,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"steps": steps},
	})
	if a.Memory != nil {
		if err := a.Memory.Remember(ctx, framework.NewRunID(), map[string]interface{}{
			"type": "plan",
			"task": task,
			"plan": steps,
		}, framework.MemoryScopeSession); err != nil {
			a.Config.Logger.Debug("memory write failed", slog.String("agent", "planner"), slog.Any("error", err))
		}
	}
	return &framework.PlanResult{
		Task:  task,
		Steps: steps,
		Text:  strings.Join(steps, "\n"),
		Trace: []framework.ReasoningStep{{
			Iteration: 1,
			Thought:   fmt.Sprintf("Decomposed task into %d steps", len(steps)),
			Timestamp: time.Now().UTC(),
		}},
	}, nil
}

// Run exposes planning through the common Agent contract. The final answer
// is the plan text, one step per line.
func (a *PlannerAgent) Run(ctx context.Context, task string, handler framework.StreamHandler) (*framework.RunResult, error) {
	plan, err := a.PlanDetailed(ctx, task)
	if err != nil {
		return nil, err
	}
	for i := range plan.Trace {
		step := plan.Trace[i]
		handler.Emit(framework.StreamEvent{Type: framework.StreamReasoningStep, Step: &step})
	}
	return &framework.RunResult{
		ID:          framework.NewRunID(),
		Task:        task,
		FinalAnswer: plan.Text,
		Trace:       plan.Trace,
		Iterations:  len(plan.Trace),
		Success:     len(plan.Steps) > 0,
		Plan:        plan.Steps,
	}, nil
}

// ParsePlan splits a model reply into steps: one per line, trimmed, blank
// lines dropped. Parsing is idempotent over its own joined output.
func ParsePlan(reply string) []string {
	lines := strings.Split(reply, "\n")
	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
