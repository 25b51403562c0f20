package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexcodex/orchestrate/framework"
)

// TaskPlanner decomposes a task into ordered subtasks.
type TaskPlanner interface {
	Plan(ctx context.Context, task string) ([]string, error)
}

// CompositeAgent classifies a task and either hands it straight to the
// executor or plans it and runs each step on the executor.
type CompositeAgent struct {
	Planner  TaskPlanner
	Executor framework.Agent
	Memory   framework.MemoryStore
	Config   *framework.Config
	Rules    []ClassificationRule
}

// NewCompositeAgent builds a composite agent backed by a PlannerAgent and a
// ReActAgent sharing model, tools and memory.
func NewCompositeAgent(model framework.LanguageModel, tools *framework.ToolManager, memory framework.MemoryStore, cfg *framework.Config) *CompositeAgent {
	if cfg == nil {
		cfg = framework.DefaultConfig()
	}
	agent := &CompositeAgent{
		Planner:  NewPlannerAgent(model, memory, cfg),
		Executor: NewReActAgent(model, tools, memory, cfg),
		Memory:   memory,
	}
	_ = agent.Initialize(cfg)
	return agent
}

// Initialize configures the agent.
func (c *CompositeAgent) Initialize(cfg *framework.Config) error {
	if cfg == nil {
		cfg = framework.DefaultConfig()
	}
	cfg.ApplyDefaults()
	c.Config = cfg
	if c.Rules == nil {
		c.Rules = DefaultClassificationRules()
	}
	return nil
}

// Description implements framework.Agent.
func (c *CompositeAgent) Description() string {
	return "Composite agent: runs simple tasks directly and plans complex tasks into validated steps"
}

// CanHandle accepts any non-empty task.
func (c *CompositeAgent) CanHandle(task string) bool {
	return c.Executor != nil && c.Executor.CanHandle(task)
}

// Classify returns the complexity verdict for task and the deciding rule.
func (c *CompositeAgent) Classify(task string) (Complexity, string) {
	if c.Config == nil {
		_ = c.Initialize(nil)
	}
	return ClassifyTask(c.Rules, task, c.Config.DirectLengthThreshold)
}

// Run executes task on the direct or planning path.
func (c *CompositeAgent) Run(ctx context.Context, task string, handler framework.StreamHandler) (result *framework.RunResult, err error) {
	if c.Config == nil {
		if err := c.Initialize(nil); err != nil {
			return nil, err
		}
	}
	if c.Executor == nil {
		return nil, fmt.Errorf("composite agent missing executor")
	}
	complexity, rule := c.Classify(task)
	ctx, span := c.Config.Tracer.Start(ctx, "composite.Run", trace.WithAttributes(
		attribute.String("task", task),
		attribute.String("complexity", string(complexity)),
		attribute.String("rule", rule),
	))
	defer func() { framework.EndSpan(span, result, err) }()

	logger := c.Config.Logger.With(slog.String("agent", "composite"))
	logger.Debug("task classified", slog.String("complexity", string(complexity)), slog.String("rule", rule))

	if complexity == ComplexitySimple || c.Planner == nil {
		result, err = c.runDirect(ctx, task, handler)
	} else {
		result, err = c.runPlanned(ctx, task, handler, logger)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("run finished",
		slog.String("approach", string(result.Approach)),
		slog.Int("iterations", result.Iterations),
		slog.Bool("success", result.Success),
	)
	return result, nil
}

func (c *CompositeAgent) runDirect(ctx context.Context, task string, handler framework.StreamHandler) (*framework.RunResult, error) {
	inner, err := c.Executor.Run(ctx, task, handler)
	if err != nil {
		return nil, err
	}
	return &framework.RunResult{
		ID:          framework.NewRunID(),
		Task:        task,
		FinalAnswer: inner.FinalAnswer,
		Trace:       inner.Trace,
		Iterations:  inner.Iterations,
		Success:     inner.Success,
		Approach:    framework.ApproachDirect,
		Plan:        []string{task},
		StepResults: []*framework.RunResult{inner},
	}, nil
}

func (c *CompositeAgent) runPlanned(ctx context.Context, task string, handler framework.StreamHandler, logger *slog.Logger) (*framework.RunResult, error) {
	steps, err := c.Planner.Plan(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("composite: plan: %w", err)
	}
	result := &framework.RunResult{
		ID:       framework.NewRunID(),
		Task:     task,
		Approach: framework.ApproachPlanning,
		Plan:     steps,
		Trace:    []framework.ReasoningStep{},
	}
	logger = logger.With(slog.String("run_id", result.ID))
	for i, subtask := range steps {
		stepResult, err := c.Executor.Run(ctx, subtask, handler)
		if err != nil {
			return nil, fmt.Errorf("composite: step %d: %w", i+1, err)
		}
		result.StepResults = append(result.StepResults, stepResult)
		result.Trace = append(result.Trace, stepResult.Trace...)
		result.Iterations += stepResult.Iterations

		update := &framework.PlanStepUpdate{Index: i, Total: len(steps), Subtask: subtask, Result: stepResult}
		if answer, ok := ValidateStep(i+1, subtask, stepResult); ok {
			result.ValidatedAnswers = append(result.ValidatedAnswers, answer)
			update.Answer = &answer
		} else {
			logger.Debug("step answer rejected", slog.Int("step", i+1), slog.String("subtask", subtask))
		}
		handler.Emit(framework.StreamEvent{Type: framework.StreamPlanStep, PlanStep: update})
		c.Config.Emit(framework.Event{
			Type:      framework.EventPlanStep,
			Agent:     "composite",
			RunID:     result.ID,
			Message:   subtask,
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]interface{}{"index": i, "total": len(steps), "validated": update.Answer != nil},
		})
	}
	result.FinalAnswer = AggregateAnswers(task, result.ValidatedAnswers)
	result.Success = OverallSuccess(task, result.ValidatedAnswers)
	if c.Memory != nil {
		// Plan summaries outlive the process; per-iteration notes do not.
		if err := c.Memory.Remember(ctx, result.ID, map[string]interface{}{
			"type":         "composite",
			"task":         task,
			"plan":         steps,
			"final_answer": result.FinalAnswer,
			"success":      result.Success,
		}, framework.MemoryScopeProject); err != nil {
			c.Config.Logger.Debug("memory write failed", slog.String("agent", "composite"), slog.Any("error", err))
		}
	}
	return result, nil
}
