package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexcodex/orchestrate/framework"
)

// errorMarkers flag an observation or answer as failed even when the tool
// itself reported success.
var errorMarkers = []string{"error", "failed", "unable to complete"}

// noUsableResult is the final answer when every tool call failed.
const noUsableResult = "Unable to complete the task: no tool produced a usable result."

var toolListRequest = regexp.MustCompile(`(?i)\b(what|which)\s+tools\b|\blist\s+(?:the\s+|all\s+|your\s+)?(?:available\s+)?tools\b|\bavailable\s+tools\b`)

// ReActAgent implements the Reason+Act pattern.
type ReActAgent struct {
	Model         framework.LanguageModel
	Tools         *framework.ToolManager
	Memory        framework.MemoryStore
	Config        *framework.Config
	maxIterations int
}

// NewReActAgent wires a ReAct agent and initializes it with cfg.
func NewReActAgent(model framework.LanguageModel, tools *framework.ToolManager, memory framework.MemoryStore, cfg *framework.Config) *ReActAgent {
	agent := &ReActAgent{Model: model, Tools: tools, Memory: memory}
	_ = agent.Initialize(cfg)
	return agent
}

// Initialize wires configuration.
func (a *ReActAgent) Initialize(config *framework.Config) error {
	if config == nil {
		config = framework.DefaultConfig()
	}
	config.ApplyDefaults()
	a.Config = config
	a.maxIterations = config.MaxIterations
	if a.Tools == nil {
		a.Tools = framework.NewToolManager()
	}
	return nil
}

// Description implements framework.Agent.
func (a *ReActAgent) Description() string {
	return "Reason + Act agent: alternates model reasoning with tool calls until it reaches a final answer"
}

// CanHandle accepts any non-empty task.
func (a *ReActAgent) CanHandle(task string) bool {
	return strings.TrimSpace(task) != ""
}

// debugf logs formatted messages whenever agent debug logging is enabled.
func (a *ReActAgent) debugf(format string, args ...interface{}) {
	if a == nil || a.Config == nil || !a.Config.DebugAgent {
		return
	}
	a.Config.Logger.Debug(fmt.Sprintf("[react] "+format, args...))
}

// Run executes the reason→act→observe loop for task.
func (a *ReActAgent) Run(ctx context.Context, task string, handler framework.StreamHandler) (result *framework.RunResult, err error) {
	if a.Config == nil {
		if err := a.Initialize(nil); err != nil {
			return nil, err
		}
	}
	if a.Model == nil {
		return nil, fmt.Errorf("react agent missing language model")
	}
	cfg := a.Config
	ctx, span := cfg.Tracer.Start(ctx, "react.Run", trace.WithAttributes(attribute.String("task", task)))
	defer func() { framework.EndSpan(span, result, err) }()

	run := &reactRun{
		agent:  a,
		task:   task,
		id:     framework.NewRunID(),
		tally:  framework.NewFailureTally(),
		trace:  &framework.ReasoningTrace{},
		logger: cfg.Logger.With(slog.String("agent", "react")),
	}
	run.logger = run.logger.With(slog.String("run_id", run.id))
	cfg.Emit(framework.Event{Type: framework.EventRunStart, Agent: "react", RunID: run.id, Message: task, Timestamp: time.Now().UTC()})

	if answer, ok := a.toolListing(task); ok {
		result = &framework.RunResult{ID: run.id, Task: task, FinalAnswer: answer, Success: true, Trace: []framework.ReasoningStep{}}
		run.finish(result, "tool_listing")
		return result, nil
	}

	stop := "max_iterations"
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		step, err := run.think(ctx, iteration)
		if err != nil {
			run.logger.Error("reason step failed", slog.Int("iteration", iteration), slog.Any("error", err))
			return nil, fmt.Errorf("react: reason step %d: %w", iteration, err)
		}
		streamed := step
		handler.Emit(framework.StreamEvent{Type: framework.StreamReasoningStep, Step: &streamed})

		step.Outcome = run.act(ctx, step)
		run.observe(ctx, step)
		if reason := run.stopReason(step); reason != "" {
			stop = reason
			break
		}
	}

	steps := run.trace.Steps()
	answer := finalAnswer(steps)
	result = &framework.RunResult{
		ID:          run.id,
		Task:        task,
		FinalAnswer: answer,
		Trace:       steps,
		Iterations:  len(steps),
		Success:     answer != "" && !containsErrorMarker(answer),
	}
	run.finish(result, stop)
	return result, nil
}

func (a *ReActAgent) toolListing(task string) (string, bool) {
	if !toolListRequest.MatchString(task) {
		return "", false
	}
	names := a.Tools.Names()
	if len(names) == 0 {
		return "No tools are available.", true
	}
	return "Available tools: " + strings.Join(names, ", "), true
}

// reactRun is the per-call state of one Run. It is never shared between
// calls, so the agent itself stays reusable.
type reactRun struct {
	agent  *ReActAgent
	task   string
	id     string
	tally  *framework.FailureTally
	trace  *framework.ReasoningTrace
	logger *slog.Logger
}

// think asks the model for the next thought and action.
func (r *reactRun) think(ctx context.Context, iteration int) (framework.ReasoningStep, error) {
	prompt := r.buildPrompt()
	r.agent.debugf("iteration %d prompt:\n%s", iteration, prompt)
	reply, err := r.agent.Model.Chat(ctx, prompt)
	if err != nil {
		return framework.ReasoningStep{}, err
	}
	r.agent.debugf("iteration %d reply:\n%s", iteration, reply)
	parsed := parseReply(reply)
	step := framework.ReasoningStep{
		Iteration:   iteration,
		Thought:     parsed.Thought,
		Action:      parsed.Action,
		ActionInput: parsed.ActionInput,
		FinalAnswer: parsed.FinalAnswer,
		Timestamp:   time.Now().UTC(),
	}
	r.agent.Config.Emit(framework.Event{
		Type:      framework.EventReasoningStep,
		Agent:     "react",
		RunID:     r.id,
		Message:   step.Thought,
		Timestamp: step.Timestamp,
		Metadata:  map[string]interface{}{"iteration": iteration, "action": step.Action},
	})
	return step, nil
}

// act invokes the requested tool. A step that carries a final answer and no
// action has nothing to do and yields a nil outcome.
func (r *reactRun) act(ctx context.Context, step framework.ReasoningStep) *framework.ActionOutcome {
	if !step.HasAction() {
		if step.HasFinalAnswer() || hasCompletionMarker(step.Thought) {
			return nil
		}
		return &framework.ActionOutcome{Success: false, Error: framework.ErrNoAction.Error()}
	}
	tool, ok := r.agent.Tools.Get(step.Action)
	if !ok {
		err := fmt.Errorf("%w: %q (available: %s)", framework.ErrToolNotFound, step.Action, strings.Join(r.agent.Tools.Names(), ", "))
		r.logger.Warn("unknown tool requested", slog.String("tool", step.Action))
		return &framework.ActionOutcome{Success: false, Error: err.Error()}
	}
	input := step.ActionInput
	if input == "" {
		input = r.task
	}
	ctx, span := r.agent.Config.Tracer.Start(ctx, "tool.Call", trace.WithAttributes(
		attribute.String("tool.name", tool.Name()),
		attribute.Int("iteration", step.Iteration),
	))
	defer span.End()
	r.agent.Config.Emit(framework.Event{
		Type:      framework.EventToolCall,
		Agent:     "react",
		RunID:     r.id,
		Message:   tool.Name(),
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"input": input, "iteration": step.Iteration},
	})
	exec := framework.InvokeTool(ctx, tool, input, framework.ToolContext{
		"task":      r.task,
		"iteration": step.Iteration,
	})
	if !exec.Success {
		span.SetStatus(codes.Error, exec.Error)
	}
	r.agent.Config.Emit(framework.Event{
		Type:      framework.EventToolResult,
		Agent:     "react",
		RunID:     r.id,
		Message:   tool.Name(),
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"success": exec.Success, "error": exec.Error},
	})
	return &framework.ActionOutcome{Success: exec.Success, Output: exec.Formatted, Error: exec.Error}
}

// observe records the step and tallies failed actions.
func (r *reactRun) observe(ctx context.Context, step framework.ReasoningStep) {
	if out := step.Outcome; out != nil && (!out.Success || containsErrorMarker(out.Text())) {
		count := r.tally.Record(framework.FailureKey(step.Action, step.ActionInput))
		r.logger.Debug("action failed",
			slog.Int("iteration", step.Iteration),
			slog.String("action", step.Action),
			slog.Int("repeats", count),
		)
	}
	r.trace.Append(step)
	if r.agent.Memory != nil {
		record := map[string]interface{}{
			"task":      r.task,
			"iteration": step.Iteration,
			"thought":   step.Thought,
			"action":    step.Action,
			"input":     step.ActionInput,
		}
		if step.Outcome != nil {
			record["success"] = step.Outcome.Success
			record["observation"] = step.Outcome.Text()
		}
		key := fmt.Sprintf("%s:%d", r.id, step.Iteration)
		if err := r.agent.Memory.Remember(ctx, key, record, framework.MemoryScopeSession); err != nil {
			r.logger.Debug("memory write failed", slog.Any("error", err))
		}
	}
}

// stopReason reports why the loop should end after step, or "" to continue.
func (r *reactRun) stopReason(step framework.ReasoningStep) string {
	cfg := r.agent.Config
	if step.HasFinalAnswer() || hasCompletionMarker(step.Thought) {
		return "final_answer"
	}
	if out := step.Outcome; out != nil && out.Success &&
		len(out.Output) > cfg.CompleteResultMinLength &&
		!containsErrorMarker(out.Output) &&
		!containsAny(out.Output, cfg.AmbiguousResultMarkers) {
		return "result_complete"
	}
	if r.tally.Max() >= cfg.FailureRepeatLimit {
		return "repeated_failure"
	}
	return ""
}

func (r *reactRun) finish(result *framework.RunResult, reason string) {
	r.logger.Info("run finished",
		slog.String("stop", reason),
		slog.Int("iterations", result.Iterations),
		slog.Bool("success", result.Success),
	)
	r.agent.Config.Emit(framework.Event{
		Type:      framework.EventRunFinish,
		Agent:     "react",
		RunID:     r.id,
		Message:   result.FinalAnswer,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"stop": reason, "iterations": result.Iterations, "success": result.Success},
	})
}

func (r *reactRun) buildPrompt() string {
	var b strings.Builder
	b.WriteString("You are a ReAct agent. Solve the task by reasoning step by step and calling tools when they help.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", r.task)
	b.WriteString("Available tools:\n")
	b.WriteString(framework.RenderToolCatalog(r.agent.Tools.List()))
	b.WriteString("\n\n")

	steps := r.trace.Steps()
	if len(steps) > 0 {
		b.WriteString("Previous steps:\n")
		for _, step := range steps {
			fmt.Fprintf(&b, "Iteration %d\nThought: %s\n", step.Iteration, step.Thought)
			if step.HasAction() {
				fmt.Fprintf(&b, "Action: %s\nAction Input: %s\n", step.Action, step.ActionInput)
			}
			if step.Outcome != nil {
				fmt.Fprintf(&b, "Observation: %s\n", step.Outcome.Text())
			}
		}
		b.WriteString("\n")
	}
	if keys := r.tally.Keys(); len(keys) > 0 {
		b.WriteString("These actions already failed; do not repeat them:\n")
		for _, key := range keys {
			fmt.Fprintf(&b, "- %s (failed %d times)\n", key, r.tally.Count(key))
		}
		b.WriteString("\n")
	}
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("Thought: <your reasoning>\nAction: <tool name>\nAction Input: <input for the tool>\n\n")
	b.WriteString("When you know the answer, respond with:\n")
	b.WriteString("Thought: <your reasoning>\nFinal Answer: <the answer>\n")
	return b.String()
}

// finalAnswer picks the answer for a finished trace: an explicit final
// answer first, then the latest usable tool output.
func finalAnswer(steps []framework.ReasoningStep) string {
	if len(steps) == 0 {
		return ""
	}
	last := steps[len(steps)-1]
	if last.HasFinalAnswer() {
		return last.FinalAnswer
	}
	if answer, ok := answerAfterMarker(last.Thought); ok && answer != "" {
		return answer
	}
	if out := last.Outcome; out != nil && out.Success && !containsErrorMarker(out.Output) {
		return out.Output
	}
	if last.HasAction() {
		for i := len(steps) - 2; i >= 0; i-- {
			if out := steps[i].Outcome; out != nil && out.Success && out.Output != "" && !containsErrorMarker(out.Output) {
				return out.Output
			}
		}
		return noUsableResult
	}
	return last.Thought
}

func containsErrorMarker(text string) bool {
	return containsAny(text, errorMarkers)
}

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, marker := range markers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
