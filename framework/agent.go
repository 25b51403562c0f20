package framework

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Agent defines the contract shared by every agent kind. Orchestrators only
// ever talk to this interface so a ReAct loop, a planner or a composite agent
// can be swapped without touching the caller.
type Agent interface {
	Run(ctx context.Context, task string, handler StreamHandler) (*RunResult, error)
	CanHandle(task string) bool
	Description() string
}

// LanguageModel is the narrow model-client contract consumed by agents. It is
// synchronous; timeouts are the implementation's responsibility.
type LanguageModel interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// LanguageModelFunc adapts a plain function into a LanguageModel.
type LanguageModelFunc func(ctx context.Context, prompt string) (string, error)

// Chat calls f.
func (f LanguageModelFunc) Chat(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Approach tags how the composite agent resolved a task.
type Approach string

const (
	ApproachDirect   Approach = "direct"
	ApproachPlanning Approach = "planning"
)

// ActionOutcome is the observed result of invoking a tool.
type ActionOutcome struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text returns the formatted output, or the error when the action failed.
func (o *ActionOutcome) Text() string {
	if o == nil {
		return ""
	}
	if o.Success {
		return o.Output
	}
	if o.Error != "" {
		return o.Error
	}
	return o.Output
}

// ReasoningStep records one reason→act→observe iteration.
type ReasoningStep struct {
	Iteration   int            `json:"iteration"`
	Thought     string         `json:"thought"`
	Action      string         `json:"action,omitempty"`
	ActionInput string         `json:"action_input,omitempty"`
	FinalAnswer string         `json:"final_answer,omitempty"`
	Outcome     *ActionOutcome `json:"outcome,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// HasAction reports whether the step requested a tool.
func (s ReasoningStep) HasAction() bool { return s.Action != "" }

// HasFinalAnswer reports whether the model declared its answer in this step.
func (s ReasoningStep) HasFinalAnswer() bool { return s.FinalAnswer != "" }

// ReasoningTrace is an append-only log of reasoning steps for a single run.
type ReasoningTrace struct {
	steps []ReasoningStep
}

// Append adds a step to the end of the trace.
func (t *ReasoningTrace) Append(step ReasoningStep) {
	t.steps = append(t.steps, step)
}

// Len returns the number of recorded steps.
func (t *ReasoningTrace) Len() int { return len(t.steps) }

// Last returns the most recent step.
func (t *ReasoningTrace) Last() (ReasoningStep, bool) {
	if len(t.steps) == 0 {
		return ReasoningStep{}, false
	}
	return t.steps[len(t.steps)-1], true
}

// Steps returns a copy of the recorded steps.
func (t *ReasoningTrace) Steps() []ReasoningStep {
	out := make([]ReasoningStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// FailureTally counts repeated failures keyed by "action:input".
type FailureTally struct {
	counts map[string]int
	order  []string
}

// NewFailureTally builds an empty tally.
func NewFailureTally() *FailureTally {
	return &FailureTally{counts: make(map[string]int)}
}

// FailureKey builds the tally key for an action/input pair.
func FailureKey(action, input string) string {
	return action + ":" + input
}

// Record increments the counter for key and returns the new count.
func (f *FailureTally) Record(key string) int {
	if _, ok := f.counts[key]; !ok {
		f.order = append(f.order, key)
	}
	f.counts[key]++
	return f.counts[key]
}

// Count returns how often key failed.
func (f *FailureTally) Count(key string) int { return f.counts[key] }

// Max returns the highest repeat count recorded.
func (f *FailureTally) Max() int {
	max := 0
	for _, c := range f.counts {
		if c > max {
			max = c
		}
	}
	return max
}

// Keys lists failed keys in first-failure order.
func (f *FailureTally) Keys() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// ValidatedAnswer is a plan-step answer that passed validation.
type ValidatedAnswer struct {
	StepNumber      int    `json:"step_number"`
	Subtask         string `json:"subtask"`
	OriginalAnswer  string `json:"original_answer"`
	ProcessedAnswer string `json:"processed_answer"`
	QualityScore    int    `json:"quality_score"`
}

// PlanResult is the output of a decomposition.
type PlanResult struct {
	Task  string          `json:"task"`
	Steps []string        `json:"steps"`
	Text  string          `json:"text"`
	Trace []ReasoningStep `json:"trace"`
}

// RunResult is returned by every Agent.Run call.
type RunResult struct {
	ID               string            `json:"id"`
	Task             string            `json:"task"`
	FinalAnswer      string            `json:"final_answer"`
	Trace            []ReasoningStep   `json:"trace"`
	Iterations       int               `json:"iterations"`
	Success          bool              `json:"success"`
	Approach         Approach          `json:"approach,omitempty"`
	Plan             []string          `json:"plan,omitempty"`
	StepResults      []*RunResult      `json:"step_results,omitempty"`
	ValidatedAnswers []ValidatedAnswer `json:"validated_answers,omitempty"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// StreamEventType distinguishes streamed payloads.
type StreamEventType string

const (
	StreamReasoningStep StreamEventType = "reasoning_step"
	StreamPlanStep      StreamEventType = "plan_step"
)

// PlanStepUpdate is emitted by orchestrators after each plan step completes.
type PlanStepUpdate struct {
	Index   int              `json:"index"`
	Total   int              `json:"total"`
	Subtask string           `json:"subtask"`
	Result  *RunResult       `json:"result"`
	Answer  *ValidatedAnswer `json:"answer,omitempty"`
}

// StreamEvent is delivered synchronously to a StreamHandler.
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Step     *ReasoningStep  `json:"step,omitempty"`
	PlanStep *PlanStepUpdate `json:"plan_step,omitempty"`
}

// StreamHandler receives events on the caller's goroutine. A nil handler
// disables streaming.
type StreamHandler func(StreamEvent)

// Emit invokes h when it is set.
func (h StreamHandler) Emit(event StreamEvent) {
	if h != nil {
		h(event)
	}
}
