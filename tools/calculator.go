package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/lexcodex/orchestrate/framework"
)

// ErrNoExpression is returned when the input holds nothing to evaluate.
var ErrNoExpression = errors.New("no arithmetic expression found")

// CalculationResult is the structured value returned by CalculatorTool.
type CalculationResult struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
}

// String renders the value without a trailing ".0" for whole numbers.
func (r CalculationResult) String() string {
	return formatNumber(r.Value)
}

// CalculatorTool evaluates arithmetic found in free-form input.
type CalculatorTool struct{}

var (
	arithmeticSpan  = regexp.MustCompile(`[-+*/%^().\d\s]*\d[-+*/%^().\d\s]*`)
	operatorAliases = strings.NewReplacer("×", "*", "÷", "/", "**", "^")
	multiplyX       = regexp.MustCompile(`(\d)\s*[xX]\s*(\d)`)
)

func (t *CalculatorTool) Name() string { return "calculator" }
func (t *CalculatorTool) Description() string {
	return "Evaluates arithmetic expressions such as 15 * 7 + 32."
}
func (t *CalculatorTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{"type": "string", "description": "arithmetic expression"},
		},
	}
}

func (t *CalculatorTool) Match(prompt string) bool { return framework.LooksArithmetic(prompt) }

func (t *CalculatorTool) Priority(prompt string) framework.Priority {
	if framework.LooksArithmetic(prompt) {
		return framework.PriorityHigh
	}
	return framework.PriorityLow
}

func (t *CalculatorTool) Call(ctx context.Context, input string, tc framework.ToolContext) (any, error) {
	expression := ExtractExpression(input)
	if expression == "" {
		return nil, ErrNoExpression
	}
	value, err := Evaluate(expression)
	if err != nil {
		return nil, err
	}
	return CalculationResult{Expression: expression, Value: value}, nil
}

func (t *CalculatorTool) FormatResult(result any) string {
	switch v := result.(type) {
	case CalculationResult:
		return v.String()
	case *CalculationResult:
		return v.String()
	default:
		return fmt.Sprint(result)
	}
}

// ExtractExpression returns the longest arithmetic span of input that
// contains an operator, or the lone number when there is none.
func ExtractExpression(input string) string {
	normalized := multiplyX.ReplaceAllString(operatorAliases.Replace(input), "$1*$2")
	best := ""
	bestHasOp := false
	for _, span := range arithmeticSpan.FindAllString(normalized, -1) {
		span = strings.Trim(strings.TrimSpace(span), ".")
		if span == "" {
			continue
		}
		hasOp := strings.ContainsAny(strings.TrimLeft(span, "-("), "+-*/%^")
		if hasOp && !bestHasOp || hasOp == bestHasOp && len(span) > len(best) {
			best, bestHasOp = span, hasOp
		}
	}
	return strings.TrimSpace(best)
}

// Evaluate computes an arithmetic expression.
func Evaluate(expression string) (float64, error) {
	program, err := expr.Compile(expression)
	if err != nil {
		return 0, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	var value float64
	switch v := out.(type) {
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case float64:
		value = v
	default:
		return 0, fmt.Errorf("expression %q is not numeric", expression)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("evaluate %q: division by zero", expression)
	}
	return value, nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
