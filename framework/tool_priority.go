package framework

import (
	"regexp"
	"strings"
)

// Priority ranks a tool for a prompt; higher runs first.
type Priority int

const (
	PriorityLow     Priority = 0
	PriorityNeutral Priority = 1
	PriorityHigh    Priority = 2
)

// PriorityRule ranks tools whose name contains NameContains. When Prefers
// accepts the prompt the tool is ranked high, otherwise low.
type PriorityRule struct {
	NameContains string
	Prefers      func(prompt string) bool
}

// DefaultPriorityRules is the stock name-keyed ranking table. Rows are
// checked in order and the first name hit decides.
func DefaultPriorityRules() []PriorityRule {
	return []PriorityRule{
		{NameContains: "calc", Prefers: LooksArithmetic},
		{NameContains: "search", Prefers: LooksLikeQuestion},
		{NameContains: "code", Prefers: LooksLikeCode},
		{NameContains: "time", Prefers: LooksTemporal},
		{NameContains: "clock", Prefers: LooksTemporal},
	}
}

func rulePriority(rules []PriorityRule, name, prompt string) Priority {
	lower := strings.ToLower(name)
	for _, rule := range rules {
		if rule.NameContains == "" || !strings.Contains(lower, rule.NameContains) {
			continue
		}
		if rule.Prefers != nil && rule.Prefers(prompt) {
			return PriorityHigh
		}
		return PriorityLow
	}
	return PriorityNeutral
}

var (
	arithmeticPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*[-+*/%^x×÷]\s*\(?\s*\d`)
	arithmeticWords   = regexp.MustCompile(`(?i)\b(calculate|compute|evaluate)\b`)
	questionPattern   = regexp.MustCompile(`(?i)^\s*(who|what|where|when|why|how|which|whose|is|are|does|do|can)\b|\?\s*$`)
	searchWords       = regexp.MustCompile(`(?i)\b(search|look up|lookup|find)\b`)
	codeWords         = regexp.MustCompile(`(?i)\b(code|script|program|snippet)\b`)
	temporalPattern   = regexp.MustCompile(`(?i)\b(time|date|today|year|day of the week|clock|timezone)\b`)
)

// LooksArithmetic reports arithmetic expressions or "calculate"-style wording.
func LooksArithmetic(prompt string) bool {
	return arithmeticPattern.MatchString(prompt) || arithmeticWords.MatchString(prompt)
}

// LooksLikeQuestion reports question-word prompts and explicit search wording.
func LooksLikeQuestion(prompt string) bool {
	return questionPattern.MatchString(prompt) || searchWords.MatchString(prompt)
}

// LooksLikeCode reports fenced code blocks or code wording.
func LooksLikeCode(prompt string) bool {
	return strings.Contains(prompt, "```") || codeWords.MatchString(prompt)
}

// LooksTemporal reports time/date phrasing.
func LooksTemporal(prompt string) bool {
	return temporalPattern.MatchString(prompt)
}
