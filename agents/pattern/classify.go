package pattern

import (
	"regexp"
	"strings"
)

// Complexity is the composite agent's verdict on a task.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// ClassificationRule is one row of the task classification table. Rules are
// checked in order; the first match decides.
type ClassificationRule struct {
	Name    string
	Match   func(task string) bool
	Outcome Complexity
}

var (
	bareExpression   = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:what\s+is|what's|calculate|compute|evaluate|solve)?\s*[-+*/%^().,\d\s]+\??\s*$`)
	operatorBetween  = regexp.MustCompile(`\d\s*[-+*/%^]\s*\(?\s*\d`)
	timeQuestion     = regexp.MustCompile(`(?i)\b(what\s+time|current\s+time|time\s+is\s+it|what(?:'s|\s+is)\s+(?:the\s+)?(?:date|time|day|year)|today'?s\s+date|what\s+day|what\s+year|current\s+(?:date|year|day))\b`)
	conjunctionWords = regexp.MustCompile(`(?i)\b(and|also|then|additionally|as\s+well\s+as)\b`)
	sequencedVerbs   = regexp.MustCompile(`(?i)\b(first|find|search|look\s+up|calculate|compute|compare|get|summarize|explain)\b.+\b(after\s+that|afterwards|next|finally)\b`)
)

// DefaultClassificationRules returns the stock table. Simple rules precede
// complex ones.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{Name: "arithmetic_expression", Match: isBareArithmetic, Outcome: ComplexitySimple},
		{Name: "time_question", Match: timeQuestion.MatchString, Outcome: ComplexitySimple},
		{Name: "conjunction", Match: HasConjunction, Outcome: ComplexityComplex},
		{Name: "sequenced_verbs", Match: sequencedVerbs.MatchString, Outcome: ComplexityComplex},
	}
}

// ClassifyTask runs rules over task. Unmatched tasks longer than threshold
// are complex. The name of the deciding rule is returned alongside.
func ClassifyTask(rules []ClassificationRule, task string, threshold int) (Complexity, string) {
	for _, rule := range rules {
		if rule.Match != nil && rule.Match(task) {
			return rule.Outcome, rule.Name
		}
	}
	if len(strings.TrimSpace(task)) > threshold {
		return ComplexityComplex, "length"
	}
	return ComplexitySimple, "length"
}

func isBareArithmetic(task string) bool {
	return bareExpression.MatchString(task) && operatorBetween.MatchString(task)
}

// HasConjunction reports whether task joins several requests.
func HasConjunction(task string) bool {
	return conjunctionWords.MatchString(task)
}

// CountConjunctions counts joining words in task.
func CountConjunctions(task string) int {
	return len(conjunctionWords.FindAllStringIndex(task, -1))
}
