package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexcodex/orchestrate/framework"
)

// failurePhrases reject a step answer outright.
var failurePhrases = []string{
	"unable to complete",
	"insufficient data",
	"error",
	"failed",
	"please provide",
	"no results found",
}

const (
	noValidAnswers   = "The task could not be completed: none of the steps produced a valid answer."
	partsSummaryLine = "Summary: each part of the request is answered above."
	truncateLength   = 100
)

// StepFlavor selects how an answer is extracted and scored.
type StepFlavor string

const (
	FlavorCalculation StepFlavor = "calculation"
	FlavorTime        StepFlavor = "time"
	FlavorSearch      StepFlavor = "search"
	FlavorGeneral     StepFlavor = "general"
)

type flavorRule struct {
	flavor  StepFlavor
	pattern *regexp.Regexp
}

// flavorRules are checked in order; calculation wins over time, time over
// search.
var flavorRules = []flavorRule{
	{FlavorCalculation, regexp.MustCompile(`(?i)\b(calculate|compute|sum|total|multiply|divide|add|subtract|product|square\s+root|percent(?:age)?)\b|\d\s*[-+*/^%]\s*\d`)},
	{FlavorTime, regexp.MustCompile(`(?i)\b(time|date|today|year|day|clock|timezone)\b`)},
	{FlavorSearch, regexp.MustCompile(`(?i)\b(search|find|look\s+up|who|what|where|which|when|capital|president)\b`)},
}

var (
	numberPattern  = regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d+)?`)
	formattedField = regexp.MustCompile(`"formatted"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	snippetField   = regexp.MustCompile(`"snippet"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	digitPattern   = regexp.MustCompile(`\d`)
	letterPattern  = regexp.MustCompile(`\pL`)
)

// FlavorOf classifies a subtask for extraction and scoring.
func FlavorOf(subtask string) StepFlavor {
	for _, rule := range flavorRules {
		if rule.pattern.MatchString(subtask) {
			return rule.flavor
		}
	}
	return FlavorGeneral
}

// ValidateStep checks a step result and, when it passes, returns the
// extracted answer with its quality score.
func ValidateStep(stepNumber int, subtask string, result *framework.RunResult) (framework.ValidatedAnswer, bool) {
	if result == nil || !result.Success {
		return framework.ValidatedAnswer{}, false
	}
	answer := strings.TrimSpace(result.FinalAnswer)
	if answer == "" || containsAny(answer, failurePhrases) {
		return framework.ValidatedAnswer{}, false
	}
	flavor := FlavorOf(subtask)
	return framework.ValidatedAnswer{
		StepNumber:      stepNumber,
		Subtask:         subtask,
		OriginalAnswer:  result.FinalAnswer,
		ProcessedAnswer: ExtractAnswer(flavor, answer),
		QualityScore:    QualityScore(flavor, answer),
	}, true
}

// ExtractAnswer pulls the useful part out of answer for flavor.
func ExtractAnswer(flavor StepFlavor, answer string) string {
	switch flavor {
	case FlavorCalculation:
		if nums := numberPattern.FindAllString(answer, -1); len(nums) > 0 {
			return nums[len(nums)-1]
		}
	case FlavorTime:
		if m := formattedField.FindStringSubmatch(answer); m != nil {
			return m[1]
		}
	case FlavorSearch:
		if m := snippetField.FindStringSubmatch(answer); m != nil {
			return m[1]
		}
	}
	return truncate(answer, truncateLength)
}

// QualityScore rates answer on a 0-10 scale.
func QualityScore(flavor StepFlavor, answer string) int {
	score := 5
	if containsAny(answer, failurePhrases) {
		score -= 3
	}
	if len(answer) > 20 {
		score += 2
	}
	hasDigit := digitPattern.MatchString(answer)
	if hasDigit {
		score++
	}
	if letterPattern.MatchString(answer) {
		score++
	}
	switch flavor {
	case FlavorCalculation:
		if hasDigit {
			score += 2
		}
	case FlavorTime:
		if strings.Contains(answer, `"formatted"`) {
			score += 2
		}
	case FlavorSearch:
		if strings.Contains(strings.ToLower(answer), "results") {
			score += 2
		}
	}
	return clamp(score, 0, 10)
}

// AggregateAnswers joins validated answers into the orchestrator's final
// answer.
func AggregateAnswers(task string, answers []framework.ValidatedAnswer) string {
	switch len(answers) {
	case 0:
		return noValidAnswers
	case 1:
		return answers[0].ProcessedAnswer
	}
	lines := make([]string, 0, len(answers)+1)
	for i, answer := range answers {
		lines = append(lines, fmt.Sprintf("Part %d: %s", i+1, answer.ProcessedAnswer))
	}
	if HasConjunction(task) {
		lines = append(lines, partsSummaryLine)
	}
	return strings.Join(lines, "\n")
}

// OverallSuccess decides whether enough parts of task were answered. A task
// with n conjunctions is estimated to have n+1 parts, and at least half of
// them (rounded up) need a validated answer.
func OverallSuccess(task string, answers []framework.ValidatedAnswer) bool {
	if len(answers) == 0 {
		return false
	}
	if !HasConjunction(task) {
		return true
	}
	parts := CountConjunctions(task) + 1
	return len(answers) >= (parts+1)/2
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
