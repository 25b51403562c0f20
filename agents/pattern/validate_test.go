package pattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/orchestrate/framework"
)

func TestValidateStepRejectsFailures(t *testing.T) {
	cases := map[string]*framework.RunResult{
		"nil":           nil,
		"unsuccessful":  {FinalAnswer: "42", Success: false},
		"empty":         {FinalAnswer: "   ", Success: true},
		"error phrase":  {FinalAnswer: "An error occurred", Success: true},
		"needs input":   {FinalAnswer: "Please provide a city", Success: true},
		"nothing found": {FinalAnswer: "No results found.", Success: true},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ValidateStep(1, "calculate 6*7", res)
			assert.False(t, ok)
		})
	}
}

func TestValidateStepExtractsByFlavor(t *testing.T) {
	calc, ok := ValidateStep(1, "Calculate 6 * 7", &framework.RunResult{FinalAnswer: "6 * 7 = 42", Success: true})
	require.True(t, ok)
	assert.Equal(t, "42", calc.ProcessedAnswer)
	assert.Equal(t, 8, calc.QualityScore)

	clock, ok := ValidateStep(2, "What time is it in UTC", &framework.RunResult{
		FinalAnswer: `{"formatted": "2024-05-01 10:00:00 UTC", "timezone": "UTC"}`,
		Success:     true,
	})
	require.True(t, ok)
	assert.Equal(t, "2024-05-01 10:00:00 UTC", clock.ProcessedAnswer)
	assert.Equal(t, 10, clock.QualityScore)

	search, ok := ValidateStep(3, "Search for the capital of France", &framework.RunResult{
		FinalAnswer: `{"query": "capital of France", "results": [{"title": "Paris", "snippet": "Paris is the capital of France."}]}`,
		Success:     true,
	})
	require.True(t, ok)
	assert.Equal(t, "Paris is the capital of France.", search.ProcessedAnswer)
	assert.Equal(t, 10, search.QualityScore)

	general, ok := ValidateStep(4, "Summarize the novel", &framework.RunResult{FinalAnswer: strings.Repeat("a", 150), Success: true})
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("a", 100)+"...", general.ProcessedAnswer)
	assert.Equal(t, strings.Repeat("a", 150), general.OriginalAnswer)
}

func TestFlavorPrecedence(t *testing.T) {
	assert.Equal(t, FlavorCalculation, FlavorOf("calculate how many days are in a year"))
	assert.Equal(t, FlavorTime, FlavorOf("what time is it"))
	assert.Equal(t, FlavorSearch, FlavorOf("who painted the Mona Lisa"))
	assert.Equal(t, FlavorGeneral, FlavorOf("write a haiku"))
}

func TestQualityScoreIsClamped(t *testing.T) {
	inputs := []string{
		"",
		"error",
		"failed error unable to complete",
		strings.Repeat("9", 500),
		`{"formatted": "x", "results": 1}` + strings.Repeat("z", 40),
	}
	for _, flavor := range []StepFlavor{FlavorCalculation, FlavorTime, FlavorSearch, FlavorGeneral} {
		for _, input := range inputs {
			score := QualityScore(flavor, input)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 10)
		}
	}
	assert.Equal(t, 3, QualityScore(FlavorGeneral, "error"))
}

func TestAggregateAnswers(t *testing.T) {
	assert.Equal(t, noValidAnswers, AggregateAnswers("x", nil))

	one := []framework.ValidatedAnswer{{ProcessedAnswer: "Paris"}}
	assert.Equal(t, "Paris", AggregateAnswers("capital and more", one))

	two := []framework.ValidatedAnswer{{ProcessedAnswer: "Joe Biden"}, {ProcessedAnswer: "Paris"}}
	assert.Equal(t, "Part 1: Joe Biden\nPart 2: Paris\n"+partsSummaryLine, AggregateAnswers("president and capital", two))
	assert.Equal(t, "Part 1: Joe Biden\nPart 2: Paris", AggregateAnswers("president; capital", two))
}

func TestOverallSuccessThreshold(t *testing.T) {
	one := []framework.ValidatedAnswer{{}}
	two := []framework.ValidatedAnswer{{}, {}}

	assert.False(t, OverallSuccess("anything", nil))
	assert.True(t, OverallSuccess("single request", one))
	// two parts need one answer
	assert.True(t, OverallSuccess("a and b", one))
	// four parts need two answers
	assert.False(t, OverallSuccess("a and b and c and d", one))
	assert.True(t, OverallSuccess("a and b and c and d", two))
}
