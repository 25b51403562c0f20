package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/orchestrate/framework"
	"github.com/lexcodex/orchestrate/persistence"
)

var (
	colorPrimary   = lipgloss.Color("39")
	colorSecondary = lipgloss.Color("86")
	colorSuccess   = lipgloss.Color("42")
	colorWarning   = lipgloss.Color("220")
	colorError     = lipgloss.Color("196")
	colorDim       = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSecondary)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	answerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// renderStep formats one streamed reasoning step.
func renderStep(step *framework.ReasoningStep) string {
	if step == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Step %d", step.Iteration)))
	if step.Thought != "" {
		b.WriteString("\n  " + dimStyle.Render("thought: ") + oneLine(step.Thought))
	}
	if step.HasAction() {
		b.WriteString("\n  " + dimStyle.Render("action: ") + step.Action)
		if step.ActionInput != "" {
			b.WriteString(" " + dimStyle.Render("← "+oneLine(step.ActionInput)))
		}
	}
	return b.String()
}

// renderPlanStep formats a completed plan step.
func renderPlanStep(update *framework.PlanStepUpdate) string {
	if update == nil {
		return ""
	}
	status := errorStyle.Render("✗ rejected")
	if update.Answer != nil {
		status = successStyle.Render(fmt.Sprintf("✓ %s (score %d)", oneLine(update.Answer.ProcessedAnswer), update.Answer.QualityScore))
	}
	return fmt.Sprintf("%s %s\n  %s", headerStyle.Render(fmt.Sprintf("[%d/%d]", update.Index+1, update.Total)), update.Subtask, status)
}

// renderResult summarizes a finished run.
func renderResult(result *framework.RunResult) string {
	if result == nil {
		return errorStyle.Render("no result")
	}
	status := successStyle.Render("success")
	if !result.Success {
		status = warningStyle.Render("incomplete")
	}
	meta := fmt.Sprintf("%s · %d iterations", status, result.Iterations)
	if result.Approach != "" {
		meta += " · " + string(result.Approach)
	}
	if result.ID != "" {
		meta += " · " + dimStyle.Render(result.ID)
	}
	return answerBoxStyle.Render(result.FinalAnswer) + "\n" + meta
}

// renderPlan lists decomposed steps.
func renderPlan(plan *framework.PlanResult) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Plan"))
	for i, step := range plan.Steps {
		b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
	}
	return b.String()
}

// renderHistory lists stored runs, newest first.
func renderHistory(records []persistence.RunRecord) string {
	if len(records) == 0 {
		return "No runs recorded."
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		mark := successStyle.Render("✓")
		if !r.Success {
			mark = errorStyle.Render("✗")
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s  %s",
			mark,
			dimStyle.Render(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Agent,
			truncateText(oneLine(r.Task), 60),
		))
	}
	return strings.Join(lines, "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
