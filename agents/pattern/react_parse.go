package pattern

import (
	"regexp"
	"strings"
)

// parsedReply is the Thought/Action/Action Input/Final Answer structure
// pulled out of a model reply.
type parsedReply struct {
	Thought     string
	Action      string
	ActionInput string
	FinalAnswer string
	structured  bool
	finalAction bool
}

// replyField is one row of the reply parsing table. Rows run in order and
// each assigns at most one field.
type replyField struct {
	name    string
	pattern *regexp.Regexp
	assign  func(reply *parsedReply, value string)
}

var replyFields = []replyField{
	{
		name:    "thought",
		pattern: regexp.MustCompile(`(?is)thought\s*:\s*(.*?)(?:\n\s*action\s*:|\z)`),
		assign:  func(r *parsedReply, v string) { r.Thought = v },
	},
	{
		name:    "action",
		pattern: regexp.MustCompile(`(?im)^\s*action\s*:\s*(.+?)\s*$`),
		assign: func(r *parsedReply, v string) {
			r.Action = normalizeAction(v)
			r.finalAction = isFinalAnswerAction(v)
		},
	},
	{
		name:    "action_input",
		pattern: regexp.MustCompile(`(?is)action\s+input\s*:\s*(.*?)(?:\n\s*(?:observation|thought|final answer)\s*:|\z)`),
		assign:  func(r *parsedReply, v string) { r.ActionInput = trimQuotes(v) },
	},
	{
		// Greedy prefix so the last marker in the reply wins.
		name:    "final_answer",
		pattern: regexp.MustCompile(`(?is)^.*final\s+answer\s*:\s*(.*?)\s*\z`),
		assign:  func(r *parsedReply, v string) { r.FinalAnswer = trimQuotes(v) },
	},
}

var actionLine = regexp.MustCompile(`(?im)^\s*action\s*:`)

// parseReply extracts the reasoning structure from raw. When no structure is
// present the whole reply becomes the thought.
func parseReply(raw string) parsedReply {
	var reply parsedReply
	for _, field := range replyFields {
		match := field.pattern.FindStringSubmatch(raw)
		if len(match) < 2 {
			continue
		}
		reply.structured = true
		field.assign(&reply, strings.TrimSpace(match[1]))
	}
	if !reply.structured {
		reply.Thought = strings.TrimSpace(raw)
		return reply
	}
	// "Action: Final Answer" carries the answer in its input.
	if reply.finalAction {
		if reply.FinalAnswer == "" {
			reply.FinalAnswer = reply.ActionInput
		}
		reply.ActionInput = ""
	}
	if reply.Thought == "" {
		if loc := actionLine.FindStringIndex(raw); loc != nil {
			reply.Thought = strings.TrimSpace(raw[:loc[0]])
		}
	}
	return reply
}

// normalizeAction strips decoration models like to put around tool names and
// maps "none"-style answers to no action.
func normalizeAction(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "`*[]\"' ")
	switch strings.ToLower(value) {
	case "", "none", "n/a", "na", "null", "no action", "final answer", "finish":
		return ""
	}
	return value
}

func isFinalAnswerAction(value string) bool {
	value = strings.Trim(strings.TrimSpace(value), "`*[]\"' ")
	return strings.EqualFold(value, "final answer") || strings.EqualFold(value, "finish")
}

func trimQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return strings.TrimSpace(value[1 : len(value)-1])
		}
	}
	return value
}

var completionMarker = regexp.MustCompile(`(?i)final\s+answer\s*:`)

// hasCompletionMarker reports whether text declares a final answer.
func hasCompletionMarker(text string) bool {
	return completionMarker.MatchString(text)
}

// answerAfterMarker returns the text following the last completion marker.
func answerAfterMarker(text string) (string, bool) {
	locs := completionMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return "", false
	}
	last := locs[len(locs)-1]
	return strings.TrimSpace(text[last[1]:]), true
}
