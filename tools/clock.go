package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/lexcodex/orchestrate/framework"
)

// TimeReport is the structured value returned by CurrentTimeTool.
type TimeReport struct {
	Timezone  string `json:"timezone"`
	ISO       string `json:"iso"`
	Formatted string `json:"formatted"`
	Weekday   string `json:"weekday"`
	Unix      int64  `json:"unix"`
	Note      string `json:"note,omitempty"`
}

// CurrentTimeTool reports the current time in an IANA zone named in the
// input, defaulting to Location (UTC when nil).
type CurrentTimeTool struct {
	Now      func() time.Time
	Location *time.Location
}

var (
	ianaZone = regexp.MustCompile(`\b[A-Z][A-Za-z_]+/[A-Z][A-Za-z_]+(?:/[A-Z][A-Za-z_]+)?\b`)
	utcZone  = regexp.MustCompile(`(?i)\b(utc|gmt)\b`)
)

// cityZones maps common city names to zones so plain prompts resolve.
var cityZones = map[string]string{
	"tokyo":         "Asia/Tokyo",
	"london":        "Europe/London",
	"paris":         "Europe/Paris",
	"berlin":        "Europe/Berlin",
	"new york":      "America/New_York",
	"los angeles":   "America/Los_Angeles",
	"san francisco": "America/Los_Angeles",
	"chicago":       "America/Chicago",
	"sydney":        "Australia/Sydney",
	"mumbai":        "Asia/Kolkata",
	"singapore":     "Asia/Singapore",
}

func (t *CurrentTimeTool) Name() string        { return "current_time" }
func (t *CurrentTimeTool) Description() string { return "Returns the current date and time, optionally for a timezone." }
func (t *CurrentTimeTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{"type": "string", "description": "IANA timezone such as Asia/Tokyo"},
		},
	}
}

func (t *CurrentTimeTool) Match(prompt string) bool { return framework.LooksTemporal(prompt) }

func (t *CurrentTimeTool) Priority(prompt string) framework.Priority {
	if framework.LooksTemporal(prompt) {
		return framework.PriorityHigh
	}
	return framework.PriorityLow
}

func (t *CurrentTimeTool) Call(ctx context.Context, input string, tc framework.ToolContext) (any, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	loc, note := t.resolveLocation(input)
	current := now().In(loc)
	return TimeReport{
		Timezone:  loc.String(),
		ISO:       current.Format(time.RFC3339),
		Formatted: current.Format("Monday, January 2, 2006 15:04:05 MST"),
		Weekday:   current.Weekday().String(),
		Unix:      current.Unix(),
		Note:      note,
	}, nil
}

func (t *CurrentTimeTool) FormatResult(result any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}

func (t *CurrentTimeTool) resolveLocation(input string) (*time.Location, string) {
	fallback := t.Location
	if fallback == nil {
		fallback = time.UTC
	}
	if name := ianaZone.FindString(input); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return fallback, fmt.Sprintf("unknown timezone %q, using %s", name, fallback)
		}
		return loc, ""
	}
	if utcZone.MatchString(input) {
		return time.UTC, ""
	}
	lower := strings.ToLower(input)
	for city, zone := range cityZones {
		if strings.Contains(lower, city) {
			if loc, err := time.LoadLocation(zone); err == nil {
				return loc, ""
			}
		}
	}
	return fallback, ""
}
