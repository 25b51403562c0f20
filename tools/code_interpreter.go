package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lexcodex/orchestrate/framework"
)

// ErrUnsupportedLanguage is returned for code in a language without an
// interpreter entry.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrNoCode is returned when the input holds no code.
var ErrNoCode = errors.New("no code provided")

// CodeOutput is the structured value returned by CodeInterpreterTool.
type CodeOutput struct {
	Language string `json:"language"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr,omitempty"`
}

// DefaultInterpreters maps fence languages to the command that runs a
// program passed as the final argument.
func DefaultInterpreters() map[string][]string {
	return map[string][]string{
		"python": {"python3", "-c"},
		"sh":     {"sh", "-c"},
	}
}

var languageAliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"bash":    "sh",
	"shell":   "sh",
}

var fencedCode = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\n(.*?)```")

// CodeInterpreterTool runs short programs through Runner.
type CodeInterpreterTool struct {
	Runner          framework.CommandRunner
	Timeout         time.Duration
	Workdir         string
	Interpreters    map[string][]string
	DefaultLanguage string
}

func (t *CodeInterpreterTool) Name() string { return "code_interpreter" }
func (t *CodeInterpreterTool) Description() string {
	return "Runs a fenced ```python or ```sh code block and returns its output."
}
func (t *CodeInterpreterTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{"type": "string", "description": "fenced code block"},
		},
	}
}

func (t *CodeInterpreterTool) Match(prompt string) bool { return framework.LooksLikeCode(prompt) }

func (t *CodeInterpreterTool) Priority(prompt string) framework.Priority {
	if framework.LooksLikeCode(prompt) {
		return framework.PriorityHigh
	}
	return framework.PriorityLow
}

func (t *CodeInterpreterTool) Call(ctx context.Context, input string, tc framework.ToolContext) (any, error) {
	language, code := t.extract(input)
	if strings.TrimSpace(code) == "" {
		return nil, ErrNoCode
	}
	interpreters := t.interpreters()
	command, ok := interpreters[language]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedLanguage, language, strings.Join(sortedKeys(interpreters), ", "))
	}
	runner := t.Runner
	if runner == nil {
		runner = &framework.LocalCommandRunner{}
	}
	args := append(append([]string{}, command...), code)
	stdout, stderr, err := runner.Run(ctx, framework.CommandRequest{
		Workdir: t.Workdir,
		Args:    args,
		Timeout: t.timeout(),
	})
	if err != nil {
		detail := strings.TrimSpace(stderr)
		if detail != "" {
			return nil, fmt.Errorf("%s execution failed: %w: %s", language, err, detail)
		}
		return nil, fmt.Errorf("%s execution failed: %w", language, err)
	}
	return CodeOutput{Language: language, Stdout: stdout, Stderr: stderr}, nil
}

func (t *CodeInterpreterTool) FormatResult(result any) string {
	out, ok := result.(CodeOutput)
	if !ok {
		return fmt.Sprint(result)
	}
	text := strings.TrimSpace(out.Stdout)
	if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
		if text != "" {
			text += "\n"
		}
		text += "stderr: " + stderr
	}
	if text == "" {
		return "(no output)"
	}
	return text
}

// extract pulls the language and body from the first fenced block, or
// treats the whole input as code in the default language.
func (t *CodeInterpreterTool) extract(input string) (string, string) {
	language := t.DefaultLanguage
	if language == "" {
		language = "python"
	}
	if m := fencedCode.FindStringSubmatch(input); m != nil {
		if tag := strings.ToLower(m[1]); tag != "" {
			language = tag
		}
		if alias, ok := languageAliases[language]; ok {
			language = alias
		}
		return language, m[2]
	}
	return language, input
}

func (t *CodeInterpreterTool) interpreters() map[string][]string {
	if len(t.Interpreters) > 0 {
		return t.Interpreters
	}
	return DefaultInterpreters()
}

func (t *CodeInterpreterTool) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return 10 * time.Second
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
