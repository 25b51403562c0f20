package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/orchestrate/framework"
)

type recordingRunner struct {
	requests []framework.CommandRequest
	stdout   string
	stderr   string
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, req framework.CommandRequest) (string, string, error) {
	r.requests = append(r.requests, req)
	return r.stdout, r.stderr, r.err
}

func TestCodeInterpreterRunsFencedBlocks(t *testing.T) {
	runner := &recordingRunner{stdout: "42\n"}
	tool := &CodeInterpreterTool{Runner: runner}

	res, err := tool.Call(context.Background(), "Run this:\n```python\nprint(6 * 7)\n```", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", tool.FormatResult(res))
	require.Len(t, runner.requests, 1)
	assert.Equal(t, []string{"python3", "-c", "print(6 * 7)\n"}, runner.requests[0].Args)
	assert.Equal(t, 10*time.Second, runner.requests[0].Timeout)

	_, err = tool.Call(context.Background(), "```bash\necho hi\n```", nil)
	require.NoError(t, err)
	assert.Equal(t, "sh", runner.requests[1].Args[0])
}

func TestCodeInterpreterErrors(t *testing.T) {
	runner := &recordingRunner{stderr: "NameError: name 'x' is not defined", err: errors.New("exit status 1")}
	tool := &CodeInterpreterTool{Runner: runner, Timeout: time.Second}

	_, err := tool.Call(context.Background(), "```ruby\nputs 1\n```", nil)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = tool.Call(context.Background(), "```python\n\n```", nil)
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = tool.Call(context.Background(), "print(x)", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NameError")
	assert.Equal(t, time.Second, runner.requests[0].Timeout)
}

func TestCodeInterpreterFormatsStderr(t *testing.T) {
	tool := &CodeInterpreterTool{}
	assert.Equal(t, "(no output)", tool.FormatResult(CodeOutput{}))
	assert.Equal(t, "ok\nstderr: warn", tool.FormatResult(CodeOutput{Stdout: "ok\n", Stderr: "warn"}))
}

func TestCodeInterpreterWithLocalShell(t *testing.T) {
	tool := &CodeInterpreterTool{Runner: &framework.LocalCommandRunner{Workspace: t.TempDir()}}
	res, err := tool.Call(context.Background(), "```sh\necho hello\n```", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", tool.FormatResult(res))
}
