package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrCommandTimeout is returned when a command outlives its deadline.
var ErrCommandTimeout = errors.New("command timed out")

// CommandRequest captures process execution metadata.
type CommandRequest struct {
	Workdir string
	Args    []string
	Env     []string
	Input   string
	Timeout time.Duration
}

// CommandRunner executes a prepared command and returns its output streams.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (stdout string, stderr string, err error)
}

// CommandRunnerFunc adapts a function to CommandRunner.
type CommandRunnerFunc func(ctx context.Context, req CommandRequest) (string, string, error)

// Run implements CommandRunner.
func (f CommandRunnerFunc) Run(ctx context.Context, req CommandRequest) (string, string, error) {
	return f(ctx, req)
}

// LocalCommandRunner launches commands on the host, confined to Workspace
// when one is set. Output beyond MaxOutput bytes per stream is dropped.
type LocalCommandRunner struct {
	Workspace string
	MaxOutput int
}

const defaultMaxCommandOutput = 64 * 1024

// Run executes the requested command.
func (r *LocalCommandRunner) Run(ctx context.Context, req CommandRequest) (string, string, error) {
	if len(req.Args) == 0 {
		return "", "", errors.New("command arguments required")
	}
	workdir, err := r.workdir(req.Workdir)
	if err != nil {
		return "", "", err
	}
	execCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()
	cmd := exec.CommandContext(execCtx, req.Args[0], req.Args[1:]...)
	cmd.Dir = workdir
	cmd.WaitDelay = time.Second
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = defaultMaxCommandOutput
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}
	err = cmd.Run()
	if err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrCommandTimeout, req.Timeout)
	}
	return stdout.String(), stderr.String(), err
}

// workdir resolves a request workdir against the workspace root.
func (r *LocalCommandRunner) workdir(workdir string) (string, error) {
	if r == nil || r.Workspace == "" {
		return workdir, nil
	}
	root, err := filepath.Abs(r.Workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	if workdir == "" {
		return root, nil
	}
	abs := workdir
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, workdir)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("workdir %s outside workspace %s", abs, root)
	}
	return abs, nil
}

type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n...(output truncated)"
	}
	return b.buf.String()
}
