package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// CommandContext creates the exec.Cmd used by CommandSuggester.
// Tests replace it to fake the CLI.
var CommandContext = exec.CommandContext

// DefaultCommandTimeout bounds one CLI invocation when ctx has no deadline.
const DefaultCommandTimeout = 2 * time.Minute

const promptTemplate = `Break the following task into small, concrete subtasks.

Task: %s

Reply with JSON only, exactly in this form and nothing else:
{"subtasks": ["first subtask", "second subtask"]}
Use between 3 and 8 short subtask names.`

// CommandSuggester runs a text-generation CLI (by default Claude Code in
// print mode) and returns its reply.
type CommandSuggester struct {
	Binary  string   // default "claude"
	Args    []string // default -p <prompt> --output-format json
	WorkDir string
	Timeout time.Duration
}

// Suggest runs the CLI once. The prompt is appended after Args when Args is set.
func (c *CommandSuggester) Suggest(ctx context.Context, taskName string) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	binary := c.Binary
	if binary == "" {
		binary = "claude"
	}
	prompt := fmt.Sprintf(promptTemplate, taskName)
	args := []string{"-p", prompt, "--output-format", "json"}
	if len(c.Args) > 0 {
		args = append(append([]string{}, c.Args...), prompt)
	}

	cmd := CommandContext(ctx, binary, args...)
	cmd.Dir = c.WorkDir
	// Drop CLAUDECODE so the CLI does not refuse to run as a nested session.
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "CLAUDECODE=") {
			cmd.Env = append(cmd.Env, env)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out", ErrUpstream, binary)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited %d: %s", ErrUpstream, binary, exitErr.ExitCode(), truncate(stderr.String(), 500))
		}
		return nil, fmt.Errorf("%w: run %s: %v", ErrUpstream, binary, err)
	}

	return unwrapEnvelope(stdout.Bytes())
}

// unwrapEnvelope extracts the "result" field that Claude's JSON output mode
// wraps replies in. Output that is not such an envelope is returned as is.
func unwrapEnvelope(out []byte) ([]byte, error) {
	var env struct {
		Result  *string `json:"result"`
		IsError bool    `json:"is_error"`
	}
	if err := json.Unmarshal(out, &env); err != nil || env.Result == nil {
		return out, nil
	}
	if env.IsError {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, truncate(*env.Result, 500))
	}
	return []byte(*env.Result), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
