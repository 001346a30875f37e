package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

const promptPlaceholder = "{{PROMPT}}"

// CommandClient runs a CLI tool per completion. The command template must
// contain {{PROMPT}}, which is replaced by the shell-quoted prompt.
type CommandClient struct {
	template string
	timeout  time.Duration
	// Counter estimates token usage, since CLI tools do not report it.
	Counter func(string) int
}

// NewCommandClient validates the template and returns a client.
func NewCommandClient(template string, timeout time.Duration) (*CommandClient, error) {
	if !strings.Contains(template, promptPlaceholder) {
		return nil, fmt.Errorf("cli command must contain %s placeholder", promptPlaceholder)
	}
	if _, err := shlex.Split(strings.ReplaceAll(template, promptPlaceholder, "test")); err != nil {
		return nil, fmt.Errorf("cli command: invalid template: %w", err)
	}
	return &CommandClient{template: template, timeout: timeout, Counter: CountTokens}, nil
}

// Validate checks that the command exists in PATH.
func (c *CommandClient) Validate() error {
	args, err := c.expand("test")
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("cli command %q not found in PATH", args[0])
	}
	return nil
}

// Complete runs the command with the system prompt prepended to the prompt
// and returns its trimmed stdout.
func (c *CommandClient) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	args, err := c.expand(prompt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withAgentTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if agentTimedOut(ctx) {
			return nil, NewTimeoutError(c.timeout, args[0])
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("cli command exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("running cli command: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	count := c.Counter
	if count == nil {
		count = CountTokens
	}
	return &Response{
		Text:  text,
		Usage: Usage{InputTokens: count(prompt), OutputTokens: count(text)},
	}, nil
}

func (c *CommandClient) expand(prompt string) ([]string, error) {
	expanded := strings.ReplaceAll(c.template, promptPlaceholder, quoteForShlex(prompt))
	args, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("expanding cli command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("cli command expands to nothing")
	}
	return args, nil
}

// quoteForShlex single-quotes s so it survives shlex splitting as one
// argument: don't -> 'don'\''t'.
func quoteForShlex(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
