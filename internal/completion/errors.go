package completion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports a completion call that exceeded agent_timeout.
type TimeoutError struct {
	Timeout time.Duration
	Command string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("completion timed out after %v: %s (hint: increase agent_timeout in config)", e.Timeout, e.Command)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NewTimeoutError wraps context.DeadlineExceeded.
func NewTimeoutError(timeout time.Duration, command string) *TimeoutError {
	return &TimeoutError{Timeout: timeout, Command: command, Err: context.DeadlineExceeded}
}

var errAgentTimeout = errors.New("agent_timeout exceeded")

// withAgentTimeout bounds ctx by d, or only adds cancellation when d is 0.
func withAgentTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, d, errAgentTimeout)
}

// agentTimedOut reports whether ctx ended because its own agent timeout
// fired, as opposed to a deadline or cancellation from the caller.
func agentTimedOut(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errAgentTimeout)
}
