// Package completion provides the text completion backends the pipeline
// stages call: the Anthropic Messages API over HTTP, or any CLI tool driven
// through a {{PROMPT}} command template.
package completion

import (
	"context"
	"fmt"
	"time"
)

// Request is one prompt sent to the completion service.
type Request struct {
	Prompt       string
	SystemPrompt string
	// MaxTokens caps the response length. 0 uses the backend default.
	MaxTokens int
}

// Usage reports tokens exchanged for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Response is the completion text and its token usage.
type Response struct {
	Text  string
	Usage Usage
}

// Service is a blocking text completion call. Every call is attempted at
// most once; callers treat an error as terminal for the current stage.
type Service interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	APIKey     string
	APIURL     string
	Model      string
	MaxTokens  int
	CLICommand string
	Timeout    time.Duration
}

// New builds the backend named by opts.Backend.
func New(opts Options) (Service, error) {
	switch opts.Backend {
	case "anthropic", "":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic backend requires an API key (set ANTHROPIC_API_KEY)")
		}
		return NewAnthropicClient(opts), nil
	case "cli":
		return NewCommandClient(opts.CLICommand, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown completion backend %q", opts.Backend)
	}
}
