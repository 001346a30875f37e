package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ariel-frischer/codeforge/internal/observability"
)

// Instrumented records metrics and debug logs around another Service.
type Instrumented struct {
	Next    Service
	Backend string
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// Complete delegates to Next.
func (i *Instrumented) Complete(ctx context.Context, req Request) (*Response, error) {
	logger := i.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("completion request",
		zap.String("backend", i.Backend),
		zap.Int("prompt_bytes", len(req.Prompt)),
	)

	start := time.Now()
	resp, err := i.Next.Complete(ctx, req)
	elapsed := time.Since(start)

	var usage Usage
	if resp != nil {
		usage = resp.Usage
	}
	i.Metrics.RecordCompletion(i.Backend, err, elapsed, usage.InputTokens, usage.OutputTokens)

	if err != nil {
		logger.Warn("completion failed", zap.String("backend", i.Backend), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}
	logger.Debug("completion response",
		zap.String("backend", i.Backend),
		zap.Duration("elapsed", elapsed),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
	)
	return resp, nil
}
