package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestInitMetrics_registersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	require.NotNil(t, m)

	m.RecordStage("prevalidation", "COMPLETED", 2*time.Second)
	m.RecordWorkflowCompletion("completed")
	m.RecordCompletion("anthropic", nil, time.Second, 10, 20)
	m.RecordGeneratedFiles(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"codeforge_stage_executions_total",
		"codeforge_stage_duration_seconds",
		"codeforge_workflow_completions_total",
		"codeforge_completion_calls_total",
		"codeforge_completion_duration_seconds",
		"codeforge_completion_tokens_total",
		"codeforge_generated_files_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestMetrics_recordValues(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	m.RecordStage("guardrails", "FAILED", time.Second)
	m.RecordStage("guardrails", "FAILED", time.Second)
	m.RecordCompletion("cli", errors.New("boom"), time.Second, 5, 0)
	m.RecordGeneratedFiles(0)
	m.RecordGeneratedFiles(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageExecutionsTotal.WithLabelValues("guardrails", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionCallsTotal.WithLabelValues("cli", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.CompletionTokensTotal.WithLabelValues("cli", "input")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.GeneratedFilesTotal))
}

func TestMetrics_nilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStage("x", "COMPLETED", time.Second)
		m.RecordWorkflowCompletion("failed")
		m.RecordCompletion("anthropic", nil, time.Second, 1, 1)
		m.RecordGeneratedFiles(1)
	})
}

func TestInitTracing_disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), false, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndSpanWithError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	_, span := Tracer().Start(context.Background(), "stage.guardrails")
	EndSpanWithError(span, errors.New("rejected"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stage.guardrails", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestLoggerContext(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))

	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, LoggerFrom(ctx))
}

func TestNewLogger_invalidLevelFallsBack(t *testing.T) {
	logger, err := NewLogger("loud", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
