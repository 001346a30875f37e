package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	stageDurationBuckets      = []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}
	completionDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
)

// Metrics holds the Prometheus instruments for pipeline runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	StageExecutionsTotal     *prometheus.CounterVec
	StageDuration            *prometheus.HistogramVec
	WorkflowCompletionsTotal *prometheus.CounterVec
	CompletionCallsTotal     *prometheus.CounterVec
	CompletionDuration       *prometheus.HistogramVec
	CompletionTokensTotal    *prometheus.CounterVec
	GeneratedFilesTotal      prometheus.Counter
}

// InitMetrics creates and registers all instruments on reg.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeforge_stage_executions_total",
			Help: "Total number of stage executions by final status.",
		}, []string{"stage", "status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeforge_stage_duration_seconds",
			Help:    "Stage execution duration in seconds.",
			Buckets: stageDurationBuckets,
		}, []string{"stage"}),
		WorkflowCompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeforge_workflow_completions_total",
			Help: "Total number of pipeline runs by terminal status.",
		}, []string{"status"}),
		CompletionCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeforge_completion_calls_total",
			Help: "Total number of text completion calls.",
		}, []string{"backend", "status"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeforge_completion_duration_seconds",
			Help:    "Text completion call duration in seconds.",
			Buckets: completionDurationBuckets,
		}, []string{"backend"}),
		CompletionTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeforge_completion_tokens_total",
			Help: "Tokens exchanged with the completion service.",
		}, []string{"backend", "direction"}),
		GeneratedFilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeforge_generated_files_total",
			Help: "Total number of files produced by code generation.",
		}),
	}

	reg.MustRegister(
		m.StageExecutionsTotal,
		m.StageDuration,
		m.WorkflowCompletionsTotal,
		m.CompletionCallsTotal,
		m.CompletionDuration,
		m.CompletionTokensTotal,
		m.GeneratedFilesTotal,
	)
	return m
}

// RecordStage records one stage attempt.
func (m *Metrics) RecordStage(stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageExecutionsTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordWorkflowCompletion records a run reaching a terminal status.
func (m *Metrics) RecordWorkflowCompletion(status string) {
	if m == nil {
		return
	}
	m.WorkflowCompletionsTotal.WithLabelValues(status).Inc()
}

// RecordCompletion records one call to the completion service.
func (m *Metrics) RecordCompletion(backend string, err error, duration time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CompletionCallsTotal.WithLabelValues(backend, status).Inc()
	m.CompletionDuration.WithLabelValues(backend).Observe(duration.Seconds())
	m.CompletionTokensTotal.WithLabelValues(backend, "input").Add(float64(inputTokens))
	m.CompletionTokensTotal.WithLabelValues(backend, "output").Add(float64(outputTokens))
}

// RecordGeneratedFiles adds n generated files.
func (m *Metrics) RecordGeneratedFiles(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.GeneratedFilesTotal.Add(float64(n))
}

// ServeMetrics exposes the registry on addr at /metrics until ctx is done.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
