package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariel-frischer/codeforge/internal/checkpoint"
	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/config"
	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/observability"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/publish"
	"github.com/ariel-frischer/codeforge/internal/store"
	"github.com/ariel-frischer/codeforge/internal/templates"
	"github.com/ariel-frischer/codeforge/internal/version"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

// app holds the collaborators shared by pipeline commands.
type app struct {
	cfg     *config.Configuration
	logger  *zap.Logger
	metrics *observability.Metrics
	history *store.Store

	shutdownTracing func(context.Context) error
	stopMetrics     context.CancelFunc
}

// loadConfig loads configuration and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid configuration",
				"Fix the reported field or run 'codeforge config init' to start from defaults")
		}
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "failed to load config")
	}

	if dir, _ := cmd.Flags().GetString("prompts-dir"); dir != "" {
		cfg.PromptsDir = dir
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, nil
}

// newApp builds logging, metrics, tracing and the run history store.
func newApp(ctx context.Context, cfg *config.Configuration) (*app, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "failed to create logger")
	}

	a := &app{cfg: cfg, logger: logger, stopMetrics: func() {}}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		a.metrics = observability.InitMetrics(reg)
		metricsCtx, cancel := context.WithCancel(ctx)
		a.stopMetrics = cancel
		observability.ServeMetrics(metricsCtx, cfg.MetricsAddr, reg, logger)
	}

	a.shutdownTracing, err = observability.InitTracing(ctx, cfg.Tracing, version.Version)
	if err != nil {
		a.close()
		return nil, clierrors.Wrap(err, clierrors.Runtime)
	}

	a.history, err = store.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Warn("run history disabled", zap.Error(err))
		a.history = nil
	}
	return a, nil
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.shutdownTracing(ctx)
		cancel()
	}
	a.stopMetrics()
	_ = a.logger.Sync()
}

// loadPrompts reads the configured requirement files from dir, or from the
// configured prompts_dir when dir is empty.
func (a *app) loadPrompts(dir string) ([]prompts.Info, error) {
	if dir == "" {
		dir = a.cfg.PromptsDir
	}
	docs, err := prompts.NewReader(dir, a.cfg.PromptFiles, a.logger).Load()
	if errors.Is(err, prompts.ErrNoPrompts) {
		return nil, clierrors.NewPrerequisiteError(
			fmt.Sprintf("no prompt files found in %s", dir),
			fmt.Sprintf("Create one of %v in %s", a.cfg.PromptFiles, dir),
			"Or point --prompts-dir at your requirements directory",
		)
	}
	return docs, err
}

// completionService builds the configured backend wrapped with metrics.
func (a *app) completionService() (completion.Service, error) {
	svc, err := completion.New(completion.Options{
		Backend:    a.cfg.Backend,
		APIKey:     a.cfg.APIKey,
		APIURL:     a.cfg.APIURL,
		Model:      a.cfg.Model,
		MaxTokens:  a.cfg.MaxTokens,
		CLICommand: a.cfg.CLICommand,
		Timeout:    time.Duration(a.cfg.AgentTimeout) * time.Second,
	})
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Prerequisite, "completion backend unavailable",
			"Set ANTHROPIC_API_KEY, or set backend: cli with a cli_command containing {{PROMPT}}")
	}
	if cmdClient, ok := svc.(*completion.CommandClient); ok {
		if err := cmdClient.Validate(); err != nil {
			return nil, clierrors.Wrap(err, clierrors.Prerequisite, "Install the agent CLI or fix cli_command")
		}
	}
	return &completion.Instrumented{Next: svc, Backend: a.cfg.Backend, Metrics: a.metrics, Logger: a.logger}, nil
}

// orchestrator wires the default stages and their collaborators.
func (a *app) orchestrator(display workflow.ProgressDisplay) (*workflow.Orchestrator, error) {
	svc, err := a.completionService()
	if err != nil {
		return nil, err
	}

	git := a.cfg.Git
	publisher := &publish.GitPublisher{
		OutputDir:   a.cfg.OutputDir,
		RepoURL:     git.RepoURL,
		Remote:      git.Remote,
		Branch:      git.Branch,
		Token:       git.Token,
		AuthorName:  git.AuthorName,
		AuthorEmail: git.AuthorEmail,
		Logger:      a.logger,
	}

	stages := workflow.DefaultStages(workflow.Deps{
		Completion: svc,
		Templates:  templates.New(),
		Publisher:  publisher,
		MaxItems:   a.cfg.MaxItems,
		MaxTokens:  a.cfg.MaxTokens,
	})

	opts := []workflow.Option{
		workflow.WithLogger(a.logger),
		workflow.WithMetrics(a.metrics),
		workflow.WithCheckpoints(checkpoint.New(a.cfg.CheckpointDir())),
	}
	if a.history != nil {
		opts = append(opts, workflow.WithRecorder(workflow.HistoryRecorder{Store: a.history}))
	}
	if display != nil {
		opts = append(opts, workflow.WithProgress(display))
	}
	return workflow.NewOrchestrator(stages, opts...), nil
}

// runPipeline loads the documents in dir and runs every stage.
func (a *app) runPipeline(ctx context.Context, dir string, display workflow.ProgressDisplay) (*workflow.Summary, error) {
	docs, err := a.loadPrompts(dir)
	if err != nil {
		return nil, err
	}
	o, err := a.orchestrator(display)
	if err != nil {
		return nil, err
	}
	_, summary := o.Run(observability.WithLogger(ctx, a.logger), docs)
	return summary, nil
}
