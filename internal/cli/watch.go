package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/progress"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline whenever a requirement document changes",
	Long: `Watch prompts_dir and run the full pipeline each time one of the configured
prompt files is created or written. Bursts of changes are debounced into a
single run. Stop with Ctrl+C.`,
	Example: `  codeforge watch
  codeforge watch --debounce 2s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", cfg.PromptsDir)

		err = watchPrompts(ctx, cfg.PromptsDir, cfg.PromptFiles, debounce, a.logger, func(ctx context.Context) {
			display := progress.NewDisplay(out, progress.DetectTerminalCapabilities())
			summary, err := a.runPipeline(ctx, "", display)
			if err != nil {
				a.logger.Error("pipeline did not start", zap.Error(err))
				return
			}
			printSummary(out, summary)
		})
		if err != nil {
			return clierrors.WrapWithMessage(err, clierrors.Runtime, "watching prompts")
		}
		return nil
	},
}

func init() {
	watchCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period before a change triggers a run")
}

// watchPrompts calls run after changes to any of files inside dir settle
// for debounce. Runs never overlap: changes seen during a run trigger one
// more run afterwards. It returns when ctx is done.
func watchPrompts(ctx context.Context, dir string, files []string, debounce time.Duration, logger *zap.Logger, run func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	watched := make(map[string]bool, len(files))
	for _, f := range files {
		watched[f] = true
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				logger.Debug("prompt file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			run(ctx)
		}
	}
}
