package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/config"
	"github.com/example/violation-audit/internal/events"
)

const defaultDebounce = 300 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audits whenever the artifacts file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			return watchArtifacts(cmd.Context(), cfg, cmd.OutOrStdout(), a.log(), debounce)
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period after the last change before re-running")

	return cmd
}

// watchArtifacts runs the pipeline once if the artifacts file exists, then again after
// every burst of writes to it, until ctx is done. Failed runs are logged and do not stop
// the watch.
func watchArtifacts(ctx context.Context, cfg config.RuntimeConfig, out io.Writer, logger *slog.Logger, debounce time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	target, err := filepath.Abs(cfg.Artifacts)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching artifacts", "path", target)

	runOnce := func() {
		outcome, err := executeRun(ctx, cfg, events.NewEmitter(out), logger)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("audit run failed", "error", err)
			}
			return
		}
		logger.Info("audit run complete", "passed", outcome.Summary.Passed, "failed", outcome.Summary.Failed, "errored", outcome.Summary.Errored)
	}

	if _, err := os.Stat(target); err == nil {
		runOnce()
	}

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
