package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/progress"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/watch"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/workspace"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and report dead code after each change",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-indexing",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	ws, err := e.load(c, []string{root})
	if err != nil {
		return err
	}
	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(output.DeadCode(ws.Analyzer().FindDeadCode())); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(root, e.cfg,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(e.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.Prime(c.Context, ws.Files())

	watcher.OnChange(func(ctx context.Context, changed []string) {
		reindex(ctx, e, ws, root, changed, formatter, status(c))
	})

	// Handle Ctrl+C
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(c.App.ErrWriter, "\nStopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	status(c).Info("Watching %s (%d files)", root, len(ws.Files()))
	return watcher.Start(ctx)
}

// reindex rescans root so new and removed files are picked up, reloads the
// workspace and prints the dead code report again.
func reindex(ctx context.Context, e *env, ws *workspace.Workspace, root string, changed []string, formatter, msg *output.Formatter) {
	for _, f := range changed {
		e.logger.Info("changed", "file", f)
	}
	files, err := e.scan([]string{root})
	if err != nil {
		msg.Error("Rescan failed: %v", err)
		return
	}

	var spinner *progress.Tracker
	if !e.format.Structured() {
		spinner = progress.NewSpinner("Re-indexing...")
	}
	e.progress.Store(spinner)
	err = ws.ReloadFiles(ctx, files)
	e.progress.Store(nil)
	spinner.FinishSuccess()
	if err != nil {
		if ctx.Err() == nil {
			msg.Error("Reload failed: %v", err)
		}
		return
	}

	if err := formatter.Output(output.DeadCode(ws.Analyzer().FindDeadCode())); err != nil {
		msg.Error("Output failed: %v", err)
	}
}
