package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/progress"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/scanner"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/facts"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/workspace"
)

// env is the per-invocation state shared by commands.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	format output.Format
	langs  []parser.Language

	// progress receives ticks from every load and reload of a workspace
	// built by this env. Nil between loads.
	progress atomic.Pointer[progress.Tracker]
}

// newEnv loads configuration, applies global flags over it and installs
// the logger.
func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	langs, err := parser.ParseLanguages(c.StringSlice("lang"))
	if err != nil {
		return nil, err
	}
	if c.Bool("oracle") {
		cfg.Analysis.Oracle = true
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}

	format := cfg.Output.Format
	if f := c.String("format"); f != "" {
		format = f
	}
	if c.Bool("no-color") || !cfg.Output.Color {
		color.NoColor = true
	}

	level := cfg.LogLevel()
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &env{cfg: cfg, logger: logger, format: output.ParseFormat(format), langs: langs}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Find()
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// formatter writes to --output, or the app writer when unset.
func (e *env) formatter(c *cli.Context) (*output.Formatter, error) {
	colored := !color.NoColor
	if path := c.String("output"); path != "" {
		return output.NewFormatter(e.format, path, colored)
	}
	return output.NewWriterFormatter(e.format, c.App.Writer, colored), nil
}

// status writes human messages to the error stream so they never mix with
// report output.
func status(c *cli.Context) *output.Formatter {
	return output.NewWriterFormatter(output.FormatText, c.App.ErrWriter, !color.NoColor)
}

// scan expands paths into absolute source file names, keeping only the
// languages selected by --lang.
func (e *env) scan(paths []string) ([]string, error) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		abs[i] = a
	}
	files, err := scanner.NewScanner(e.cfg).ScanPaths(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan paths: %w", err)
	}
	return scanner.FilterByLanguage(files, e.langs...), nil
}

// workspaceOptions builds load options from config and global flags.
// root anchors the oracle.
func (e *env) workspaceOptions(c *cli.Context, root string) ([]workspace.Option, error) {
	opts, err := workspace.FromConfig(e.cfg, root)
	if err != nil {
		return nil, err
	}
	opts = append(opts, workspace.WithLogger(e.logger))

	for _, path := range c.StringSlice("facts") {
		doc, err := readFacts(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, workspace.WithFacts(doc))
	}
	return opts, nil
}

func readFacts(path string) (*facts.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open facts: %w", err)
	}
	defer f.Close()
	doc, err := facts.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// tracker shows a progress bar for text output only, so structured output
// on a terminal stays clean.
func (e *env) tracker(label string, total int) *progress.Tracker {
	if e.format.Structured() {
		return progress.NewQuiet(label, total)
	}
	return progress.NewTracker(label, total)
}

func (e *env) tick() { e.progress.Load().Tick() }

// load scans paths and builds a workspace over them.
func (e *env) load(c *cli.Context, paths []string) (*workspace.Workspace, error) {
	return e.loadWith(c, paths)
}

// loadWith is load with options applied after the configured ones.
func (e *env) loadWith(c *cli.Context, paths []string, extra ...workspace.Option) (*workspace.Workspace, error) {
	files, err := e.scan(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 && len(c.StringSlice("facts")) == 0 {
		return nil, fmt.Errorf("no source files found")
	}

	root, err := filepath.Abs(paths[0])
	if err != nil {
		return nil, err
	}
	opts, err := e.workspaceOptions(c, root)
	if err != nil {
		return nil, err
	}

	opts = append(opts, extra...)

	opts = append(opts, workspace.WithProgress(e.tick))

	tracker := e.tracker("Indexing...", len(files))
	e.progress.Store(tracker)
	ws, err := workspace.Load(c.Context, files, opts...)
	e.progress.Store(nil)
	if err != nil {
		tracker.FinishSuccess()
		return nil, err
	}
	if errs := ws.Errors(); errs.HasErrors() {
		tracker.FinishError(errs.Len())
	} else {
		tracker.FinishSuccess()
	}
	return ws, nil
}

// absFile cleans a file argument so it matches workspace file names.
func absFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}
	return abs, nil
}
