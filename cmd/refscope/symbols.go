package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/workspace"
)

var symbolFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "name",
		Aliases: []string{"n"},
		Usage:   "Binding name",
	},
	&cli.StringFlag{
		Name:  "file",
		Usage: "Only consider the binding defined in this file",
	},
}

func safeDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "safe-delete",
		Usage:     "Check whether a binding can be deleted without breaking references",
		ArgsUsage: "[path...]",
		Flags:     symbolFlags,
		Action:    runSafeDeleteCmd,
	}
}

func usagesCmd() *cli.Command {
	return &cli.Command{
		Name:      "usages",
		Aliases:   []string{"refs"},
		Usage:     "Show every use of a binding",
		ArgsUsage: "[path...]",
		Flags:     symbolFlags,
		Action:    runUsagesCmd,
	}
}

func resolveCmd() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve the identifier at a position to its binding",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "File containing the identifier"},
			&cli.IntFlag{Name: "line", Usage: "One-based line"},
			&cli.IntFlag{Name: "col", Usage: "One-based column in bytes"},
		},
		Action: runResolveCmd,
	}
}

// lookupBindings finds the bindings --name and --file select.
func lookupBindings(c *cli.Context, ws *workspace.Workspace) ([]scope.Binding, error) {
	name, err := requireString(c, "name")
	if err != nil {
		return nil, err
	}
	file := c.String("file")
	if file != "" {
		if file, err = absFile(file); err != nil {
			return nil, err
		}
	}
	found := ws.Lookup(name, file)
	if len(found) == 0 {
		return nil, fmt.Errorf("no binding named %q", name)
	}
	return found, nil
}

// outputReports writes one report per binding. Structured formats get a
// single document: the bare view for one binding, a list for several.
func outputReports(f *output.Formatter, reports []*output.Report) error {
	if f.Format().Structured() && len(reports) > 1 {
		data := make([]any, len(reports))
		for i, r := range reports {
			data[i] = r.RenderData()
		}
		return f.Output(data)
	}
	for _, r := range reports {
		if err := f.Output(r); err != nil {
			return err
		}
	}
	return nil
}

func runSafeDeleteCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	if _, err := requireString(c, "name"); err != nil {
		return err
	}
	ws, err := e.load(c, getPaths(c))
	if err != nil {
		return err
	}
	found, err := lookupBindings(c, ws)
	if err != nil {
		return err
	}

	a := ws.Analyzer()
	reports := make([]*output.Report, 0, len(found))
	for _, b := range found {
		reports = append(reports, output.SafeDelete(b, a.CanSafelyDelete(b)))
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return outputReports(formatter, reports)
}

func runUsagesCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	if _, err := requireString(c, "name"); err != nil {
		return err
	}
	ws, err := e.load(c, getPaths(c))
	if err != nil {
		return err
	}
	found, err := lookupBindings(c, ws)
	if err != nil {
		return err
	}

	a := ws.Analyzer()
	reports := make([]*output.Report, 0, len(found))
	for _, b := range found {
		reports = append(reports, output.Usage(b, a.AnalyzeBinding(b), a.FindAllUsages(b)))
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return outputReports(formatter, reports)
}

func runResolveCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	file, err := requireString(c, "file")
	if err != nil {
		return err
	}
	line, col := c.Int("line"), c.Int("col")
	if line < 1 || col < 1 {
		return fmt.Errorf("--line and --col are one-based and required")
	}
	if file, err = absFile(file); err != nil {
		return err
	}

	paths := getPaths(c)
	if c.Args().Len() == 0 {
		paths = []string{file}
	}
	ws, err := e.load(c, paths)
	if err != nil {
		return err
	}

	ref, ok := ws.ReferenceAt(file, uint32(line-1), uint32(col-1))
	if !ok {
		return fmt.Errorf("no identifier at %s:%d:%d", file, line, col)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.Resolution(ws.Analyzer().Index().Resolve(ref)))
}
