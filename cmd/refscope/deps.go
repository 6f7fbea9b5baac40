package main

import (
	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
)

func depsCmd() *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Usage:     "List the files a file depends on and the files depending on it",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "File to inspect"},
		},
		Action: runDepsCmd,
	}
}

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Build the file dependency graph and report cycles",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fail-on-cycle",
				Usage: "Exit with an error when the graph has cycles",
			},
		},
		Action: runGraphCmd,
	}
}

func runDepsCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	file, err := requireString(c, "file")
	if err != nil {
		return err
	}
	if file, err = absFile(file); err != nil {
		return err
	}

	ws, err := e.load(c, getPaths(c))
	if err != nil {
		return err
	}
	a := ws.Analyzer()
	view := output.DependencyView{
		File:         file,
		Dependencies: a.FileDependencies(file),
		Dependents:   a.FilesDependingOn(file),
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.Dependencies(view))
}

func runGraphCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	ws, err := e.load(c, getPaths(c))
	if err != nil {
		return err
	}
	g := ws.Analyzer().DependencyGraph()

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(output.Graph(g)); err != nil {
		return err
	}
	if c.Bool("fail-on-cycle") && g.HasCycles() {
		return cli.Exit("dependency cycles found", 2)
	}
	return nil
}
