package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/workspace"
)

func deadcodeCmd() *cli.Command {
	return &cli.Command{
		Name:      "deadcode",
		Aliases:   []string{"dc"},
		Usage:     "List bindings that nothing refers to",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "kind",
				Usage: "Only report bindings of this kind (repeatable), e.g. function, method",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Never report bindings from files matching this glob (repeatable)",
			},
		},
		Action: runDeadcodeCmd,
	}
}

// deadcodeOptions turns --kind and --exclude into analyzer options. They
// apply after the configured ones, so --kind replaces dead_code.kinds.
func deadcodeOptions(c *cli.Context) ([]usage.Option, error) {
	var opts []usage.Option
	if names := c.StringSlice("kind"); len(names) > 0 {
		kinds := make([]scope.BindingKind, 0, len(names))
		for _, name := range names {
			k, ok := scope.ParseBindingKind(name)
			if !ok {
				return nil, fmt.Errorf("unknown binding kind %q", name)
			}
			kinds = append(kinds, k)
		}
		opts = append(opts, usage.WithKinds(kinds...))
	}
	if patterns := c.StringSlice("exclude"); len(patterns) > 0 {
		globs, err := usage.CompilePatterns(patterns)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usage.WithExcludes(globs...))
	}
	return opts, nil
}

func runDeadcodeCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	extra, err := deadcodeOptions(c)
	if err != nil {
		return err
	}

	ws, err := e.loadWith(c, getPaths(c), workspace.WithAnalyzerOptions(extra...))
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.DeadCode(ws.Analyzer().FindDeadCode()))
}
