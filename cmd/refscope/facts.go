package main

import (
	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/facts"
)

func factsCmd() *cli.Command {
	return &cli.Command{
		Name:      "facts",
		Usage:     "Export extracted scopes, bindings and references as a JSON fact file",
		ArgsUsage: "[path...]",
		Description: `The output validates against the fact file schema and can be loaded back
with --facts, for example to merge facts produced on another machine.`,
		Action: runFactsCmd,
	}
}

func runFactsCmd(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	ws, err := e.load(c, getPaths(c))
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return facts.Encode(formatter.Writer(), ws.Facts())
}
