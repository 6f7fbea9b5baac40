package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
)

func scopesCmd() *cli.Command {
	return &cli.Command{
		Name:  "scopes",
		Usage: "Show the scope tree and bindings of one file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "File to inspect"},
		},
		Action: runScopesCmd,
	}
}

func runScopesCmd(c *cli.Context) error {
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

	ws, err := e.load(c, []string{file})
	if err != nil {
		return err
	}
	tracker, ok := ws.Tracker(file)
	if !ok {
		return fmt.Errorf("%s could not be extracted", file)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.Scopes(file, tracker))
}
