package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes refscope's queries
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "refscope": {
        "command": "refscope",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - find_dead_code      Bindings nothing refers to
  - can_safely_delete   Whether a binding can be removed, and what blocks it
  - analyze_usage       Every use of a binding, by kind and file
  - resolve_reference   The binding an identifier at a position refers to
  - file_dependencies   Files one file uses and is used by
  - dependency_graph    File graph with fan-in, fan-out and cycles`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the MCP registry server.json and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, string(data))
		return err
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, e.cfg, e.logger)
	return server.Run(c.Context)
}
