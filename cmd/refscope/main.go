package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "refscope",
		Usage:   "Symbol binding, scope and reference analysis",
		Version: version,
		Description: `refscope indexes the bindings and references of a codebase and answers
questions about them: which symbols are unused, whether one can be deleted,
where it is used, and which files depend on which.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C#, Ruby`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"REFSCOPE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config, else text)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the facts cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "oracle",
				Usage: "Confirm Go references with the type checker",
			},
			&cli.StringSliceFlag{
				Name:  "lang",
				Usage: "Only analyze files in this language (repeatable): go, rust, python, typescript, tsx, javascript, java, csharp, ruby",
			},
			&cli.StringSliceFlag{
				Name:  "facts",
				Usage: "Load extra facts from a JSON fact file (repeatable)",
			},
		},
		Commands: []*cli.Command{
			deadcodeCmd(),
			safeDeleteCmd(),
			usagesCmd(),
			resolveCmd(),
			depsCmd(),
			graphCmd(),
			scopesCmd(),
			factsCmd(),
			watchCmd(),
			mcpCmd(),
			cacheCmd(),
			configCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// requireString fails when a mandatory string flag is empty.
func requireString(c *cli.Context, name string) (string, error) {
	v := c.String(name)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}
