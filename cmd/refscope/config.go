package main

import (
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file.

Examples:
  refscope config show                  # Show effective config
  refscope -c refscope.toml config show # Show config from specific file`,
				Action: runConfigShow,
			},
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a refscope configuration file for syntax errors and invalid values.

Examples:
  refscope config validate                   # Validates default config locations
  refscope -c refscope.toml config validate  # Validates specific file`,
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	out, err := cfg.TOML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func runConfigValidate(c *cli.Context) error {
	msg := output.NewWriterFormatter(output.FormatText, c.App.Writer, !color.NoColor)
	path := c.String("config")
	if path == "" {
		path = config.Find()
	}
	if path == "" {
		msg.Warning("No config file found; using defaults")
		return nil
	}
	if _, err := config.Load(path); err != nil {
		msg.Error("Configuration validation failed: %v", err)
		return err
	}
	msg.Success("Configuration valid: %s", path)
	return nil
}
