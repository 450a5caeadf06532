package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/config"
	"github.com/yndnr/chartered-cli/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (secrets masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the config file path",
				Action: configPath,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
		},
	}
}

// effectiveConfig returns the shell's config, or loads it.
func effectiveConfig(c *cli.Context) (*config.CLIConfig, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt.Config, nil
	}
	return loadConfig(c)
}

func configShow(c *cli.Context) error {
	cfg, err := effectiveConfig(c)
	if err != nil {
		return err
	}

	format := output.FormatYAML
	if c.IsSet("output") {
		if format, err = output.ParseFormat(c.String("output")); err != nil {
			return err
		}
	}
	return output.Print(c.App.Writer, format, config.Sanitize(cfg))
}

func configPath(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	fmt.Fprintln(c.App.Writer, path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(c.App.ErrWriter, "(file does not exist, defaults are used)")
	}
	return nil
}

func configValidate(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "✓ Configuration is valid")
	return nil
}
