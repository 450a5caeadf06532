package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/output"
	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			format := output.FormatTable
			if c.IsSet("output") {
				var err error
				if format, err = output.ParseFormat(c.String("output")); err != nil {
					return err
				}
			}
			return output.Print(c.App.Writer, format, buildinfo.Get())
		},
	}
}
