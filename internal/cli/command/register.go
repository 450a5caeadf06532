package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
)

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:   "register",
		Usage:  "Create an account with a username and password",
		Flags:  credentialFlags(),
		Action: register,
	}
}

func register(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	username, password, err := readCredentials(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	err = withSpinner(c, "Creating account", func() error {
		return rt.Login.Register(ctx, username, password)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Account %s created. Log in with `%s login -u %s`.\n", username, buildinfo.Name, username)
	return nil
}
