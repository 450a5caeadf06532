package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and forget it locally",
		Action: logout,
	}
}

func logout(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	wasLoggedIn := rt.Store.Current() != nil
	if err := rt.Login.Logout(ctx); err != nil {
		return err
	}

	if wasLoggedIn {
		fmt.Fprintln(c.App.Writer, "Logged out.")
	} else {
		fmt.Fprintln(c.App.Writer, "Not logged in.")
	}
	return nil
}
