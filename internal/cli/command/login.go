package command

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/output"
	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
)

// LoginCommand returns the login command and its OAuth subcommands.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Log in with a username and password",
		Flags:  credentialFlags(),
		Action: loginPassword,
		Subcommands: []*cli.Command{
			{
				Name:      "oauth",
				Usage:     "Start a login with an OAuth provider",
				ArgsUsage: "PROVIDER",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the provider page in the browser",
					},
				},
				Action: loginOAuth,
			},
			{
				Name:      "complete",
				Usage:     "Finish an OAuth login with the redirect query or URL",
				ArgsUsage: "QUERY",
				Action:    loginComplete,
			},
			{
				Name:   "providers",
				Usage:  "List the available login methods",
				Action: loginProviders,
			},
		},
	}
}

func loginPassword(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown login method %q", c.Args().First())
	}

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

	err = withSpinner(c, "Logging in", func() error {
		return rt.Login.Login(ctx, username, password)
	})
	if err != nil {
		return err
	}
	return printLoggedIn(c, rt)
}

func loginOAuth(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("PROVIDER is required")
	}
	provider := c.Args().First()

	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	rt.Navigator.setLaunch(c.Bool("open"))
	if err := rt.Login.BeginOAuth(ctx, provider); err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "After signing in you are sent back to the registry. Finish with:\n\n  %s login complete '<redirect URL or query>'\n",
		buildinfo.Name)
	return nil
}

func loginComplete(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("QUERY is required")
	}
	query := completionQuery(c.Args().First())

	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	err = withSpinner(c, "Completing login", func() error {
		return rt.Login.CompleteOAuth(ctx, query)
	})
	if err != nil {
		return err
	}
	return printLoggedIn(c, rt)
}

// completionQuery accepts either the raw query string or the full URL
// the provider redirected to.
func completionQuery(arg string) string {
	arg = strings.TrimSpace(arg)
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" && u.Host != "" {
		return "?" + u.RawQuery
	}
	return arg
}

func loginProviders(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	providers, err := rt.Login.Providers(ctx)
	if err != nil {
		return err
	}

	format, err := outputFormat(c, rt)
	if err != nil {
		return err
	}
	return output.Print(c.App.Writer, format, providers)
}

func printLoggedIn(c *cli.Context, rt *Runtime) error {
	s := rt.Store.Current()
	if s == nil {
		return fmt.Errorf("login did not install a session")
	}
	fmt.Fprintf(c.App.Writer, "Logged in as %s. Session expires %s.\n",
		s.UserID, s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
