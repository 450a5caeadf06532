package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/config"
	"github.com/yndnr/chartered-cli/internal/cli/output"
	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/core/service"
	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
	"github.com/yndnr/chartered-cli/internal/storage"
)

// App metadata keys.
const (
	metaRuntime     = "runtime"
	metaOwnsRuntime = "ownsRuntime"
	metaShell       = "shell"
)

const (
	sessionEndedHint = "Your session has ended, please log in again with `" + buildinfo.Name + " login`."
	notLoggedInHint  = "You are not logged in. Run `" + buildinfo.Name + " login` first."
	loginAgainHint   = "Start again with `" + buildinfo.Name + " login` or `" + buildinfo.Name + " login oauth PROVIDER`."
)

// App creates the CLI application.
func App() *cli.App {
	return newApp()
}

func newApp() *cli.App {
	return &cli.App{
		Name:     buildinfo.Name,
		Usage:    "Sign in to a chartered registry and keep the session alive",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Commands: commands(),
		Metadata: map[string]any{},
		After: func(c *cli.Context) error {
			return closeRuntime(c)
		},
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		LoginCommand(),
		LogoutCommand(),
		RegisterCommand(),
		SessionCommand(),
		RequestCommand(),
		ConfigCommand(),
		ShellCommand(),
		VersionCommand(),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Registry web address (default " + config.DefaultServerURL + ")",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			EnvVars: []string{"CHARTERED_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
	}
}

// loadConfig loads the config file, CHARTERED_ environment and the
// global flags, in increasing priority.
func loadConfig(c *cli.Context) (*config.CLIConfig, error) {
	overrides := make(map[string]any)
	if c.IsSet("server") {
		overrides["server.url"] = c.String("server")
	}
	if c.IsSet("output") {
		overrides["output"] = c.String("output")
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	if c.Bool("ephemeral") {
		overrides["storage.engine"] = storage.EngineMemory
	}
	return config.Load(c.String("config"), overrides)
}

// runtimeFrom returns the runtime of this process, creating it on first
// use. A runtime created here is closed when the app exits.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	rt, err := NewRuntime(cfg, c.App.ErrWriter)
	if err != nil {
		return nil, err
	}

	c.App.Metadata[metaRuntime] = rt
	c.App.Metadata[metaOwnsRuntime] = true
	return rt, nil
}

func closeRuntime(c *cli.Context) error {
	owns, _ := c.App.Metadata[metaOwnsRuntime].(bool)
	rt, ok := c.App.Metadata[metaRuntime].(*Runtime)
	if !owns || !ok {
		return nil
	}
	delete(c.App.Metadata, metaRuntime)
	delete(c.App.Metadata, metaOwnsRuntime)
	return rt.Close()
}

// outputFormat prefers an explicit --output over the configured format.
func outputFormat(c *cli.Context, rt *Runtime) (output.Format, error) {
	if c.IsSet("output") {
		return output.ParseFormat(c.String("output"))
	}
	return output.ParseFormat(rt.Config.Output)
}

// commandContext bounds one command by the gateway timeout.
func commandContext(c *cli.Context, rt *Runtime) (context.Context, context.CancelFunc) {
	return context.WithTimeout(baseContext(c), rt.Config.Gateway.Timeout)
}

func baseContext(c *cli.Context) context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// PrintError prints err for the user. Ended sessions and failed OAuth
// completions also tell the user how to log in again.
func PrintError(w io.Writer, err error) {
	var redirect *service.LoginRedirectError
	switch {
	case errors.As(err, &redirect):
		fmt.Fprintf(w, "error: %s\n", redirect.Message)
		fmt.Fprintln(w, loginAgainHint)
	case errors.Is(err, domain.ErrSessionExpired):
		fmt.Fprintf(w, "error: %s\n", domain.UserMessage(findCode(err, domain.ErrSessionExpired)))
		fmt.Fprintln(w, sessionEndedHint)
	case errors.Is(err, domain.ErrNotAuthenticated):
		fmt.Fprintf(w, "error: %s\n", errorMessage(err))
		fmt.Fprintln(w, notLoggedInHint)
	default:
		fmt.Fprintf(w, "error: %s\n", errorMessage(err))
	}
}

// errorMessage is the user message, followed by the underlying cause
// when that is not itself a coded error.
func errorMessage(err error) string {
	msg := domain.UserMessage(err)

	var de *domain.DomainError
	if !errors.As(err, &de) || de.Cause == nil {
		return msg
	}
	if domain.IsDomainError(de.Cause, "") {
		return msg
	}
	return fmt.Sprintf("%s (%v)", msg, de.Cause)
}

// findCode returns the error in err's chain carrying target's code.
func findCode(err error, target *domain.DomainError) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if de, ok := e.(*domain.DomainError); ok && de.Code == target.Code {
			return de
		}
	}
	return err
}
