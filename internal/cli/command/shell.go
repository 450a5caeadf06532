package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/config"
	"github.com/yndnr/chartered-cli/internal/cli/repl"
	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
	"github.com/yndnr/chartered-cli/internal/storage"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start an interactive shell that keeps the session alive",
		Action: shell,
	}
}

func shell(c *cli.Context) error {
	if nested, _ := c.App.Metadata[metaShell].(bool); nested {
		return errors.New("already in a shell")
	}

	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if err := rt.StartSync(); err != nil {
		return err
	}
	rt.Scheduler()

	if addr := rt.Config.Metrics.Address; addr != "" {
		srv, err := serveMetrics(addr, rt.Metrics, rt.Logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		fmt.Fprintf(c.App.ErrWriter, "Serving metrics on %s\n", srv.URL())
	}

	historyPath := config.HistoryPath()
	if rt.Config.Storage.Engine == storage.EngineMemory {
		historyPath = ""
	}
	history := repl.NewHistory(historyPath, repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		rt.Logger.Debug("load shell history", "error", err)
	}

	r := repl.New(shellExecutor(c, rt),
		repl.WithIO(c.App.Reader, c.App.Writer, c.App.ErrWriter),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandNames())),
		repl.WithPrompt(func() string { return shellPrompt(rt) }),
	)

	fmt.Fprintf(c.App.Writer, "%s %s. Type 'help' for commands, 'exit' to leave.\n", buildinfo.Name, buildinfo.Get().Version)
	runErr := r.Run(baseContext(c))

	if err := history.Save(); err != nil {
		rt.Logger.Warn("save shell history", "error", err)
	}
	return runErr
}

// shellExecutor runs one shell line as a command of a fresh app that
// shares the shell's runtime.
func shellExecutor(c *cli.Context, rt *Runtime) repl.Executor {
	return func(ctx context.Context, args []string) error {
		app := newApp()
		app.Metadata[metaRuntime] = rt
		app.Metadata[metaShell] = true
		app.Reader = c.App.Reader
		app.Writer = c.App.Writer
		app.ErrWriter = c.App.ErrWriter
		app.ExitErrHandler = func(*cli.Context, error) {}

		argv := append([]string{buildinfo.Name}, args...)
		if err := app.RunContext(ctx, argv); err != nil {
			PrintError(c.App.ErrWriter, err)
		}
		return nil
	}
}

func shellPrompt(rt *Runtime) string {
	if s := rt.Store.Current(); s != nil {
		return s.UserID + "@chartered> "
	}
	return "chartered> "
}

func commandNames() []string {
	var names []string
	for _, cmd := range commands() {
		names = append(names, cmd.Name)
		for _, sub := range cmd.Subcommands {
			names = append(names, cmd.Name+" "+sub.Name)
		}
	}
	return names
}
