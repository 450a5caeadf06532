package command

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/cli/output"
)

// RequestCommand returns the generic backend request command.
func RequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Aliases:   []string{"req"},
		Usage:     "Call a backend endpoint with the current session",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "HTTP method (default GET, or POST with --data)",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON body, @FILE to read a file or @- for stdin",
			},
			&cli.BoolFlag{
				Name:    "unauthenticated",
				Aliases: []string{"anonymous"},
				Usage:   "Send the request without the session token",
			},
		},
		Action: request,
	}
}

func request(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("PATH is required")
	}

	call := connection.Call{
		Method:        http.MethodGet,
		Path:          c.Args().First(),
		Authenticated: !c.Bool("unauthenticated"),
	}

	if c.IsSet("data") {
		body, err := readBody(c, c.String("data"))
		if err != nil {
			return err
		}
		call.Body = body
		call.Method = http.MethodPost
	}
	if c.IsSet("method") {
		call.Method = strings.ToUpper(c.String("method"))
	}

	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	format, err := outputFormat(c, rt)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	resp, err := rt.Gateway.Do(ctx, call)
	if err != nil {
		return err
	}
	return output.Print(c.App.Writer, format, resp.Body)
}

// readBody resolves --data into a JSON document.
func readBody(c *cli.Context, data string) (json.RawMessage, error) {
	var raw []byte
	switch {
	case data == "@-":
		b, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("read body from stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
