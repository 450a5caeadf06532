package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/chartered-cli/internal/cli/output"
)

// readLine reads one line without its line ending. A last line without
// a newline is returned as is.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptLine shows prompt on stderr and reads the answer.
func promptLine(c *cli.Context, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(c.App.ErrWriter, prompt)
	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password from stdin (--password-stdin), a
// terminal without echo, or a piped line.
func readPassword(c *cli.Context, in *bufio.Reader) (string, error) {
	if c.Bool("password-stdin") {
		line, err := readLine(in)
		if err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return line, nil
	}

	if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.App.ErrWriter, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.App.ErrWriter)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	fmt.Fprint(c.App.ErrWriter, "Password: ")
	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

// readCredentials takes the username from --username or a prompt and
// the password from readPassword.
func readCredentials(c *cli.Context) (string, string, error) {
	in := bufio.NewReader(c.App.Reader)

	username := c.String("username")
	if username == "" {
		var err error
		if username, err = promptLine(c, in, "Username: "); err != nil {
			return "", "", err
		}
	}

	password, err := readPassword(c, in)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "Username (prompted when missing)",
		},
		&cli.BoolFlag{
			Name:  "password-stdin",
			Usage: "Read the password from stdin",
		},
	}
}

// withSpinner runs fn with a spinner on stderr when it is a terminal.
func withSpinner(c *cli.Context, message string, fn func() error) error {
	if !output.IsTerminal(c.App.ErrWriter) {
		return fn()
	}

	sp := output.NewSpinner(c.App.ErrWriter, message)
	sp.Start()
	err := fn()
	sp.Stop()
	return err
}
