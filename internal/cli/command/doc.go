// Package command provides CLI command definitions for chartered-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, error printing
//   - runtime.go: Components shared by the commands of one process
//   - login.go: Password and OAuth login, provider discovery
//   - logout.go, register.go: Account commands
//   - session.go: Session status, extension and keepalive
//   - request.go: Generic backend request
//   - config.go: Configuration subcommand group
//   - shell.go: Interactive mode
//
// Commands follow a consistent pattern of resolving the runtime,
// calling the appropriate service, and formatting output.
package command
