// Package repl provides the interactive shell for chartered-cli.
//
// The shell keeps one runtime alive across commands, so a login made in
// the shell stays renewed while the user keeps working. Each line is
// split into arguments and handed to an Executor; exit, quit, help and
// history are handled locally.
package repl
