package repl

import (
	"sort"
	"strings"
)

// builtins are handled by the shell itself.
var builtins = []string{"exit", "help", "history", "quit"}

// Completer suggests commands for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer for the given command paths (such
// as "session status") plus the shell builtins.
func NewCompleter(commands []string) *Completer {
	all := append(append([]string(nil), commands...), builtins...)
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Commands returns every known command.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}
