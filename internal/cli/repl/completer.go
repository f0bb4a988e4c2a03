package repl

import (
	"sort"
	"strings"
)

// Command describes one command line accepted by the Executor.
type Command struct {
	// Name is the first word.
	Name string
	// Usage shows the arguments, e.g. "rect X1 Y1 X2 Y2".
	Usage string
	Help  string
}

// builtins are handled by the REPL itself.
var builtins = []Command{
	{Name: "help", Usage: "help [PREFIX]", Help: "list commands"},
	{Name: "history", Usage: "history", Help: "show entered lines"},
	{Name: "exit", Usage: "exit", Help: "leave the prompt"},
}

// Completer matches command names by prefix.
type Completer struct {
	commands []Command
}

// NewCompleter creates a Completer over commands plus the built-ins,
// sorted by name.
func NewCompleter(commands []Command) *Completer {
	all := append(append([]Command(nil), commands...), builtins...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return &Completer{commands: all}
}

// Complete returns the commands whose name starts with prefix.
func (c *Completer) Complete(prefix string) []Command {
	var out []Command
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd.Name, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
