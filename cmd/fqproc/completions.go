package main

import (
	"fmt"
	"os"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"
)

func newCmdCompletions() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "completions",
		Short:    "Print a shell completion script",
		ArgsName: "shell",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("completions takes exactly one shell name (bash, zsh)")
		}
		return emitCompletions(argv[0])
	})
	return cmd
}

// emitCompletions prints a minimal completion script listing fqproc's
// subcommands. The subcommand tree has no fixed positional arguments
// beyond a config path, so there is nothing beyond name-completion to
// generate.
func emitCompletions(shell string) error {
	names := make([]string, 0, len(root().Children))
	for _, c := range root().Children {
		names = append(names, c.Name)
	}
	switch shell {
	case "bash":
		fmt.Printf("complete -W \"%s\" fqproc\n", joinSpace(names))
	case "zsh":
		fmt.Printf("compctl -k (%s) fqproc\n", joinSpace(names))
	default:
		fmt.Fprintf(os.Stderr, "fqproc: unsupported completion shell %q\n", shell)
		return fmt.Errorf("unsupported completion shell %q", shell)
	}
	return nil
}

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
