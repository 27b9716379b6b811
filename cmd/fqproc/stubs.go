package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"
)

// notImplemented returns a Runner that reports a subcommand as
// recognized but not yet built, rather than letting cmdline report an
// unknown-command error for it.
func notImplemented(name string) cmdutil.RunnerFunc {
	return cmdutil.RunnerFunc(func(_ *cmdline.Env, _ []string) error {
		return fmt.Errorf("%s: not implemented in this build", name)
	})
}

func newCmdVerify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "verify",
		Short:    "Re-run a pipeline and diff its output against existing files",
		ArgsName: "config.toml",
	}
	cmd.Runner = notImplemented("verify")
	return cmd
}

func newCmdTemplate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "template",
		Short: "Print an annotated starter config.toml",
	}
	cmd.Runner = notImplemented("template")
	return cmd
}

func newCmdCookbook() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "cookbook",
		Short:    "Print a worked example config",
		ArgsName: "[N]",
	}
	cmd.Runner = notImplemented("cookbook")
	return cmd
}
