package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"
)

func newCmdVersion() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "version",
		Short: "Print the fqproc version",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, _ []string) error {
		fmt.Println(version)
		return nil
	})
	return cmd
}
