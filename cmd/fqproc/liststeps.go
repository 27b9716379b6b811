package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/fqproc/steps"
	"v.io/x/lib/cmdline"
)

func newCmdListSteps() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "list-steps",
		Short: "List the step types recognized by [[step]].type",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, _ []string) error {
		for _, typ := range steps.KnownTypes() {
			fmt.Println(typ)
		}
		return nil
	})
	return cmd
}
