package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/fqproc/config"
	"v.io/x/lib/cmdline"
)

func newCmdValidate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "validate",
		Short:    "Check a config's structural validity without running it",
		ArgsName: "config.toml",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("validate takes one config path argument, but got %v", argv)
		}
		cfg, err := config.Load(argv[0])
		if err != nil {
			return fmt.Errorf("Configuration validation failed:\n%v", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("Configuration validation failed:\n%v", err)
		}
		fmt.Println("configuration is valid")
		return nil
	})
	return cmd
}
