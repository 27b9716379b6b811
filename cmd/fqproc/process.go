package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/fqproc/config"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/supervisor"
	"v.io/x/lib/cmdline"
)

func newCmdProcess() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "process",
		Short:    "Run a configured pipeline over its inputs",
		ArgsName: "config.toml",
	}
	outDir := cmd.Flags.String("out-dir", "", "Output directory; defaults to the config's own output.dir")
	allowOverwrite := cmd.Flags.Bool("allow-overwrite", false, "Allow overwriting existing output files, overriding output.allow_overwrite")
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("process takes one config path argument, but got %v", argv)
		}
		cfg, err := config.Load(argv[0])
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("Configuration validation failed:\n%v", err)
		}

		dir := *outDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		overwrite := cfg.Output.AllowOverwrite || *allowOverwrite
		if dir != "" {
			dir = filepath.Clean(dir)
		}

		ctx := vcontext.Background()
		timing := report.NewTimingCollector(1024)
		p2, err := supervisor.New(cfg).PlanDemultiplex(dir, overwrite)
		if err != nil {
			return err
		}
		p3, err := p2.StartInputs(ctx)
		if err != nil {
			return err
		}
		p4, err := p3.StartStages(timing)
		if err != nil {
			return err
		}
		p5, err := p4.StartOutput(ctx, dir, overwrite)
		if err != nil {
			return err
		}
		result := p5.Join()
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("%d error(s) during processing", len(result.Errors))
		}
		return nil
	})
	return cmd
}
