// fqproc is a configurable batch processor for FASTQ/FASTA/BAM
// sequencing reads: a TOML configuration names one or more input
// segments, a linear pipeline of transformation steps, and one or more
// output sinks, and fqproc streams the inputs through the pipeline
// with bounded memory.
//
// Grounded on cmd/bio-pamtool/cmd/main.go's subcommand-tree shape
// (v.io/x/lib/cmdline) and cmd/bio-pileup/main.go's
// grail.Init/vcontext.Background boundary.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/grailbio/base/grail"
	"v.io/x/lib/cmdline"
)

const version = "0.1.0"

func main() {
	if !friendlyPanicDisabled() {
		defer friendlyPanic()
	}
	if shell := os.Getenv("COMPLETE"); shell != "" {
		emitCompletions(shell)
		os.Exit(0)
	}

	shutdown := grail.Init()
	defer shutdown()

	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(root())
}

func root() *cmdline.Command {
	return &cmdline.Command{
		Name:  "fqproc",
		Short: "Configurable batch processor for FASTQ/FASTA/BAM reads",
		Children: []*cmdline.Command{
			newCmdProcess(),
			newCmdValidate(),
			newCmdVerify(),
			newCmdTemplate(),
			newCmdCookbook(),
			newCmdListSteps(),
			newCmdVersion(),
			newCmdCompletions(),
		},
	}
}

func friendlyPanicDisabled() bool {
	return os.Getenv("NO_FRIENDLY_PANIC") == "1"
}

// friendlyPanic turns an uncaught panic into a readable stderr report
// instead of a raw Go stack trace, unless NO_FRIENDLY_PANIC=1 (the test
// harness sets this to see the original trace).
func friendlyPanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "fqproc: fatal: %v\n%s", r, debug.Stack())
		os.Exit(2)
	}
}
