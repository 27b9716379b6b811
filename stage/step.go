// Package stage implements the Step operator contract and the
// StageFabric that drives CombinedBlocks through a chain of Steps
// (spec §4.5/§4.6).
//
// Ordering and reassembly is grounded on
// github.com/grailbio/base/syncqueue, used exactly as
// cmd/bio-pamtool/cmd/view.go's viewShards uses it: reader goroutines
// race to produce work keyed by an index, and a single drain goroutine
// releases it strictly in index order via OrderedQueue.Insert/Next.
// Bounded channels plus a shared github.com/grailbio/base/errors.Once
// for fatal-error propagation follow encoding/fastq/downsample.go.
package stage

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
)

// InputInfo describes the run's static input shape, passed to every
// Step's Init and Apply so a Step can make segment-aware decisions
// (e.g., "only trim read1") without the framework hard-coding segment
// names.
type InputInfo struct {
	SegmentOrder []string
}

// Step is the polymorphic contract every pipeline transformation
// implements.
type Step interface {
	// Init prepares the step. If the step itself demultiplexes reads, it
	// returns a non-nil *demux.StepSpec describing its barcode names so
	// the DemultiplexPlanner can allocate it a bit window.
	Init(info InputInfo, outputPrefix, outputDir, separator string, lastView *demux.DemultiplexView, allowOverwrite bool) (*demux.StepSpec, error)

	// Apply transforms one block, returning the (possibly same) block
	// and whether the fabric should continue pulling more input.
	Apply(blk *combined.Block, info InputInfo, blockNo uint64, view *demux.DemultiplexView) (*combined.Block, bool, error)

	// NeedsSerial reports whether this step must see every block, in
	// order, on one goroutine (true for stateful steps like Head).
	NeedsSerial() bool

	// TransmitsPrematureTermination reports whether this step may ever
	// return do_continue=false before genuine EOF (e.g., Head N).
	TransmitsPrematureTermination() bool

	// Finalize runs once after the last block and may contribute a
	// report.Fragment.
	Finalize(view *demux.DemultiplexView) (*report.Fragment, error)
}

// ParallelStep is the additional contract a Step must satisfy when
// NeedsSerial() is false: the StageFabric runs one independent clone per
// worker goroutine, since a parallel Step's internal state (if any) is
// not safe for concurrent use. Serial Steps need not implement this —
// the fabric never clones them.
type ParallelStep interface {
	Step
	Clone() Step
}

// DemultiplexStep is implemented by a Step that itself registers a
// DemultiplexBarcodes table during Init (i.e. returns a non-nil
// *demux.StepSpec). Once every Step's Init has run and the Supervisor's
// demultiplex-planning phase has compiled the full DemultiplexScheme, it
// calls BindScheme so the Step knows which bit window is its own — the
// view an ordinary Step receives in Apply is only the cumulative view
// from the *preceding* demultiplex Step, never its own.
type DemultiplexStep interface {
	Step
	BindScheme(scheme *demux.DemultiplexScheme, stepIndex int)
}
