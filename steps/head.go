// Package steps implements the concrete Step set referenced throughout
// spec.md §8's scenarios: a representative slice of the hundreds of
// small filters/trimmers/extractors a full configuration can name, each
// wrapping one block.View operation or a small amount of bookkeeping
// around it.
package steps

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// Head keeps only the first N reads across the whole run, then signals
// premature termination. It must run serial: the running count is
// shared state no parallel clone could maintain correctly.
type Head struct {
	N int

	seen int
}

func NewHead(n int) *Head { return &Head{N: n} }

func (h *Head) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (h *Head) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	if blk.IsFinal {
		return blk, true, nil
	}
	n := blk.ReadCount()
	remaining := h.N - h.seen
	if remaining >= n {
		h.seen += n
		return blk, h.seen < h.N, nil
	}
	if remaining <= 0 {
		return blk.Filter(nil), false, nil
	}
	keep := make([]int, remaining)
	for i := range keep {
		keep[i] = i
	}
	h.seen += remaining
	return blk.Filter(keep), false, nil
}

func (h *Head) NeedsSerial() bool                   { return true }
func (h *Head) TransmitsPrematureTermination() bool { return true }

func (h *Head) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return &report.Fragment{
		StageLabel: "head",
		Values:     map[string]interface{}{"reads_kept": h.seen},
	}, nil
}
