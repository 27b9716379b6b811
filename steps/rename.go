package steps

import (
	"fmt"

	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// Rename replaces each read's name with fmt.Sprintf(Template, blockNo,
// index-within-block), in the configured segments. Naming is derived
// entirely from (blockNo, index), never from mutable per-worker state,
// so the step is safely cloneable for parallel execution without any
// risk of two workers emitting the same name.
type Rename struct {
	Template string
	Segments []string
}

func (s *Rename) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *Rename) Apply(blk *combined.Block, _ stage.InputInfo, blockNo uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			newName := fmt.Sprintf(s.Template, blockNo, i)
			arena.View(i).ReplaceName([]byte(newName))
		}
	}
	return blk, true, nil
}

func (s *Rename) NeedsSerial() bool                   { return false }
func (s *Rename) TransmitsPrematureTermination() bool { return false }
func (s *Rename) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *Rename) Clone() stage.Step {
	return &Rename{Template: s.Template, Segments: append([]string(nil), s.Segments...)}
}
