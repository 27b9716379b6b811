package steps

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// ReverseComplement reverse-complements seq and reverses qual in the
// configured segments.
type ReverseComplement struct {
	Segments []string
}

func (s *ReverseComplement) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *ReverseComplement) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).ReverseComplement()
		}
	}
	return blk, true, nil
}

func (s *ReverseComplement) NeedsSerial() bool                   { return false }
func (s *ReverseComplement) TransmitsPrematureTermination() bool { return false }
func (s *ReverseComplement) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *ReverseComplement) Clone() stage.Step {
	return &ReverseComplement{Segments: append([]string(nil), s.Segments...)}
}
