package steps

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// TrimQualityStart trims leading bases with quality below MinQual.
type TrimQualityStart struct {
	MinQual  byte
	Segments []string
}

func (s *TrimQualityStart) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *TrimQualityStart) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).TrimQualityStart(s.MinQual)
		}
	}
	return blk, true, nil
}

func (s *TrimQualityStart) NeedsSerial() bool                   { return false }
func (s *TrimQualityStart) TransmitsPrematureTermination() bool { return false }
func (s *TrimQualityStart) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *TrimQualityStart) Clone() stage.Step {
	return &TrimQualityStart{MinQual: s.MinQual, Segments: append([]string(nil), s.Segments...)}
}

// TrimQualityEnd trims trailing bases with quality below MinQual.
type TrimQualityEnd struct {
	MinQual  byte
	Segments []string
}

func (s *TrimQualityEnd) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *TrimQualityEnd) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).TrimQualityEnd(s.MinQual)
		}
	}
	return blk, true, nil
}

func (s *TrimQualityEnd) NeedsSerial() bool                   { return false }
func (s *TrimQualityEnd) TransmitsPrematureTermination() bool { return false }
func (s *TrimQualityEnd) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *TrimQualityEnd) Clone() stage.Step {
	return &TrimQualityEnd{MinQual: s.MinQual, Segments: append([]string(nil), s.Segments...)}
}
