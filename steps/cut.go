package steps

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// CutStart drops the first N bases (and quality bytes) of every read in
// the configured segments (all segments if Segments is empty).
type CutStart struct {
	N        int
	Segments []string
}

func (s *CutStart) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *CutStart) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).CutStart(s.N)
		}
	}
	return blk, true, nil
}

func (s *CutStart) NeedsSerial() bool                   { return false }
func (s *CutStart) TransmitsPrematureTermination() bool { return false }
func (s *CutStart) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *CutStart) Clone() stage.Step {
	return &CutStart{N: s.N, Segments: append([]string(nil), s.Segments...)}
}

// CutEnd drops the last N bases (and quality bytes).
type CutEnd struct {
	N        int
	Segments []string
}

func (s *CutEnd) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *CutEnd) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).CutEnd(s.N)
		}
	}
	return blk, true, nil
}

func (s *CutEnd) NeedsSerial() bool                   { return false }
func (s *CutEnd) TransmitsPrematureTermination() bool { return false }
func (s *CutEnd) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *CutEnd) Clone() stage.Step {
	return &CutEnd{N: s.N, Segments: append([]string(nil), s.Segments...)}
}

// MaxLen truncates every read to at most N bases, leaving shorter reads
// untouched.
type MaxLen struct {
	N        int
	Segments []string
}

func (s *MaxLen) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *MaxLen) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).MaxLen(s.N)
		}
	}
	return blk, true, nil
}

func (s *MaxLen) NeedsSerial() bool                   { return false }
func (s *MaxLen) TransmitsPrematureTermination() bool { return false }
func (s *MaxLen) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *MaxLen) Clone() stage.Step {
	return &MaxLen{N: s.N, Segments: append([]string(nil), s.Segments...)}
}
