package steps

import (
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// TrimPolyBaseSuffix trims a homopolymer (or near-homopolymer) run off
// the 3' end of every read in the configured segments.
type TrimPolyBaseSuffix struct {
	MinLen                   int
	MaxMismatchFraction      float64
	MaxConsecutiveMismatches int
	Base                     byte
	Segments                 []string
}

func (s *TrimPolyBaseSuffix) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *TrimPolyBaseSuffix) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).TrimPolyBaseSuffix(s.MinLen, s.MaxMismatchFraction, s.MaxConsecutiveMismatches, s.Base)
		}
	}
	return blk, true, nil
}

func (s *TrimPolyBaseSuffix) NeedsSerial() bool                   { return false }
func (s *TrimPolyBaseSuffix) TransmitsPrematureTermination() bool { return false }
func (s *TrimPolyBaseSuffix) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *TrimPolyBaseSuffix) Clone() stage.Step {
	return &TrimPolyBaseSuffix{
		MinLen:                   s.MinLen,
		MaxMismatchFraction:      s.MaxMismatchFraction,
		MaxConsecutiveMismatches: s.MaxConsecutiveMismatches,
		Base:                     s.Base,
		Segments:                 append([]string(nil), s.Segments...),
	}
}

// TrimAdapterMismatchTail trims the longest suffix that Hamming-matches
// a prefix of Query, per spec §4.1.
type TrimAdapterMismatchTail struct {
	Query         []byte
	MinLen        int
	MaxMismatches int
	Segments      []string
}

func (s *TrimAdapterMismatchTail) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}

func (s *TrimAdapterMismatchTail) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	for _, name := range targetSegments(blk, s.Segments) {
		arena := blk.Segments[name]
		for i := 0; i < arena.Len(); i++ {
			arena.View(i).TrimAdapterMismatchTail(s.Query, s.MinLen, s.MaxMismatches)
		}
	}
	return blk, true, nil
}

func (s *TrimAdapterMismatchTail) NeedsSerial() bool                   { return false }
func (s *TrimAdapterMismatchTail) TransmitsPrematureTermination() bool { return false }
func (s *TrimAdapterMismatchTail) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (s *TrimAdapterMismatchTail) Clone() stage.Step {
	return &TrimAdapterMismatchTail{
		Query:         append([]byte(nil), s.Query...),
		MinLen:        s.MinLen,
		MaxMismatches: s.MaxMismatches,
		Segments:      append([]string(nil), s.Segments...),
	}
}
