package steps

import (
	"sort"

	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
)

// Demultiplex assigns each read an output_tag contribution by exact
// match of a configured segment's leading bytes against a barcode ->
// name table. It needs no per-worker mutable state once bound to its
// compiled demux.DemultiplexScheme, so it runs as the parallel half of
// the serial/parallel contrast alongside Head.
type Demultiplex struct {
	Segment          string
	Barcodes         map[string]string // barcode sequence -> bucket name
	IncludeNoBarcode bool

	scheme    *demux.DemultiplexScheme
	stepIndex int
}

func (s *Demultiplex) Init(_ stage.InputInfo, _, _, _ string, _ *demux.DemultiplexView, _ bool) (*demux.StepSpec, error) {
	names := make(map[string]struct{}, len(s.Barcodes))
	for _, name := range s.Barcodes {
		names[name] = struct{}{}
	}
	unique := make([]string, 0, len(names))
	for name := range names {
		unique = append(unique, name)
	}
	sort.Strings(unique)
	return &demux.StepSpec{Names: unique, IncludeNoBarcode: s.IncludeNoBarcode}, nil
}

// BindScheme satisfies stage.DemultiplexStep.
func (s *Demultiplex) BindScheme(scheme *demux.DemultiplexScheme, stepIndex int) {
	s.scheme = scheme
	s.stepIndex = stepIndex
}

func (s *Demultiplex) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	arena := blk.Segments[s.Segment]
	n := blk.ReadCount()
	if blk.OutputTag == nil {
		blk.OutputTag = make([]uint64, n)
	}
	for i := 0; i < n; i++ {
		seq := arena.View(i).Seq()
		if name, ok := matchBarcode(seq, s.Barcodes); ok {
			if tag, ok := s.scheme.Resolve(s.stepIndex, name); ok {
				blk.OutputTag[i] |= tag
			}
		}
	}
	return blk, true, nil
}

// matchBarcode returns the first barcode in the table that seq starts
// with. Go's map iteration order is randomized, so with overlapping
// prefixes (e.g. both "ACG" and "ACGT" registered) the match picked is
// not deterministic across runs.
func matchBarcode(seq []byte, barcodes map[string]string) (string, bool) {
	for barcode, name := range barcodes {
		if len(seq) >= len(barcode) && string(seq[:len(barcode)]) == barcode {
			return name, true
		}
	}
	return "", false
}

func (s *Demultiplex) NeedsSerial() bool                   { return false }
func (s *Demultiplex) TransmitsPrematureTermination() bool { return false }

func (s *Demultiplex) Finalize(view *demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}

func (s *Demultiplex) Clone() stage.Step {
	return &Demultiplex{
		Segment:          s.Segment,
		Barcodes:         s.Barcodes,
		IncludeNoBarcode: s.IncludeNoBarcode,
		scheme:           s.scheme,
		stepIndex:        s.stepIndex,
	}
}
