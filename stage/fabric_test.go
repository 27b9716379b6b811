package stage_test

import (
	"testing"

	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func oneReadBlock(name string) *combined.Block {
	buf := []byte(name + "ACGT" + "IIII")
	a := block.NewArena(buf)
	a.AddRead(block.Read{
		Name: block.Borrowed(0, len(name)),
		Seq:  block.Borrowed(len(name), len(name)+4),
		Qual: block.Borrowed(len(name)+4, len(name)+8),
	})
	blk := combined.New([]string{"read1"})
	blk.Segments["read1"] = a
	return blk
}

// passthroughStep forwards every block unchanged; it is its own Clone
// since it carries no state.
type passthroughStep struct{}

func (passthroughStep) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}
func (passthroughStep) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	return blk, true, nil
}
func (passthroughStep) NeedsSerial() bool                   { return false }
func (passthroughStep) TransmitsPrematureTermination() bool { return false }
func (passthroughStep) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}
func (passthroughStep) Clone() stage.Step { return passthroughStep{} }

// headStep stops after N non-final blocks, like spec.md's head(n) example.
type headStep struct {
	n     int
	count int
}

func (s *headStep) Init(stage.InputInfo, string, string, string, *demux.DemultiplexView, bool) (*demux.StepSpec, error) {
	return nil, nil
}
func (s *headStep) Apply(blk *combined.Block, _ stage.InputInfo, _ uint64, _ *demux.DemultiplexView) (*combined.Block, bool, error) {
	if blk.IsFinal {
		return blk, true, nil
	}
	s.count++
	return blk, s.count < s.n, nil
}
func (s *headStep) NeedsSerial() bool                   { return true }
func (s *headStep) TransmitsPrematureTermination() bool { return true }
func (s *headStep) Finalize(*demux.DemultiplexView) (*report.Fragment, error) {
	return nil, nil
}

func feed(names ...string) chan *combined.Numbered {
	ch := make(chan *combined.Numbered, len(names))
	for i, name := range names {
		ch <- &combined.Numbered{BlockNo: uint64(i + 1), Block: oneReadBlock(name)}
	}
	close(ch)
	return ch
}

func drain(ch <-chan *combined.Numbered) []*combined.Numbered {
	var out []*combined.Numbered
	for nb := range ch {
		out = append(out, nb)
	}
	return out
}

func TestStageFabricSingleWorkerPreservesOrder(t *testing.T) {
	in := feed("r1", "r2", "r3")
	f := stage.NewStageFabric(stage.InputInfo{SegmentOrder: []string{"read1"}}, []stage.StepConfig{
		{Step: passthroughStep{}, ThreadCount: 1},
	}, nil)
	out := drain(f.Run(in))
	expect.EQ(t, len(out), 3)
	for i, nb := range out {
		expect.EQ(t, nb.BlockNo, uint64(i+1))
	}
}

func TestStageFabricParallelPreservesOrder(t *testing.T) {
	in := feed("r1", "r2", "r3", "r4", "r5")
	f := stage.NewStageFabric(stage.InputInfo{SegmentOrder: []string{"read1"}}, []stage.StepConfig{
		{Step: passthroughStep{}, ThreadCount: 4},
	}, nil)
	out := drain(f.Run(in))
	expect.EQ(t, len(out), 5)
	for i, nb := range out {
		expect.EQ(t, nb.BlockNo, uint64(i+1))
	}
}

func TestStageFabricHeadStopsEarly(t *testing.T) {
	in := feed("r1", "r2", "r3", "r4")
	f := stage.NewStageFabric(stage.InputInfo{SegmentOrder: []string{"read1"}}, []stage.StepConfig{
		{Step: &headStep{n: 2}, ThreadCount: 1},
	}, nil)
	out := drain(f.Run(in))
	expect.EQ(t, len(out), 2)
	expect.True(t, out[1].Block.IsFinal, "head should mark its last emitted block final")
	assert.NoError(t, f.Err())
}

func TestStageFabricTimingRecorded(t *testing.T) {
	tc := report.NewTimingCollector(16)
	in := feed("r1", "r2")
	f := stage.NewStageFabric(stage.InputInfo{SegmentOrder: []string{"read1"}}, []stage.StepConfig{
		{Step: passthroughStep{}, Label: "noop", ThreadCount: 1},
	}, tc)
	drain(f.Run(in))
	totals := tc.Close()
	agg, ok := totals["noop"]
	assert.True(t, ok, "expected a timing total for label %q, got %v", "noop", totals)
	expect.EQ(t, agg.Count, 2)
}
