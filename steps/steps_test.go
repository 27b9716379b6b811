package steps_test

import (
	"testing"

	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/stage"
	"github.com/grailbio/fqproc/steps"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func readsBlock(segment string, names, seqs, quals []string) *combined.Block {
	var buf []byte
	a := block.NewArena(nil)
	for i := range names {
		nameStart := len(buf)
		buf = append(buf, names[i]...)
		seqStart := len(buf)
		buf = append(buf, seqs[i]...)
		qualStart := len(buf)
		buf = append(buf, quals[i]...)
		a.AddRead(block.Read{
			Name: block.Borrowed(nameStart, nameStart+len(names[i])),
			Seq:  block.Borrowed(seqStart, seqStart+len(seqs[i])),
			Qual: block.Borrowed(qualStart, qualStart+len(quals[i])),
		})
	}
	a.Buf = buf
	blk := combined.New([]string{segment})
	blk.Segments[segment] = a
	return blk
}

func TestHeadStopsPartwayThroughABlock(t *testing.T) {
	blk := readsBlock("read1", []string{"r1", "r2", "r3"}, []string{"AC", "GT", "TT"}, []string{"II", "II", "II"})
	h := steps.NewHead(2)
	out, cont, err := h.Apply(blk, stageInfo(), 1, nil)
	assert.NoError(t, err)
	expect.False(t, cont)
	expect.EQ(t, out.ReadCount(), 2)
}

func TestHeadAcrossMultipleBlocks(t *testing.T) {
	h := steps.NewHead(3)
	b1 := readsBlock("read1", []string{"r1", "r2"}, []string{"AC", "GT"}, []string{"II", "II"})
	out1, cont1, err := h.Apply(b1, stageInfo(), 1, nil)
	assert.NoError(t, err)
	expect.True(t, cont1)
	expect.EQ(t, out1.ReadCount(), 2)

	b2 := readsBlock("read1", []string{"r3", "r4"}, []string{"AC", "GT"}, []string{"II", "II"})
	out2, cont2, err := h.Apply(b2, stageInfo(), 2, nil)
	assert.NoError(t, err)
	expect.False(t, cont2)
	expect.EQ(t, out2.ReadCount(), 1)
}

func TestCutEndShrinksSeqAndQual(t *testing.T) {
	blk := readsBlock("read1", []string{"r1"}, []string{"ACGTAC"}, []string{"IIIIII"})
	s := &steps.CutEnd{N: 2}
	out, cont, err := s.Apply(blk, stageInfo(), 1, nil)
	assert.NoError(t, err)
	expect.True(t, cont)
	v := out.Segments["read1"].View(0)
	expect.EQ(t, string(v.Seq()), "ACGT")
	expect.EQ(t, string(v.Qual()), "IIII")
}

func TestReverseComplementStep(t *testing.T) {
	blk := readsBlock("read1", []string{"r1"}, []string{"ACGT"}, []string{"IIJJ"})
	s := &steps.ReverseComplement{}
	out, _, err := s.Apply(blk, stageInfo(), 1, nil)
	assert.NoError(t, err)
	v := out.Segments["read1"].View(0)
	expect.EQ(t, string(v.Seq()), "ACGT") // revcomp of ACGT is ACGT
	expect.EQ(t, string(v.Qual()), "JJII")
}

func TestRenameIsDeterministicAcrossClones(t *testing.T) {
	blk := readsBlock("read1", []string{"orig1", "orig2"}, []string{"AC", "GT"}, []string{"II", "II"})
	s := &steps.Rename{Template: "read_%d_%d"}
	clone := s.Clone().(*steps.Rename)
	out1, _, err := s.Apply(blk, stageInfo(), 7, nil)
	assert.NoError(t, err)
	blk2 := readsBlock("read1", []string{"orig1", "orig2"}, []string{"AC", "GT"}, []string{"II", "II"})
	out2, _, err := clone.Apply(blk2, stageInfo(), 7, nil)
	assert.NoError(t, err)
	expect.EQ(t, string(out1.Segments["read1"].View(0).Name()), string(out2.Segments["read1"].View(0).Name()))
	expect.EQ(t, string(out1.Segments["read1"].View(1).Name()), "read_7_1")
}

func TestDemultiplexAssignsOutputTag(t *testing.T) {
	scheme, err := demux.Plan([]demux.StepSpec{{Names: []string{"X", "Y"}, IncludeNoBarcode: true}}, "_")
	assert.NoError(t, err)

	d := &steps.Demultiplex{
		Segment:          "index1",
		Barcodes:         map[string]string{"AAAA": "X", "CCCC": "Y"},
		IncludeNoBarcode: true,
	}
	_, err = d.Init(stageInfo(), "", "", "_", nil, false)
	assert.NoError(t, err)
	d.BindScheme(scheme, 0)

	blk := readsBlock("index1", []string{"r1", "r2", "r3"}, []string{"AAAA", "CCCC", "GGGG"}, []string{"IIII", "IIII", "IIII"})
	out, _, err := d.Apply(blk, stageInfo(), 1, nil)
	assert.NoError(t, err)

	view := scheme.ViewAfter(0)
	name0, ok := view.Resolve(out.OutputTag[0])
	assert.True(t, ok, "r1 should resolve to a bucket")
	expect.EQ(t, name0, "X")
	name1, _ := view.Resolve(out.OutputTag[1])
	expect.EQ(t, name1, "Y")
	name2, ok := view.Resolve(out.OutputTag[2])
	assert.True(t, ok, "unmatched read should resolve to no-barcode")
	expect.EQ(t, name2, "no-barcode")
}

func stageInfo() stage.InputInfo { return stage.InputInfo{SegmentOrder: []string{"read1"}} }
