package combiner_test

import (
	"context"
	"testing"

	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/combiner"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// fakeSource replays a fixed sequence of arenas, then EOF.
type fakeSource struct {
	arenas []*block.Arena
	idx    int
}

func (f *fakeSource) Next(ctx context.Context) (*block.Arena, bool, error) {
	if f.idx >= len(f.arenas) {
		return nil, false, nil
	}
	a := f.arenas[f.idx]
	f.idx++
	return a, true, nil
}

func oneReadArena(name, seq, qual string) *block.Arena {
	buf := append([]byte{}, name...)
	n := len(buf)
	buf = append(buf, seq...)
	s := len(buf)
	buf = append(buf, qual...)
	q := len(buf)
	a := block.NewArena(buf)
	a.AddRead(block.Read{Name: block.Borrowed(0, n), Seq: block.Borrowed(n, s), Qual: block.Borrowed(s, q)})
	return a
}

func TestSegmentedCombinerLockStep(t *testing.T) {
	r1 := &fakeSource{arenas: []*block.Arena{oneReadArena("x", "AAAA", "IIII")}}
	r2 := &fakeSource{arenas: []*block.Arena{oneReadArena("x", "CCCC", "IIII")}}
	c := combiner.NewSegmented([]string{"read1", "read2"}, []combiner.ArenaSource{r1, r2})

	ctx := context.Background()
	nb, ok, err := c.Next(ctx)
	assert.NoError(t, err)
	assert.True(t, ok, "expected a block")
	expect.EQ(t, nb.BlockNo, uint64(1))
	expect.EQ(t, nb.Block.ReadCount(), 1)
	expect.False(t, nb.Block.IsFinal)

	nb2, ok, err := c.Next(ctx)
	assert.NoError(t, err)
	assert.True(t, ok, "expected the sentinel block")
	expect.True(t, nb2.Block.IsFinal, "expected final sentinel")
	expect.EQ(t, nb2.Block.ReadCount(), 0)

	_, ok, err = c.Next(ctx)
	assert.NoError(t, err)
	expect.False(t, ok)
}

func TestInterleavedCombinerRoundRobin(t *testing.T) {
	buf := []byte{}
	var reads []block.Read
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		start := len(buf)
		buf = append(buf, n...)
		nameEnd := len(buf)
		buf = append(buf, "ACGT"...)
		seqEnd := len(buf)
		buf = append(buf, "IIII"...)
		qualEnd := len(buf)
		reads = append(reads, block.Read{Name: block.Borrowed(start, nameEnd), Seq: block.Borrowed(nameEnd, seqEnd), Qual: block.Borrowed(seqEnd, qualEnd)})
	}
	arena := &block.Arena{Buf: buf, Reads: reads}
	src := &fakeSource{arenas: []*block.Arena{arena}}
	c := combiner.NewInterleaved([]string{"read1", "read2"}, src)

	ctx := context.Background()
	nb, ok, err := c.Next(ctx)
	assert.NoError(t, err)
	assert.True(t, ok, "expected a block")
	r1 := nb.Block.Segments["read1"]
	r2 := nb.Block.Segments["read2"]
	expect.EQ(t, r1.Len(), 2)
	expect.EQ(t, r2.Len(), 2)
	expect.EQ(t, string(r1.View(0).Name()), "a")
	expect.EQ(t, string(r1.View(1).Name()), "c")
	expect.EQ(t, string(r2.View(0).Name()), "b")
	expect.EQ(t, string(r2.View(1).Name()), "d")
}
