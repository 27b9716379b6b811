// Package combiner implements the SegmentCombiner (spec §4.3): it
// fuses one or more per-segment block streams into a single stream of
// combined.Numbered blocks with synchronized read counts across
// segments, and emits the terminal sentinel block on EOF.
//
// Grounded on the reader/merge concurrency shape of
// cmd/bio-pamtool/cmd/view.go's viewShards (one goroutine per input,
// shared github.com/grailbio/base/errors.Once for fatal errors),
// adapted from "per-shard, unordered fan-in through an OrderedQueue"
// to "per-segment, lock-step fan-in" since a CombinedBlock's invariant
// requires the k-th block from every segment to be combined together,
// not merely relative ordering.
package combiner

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/combined"
)

// ArenaSource is anything that produces an ordered sequence of
// block.Arenas, the shape both fastqio.BlockParser and
// fastaio.BlockParser satisfy.
type ArenaSource interface {
	Next(ctx context.Context) (*block.Arena, bool, error)
}

// UnequalReadCountsKind discriminates why segments disagreed.
type UnequalReadCountsKind int

const (
	FirstLessThanLater UnequalReadCountsKind = iota
	FirstGreaterThanLater
	BlockLenMismatch
)

func (k UnequalReadCountsKind) String() string {
	switch k {
	case FirstLessThanLater:
		return "first_lt_later"
	case FirstGreaterThanLater:
		return "first_gt_later"
	case BlockLenMismatch:
		return "block_len_mismatch"
	default:
		return "unknown"
	}
}

// UnequalReadCountsError reports a segmented-mode synchronization
// failure between per-segment BlockParsers.
type UnequalReadCountsError struct {
	Kind          UnequalReadCountsKind
	Segment       string
	ExpectedCount int
	ActualCount   int
}

func (e *UnequalReadCountsError) Error() string {
	return fmt.Sprintf("combiner: %s: segment %q has %d reads, want %d",
		e.Kind, e.Segment, e.ActualCount, e.ExpectedCount)
}

// SegmentCombiner fuses per-segment ArenaSources (segmented mode) or
// splits one ArenaSource round-robin across segments (interleaved
// mode) into a stream of combined.Numbered blocks.
type SegmentCombiner struct {
	segmentOrder []string
	// segmented holds one source per segment, parallel to segmentOrder.
	segmented []ArenaSource
	// interleaved holds the single source used in interleaved mode.
	interleaved ArenaSource

	blockNo uint64
	done    bool
}

// NewSegmented constructs a combiner for segmented mode: one
// ArenaSource per named segment, pulled in lock-step.
func NewSegmented(segmentOrder []string, sources []ArenaSource) *SegmentCombiner {
	return &SegmentCombiner{segmentOrder: append([]string(nil), segmentOrder...), segmented: sources}
}

// NewInterleaved constructs a combiner for interleaved mode: a single
// source whose reads are distributed round-robin, read i to segment
// i mod len(segmentOrder).
func NewInterleaved(segmentOrder []string, source ArenaSource) *SegmentCombiner {
	return &SegmentCombiner{segmentOrder: append([]string(nil), segmentOrder...), interleaved: source}
}

// Next returns the next combined.Numbered block, or ok=false once the
// terminal sentinel (IsFinal=true) has already been returned.
func (c *SegmentCombiner) Next(ctx context.Context) (*combined.Numbered, bool, error) {
	if c.done {
		return nil, false, nil
	}
	var blk *combined.Block
	var err error
	if c.interleaved != nil {
		blk, err = c.nextInterleaved(ctx)
	} else {
		blk, err = c.nextSegmented(ctx)
	}
	if err != nil {
		return nil, false, err
	}
	c.blockNo++
	if blk.IsFinal {
		c.done = true
	}
	if err := blk.CheckInvariants(); err != nil {
		return nil, false, errors.E(err, "combiner: invariant violation")
	}
	return &combined.Numbered{BlockNo: c.blockNo, Block: blk}, true, nil
}

func (c *SegmentCombiner) nextSegmented(ctx context.Context) (*combined.Block, error) {
	blk := combined.New(c.segmentOrder)
	var firstCount int
	anyEOF := false
	for i, name := range c.segmentOrder {
		arena, ok, err := c.segmented[i].Next(ctx)
		if err != nil {
			return nil, errors.E(err, "combiner: reading segment", name)
		}
		if !ok {
			anyEOF = true
			arena = &block.Arena{}
		}
		if i == 0 {
			firstCount = arena.Len()
		} else if arena.Len() != firstCount {
			kind := BlockLenMismatch
			if firstCount < arena.Len() {
				kind = FirstLessThanLater
			} else if firstCount > arena.Len() {
				kind = FirstGreaterThanLater
			}
			return nil, &UnequalReadCountsError{Kind: kind, Segment: name, ExpectedCount: firstCount, ActualCount: arena.Len()}
		}
		blk.Segments[name] = arena
	}
	if anyEOF {
		return finalBlock(c.segmentOrder), nil
	}
	return blk, nil
}

func (c *SegmentCombiner) nextInterleaved(ctx context.Context) (*combined.Block, error) {
	arena, ok, err := c.interleaved.Next(ctx)
	if err != nil {
		return nil, errors.E(err, "combiner: reading interleaved source")
	}
	if !ok {
		return finalBlock(c.segmentOrder), nil
	}
	n := len(c.segmentOrder)
	blk := combined.New(c.segmentOrder)
	subBufs := make([][]byte, n)
	subReads := make([][]block.Read, n)
	for i := 0; i < arena.Len(); i++ {
		seg := i % n
		r := arena.Reads[i]
		base := len(subBufs[seg])
		subBufs[seg] = append(subBufs[seg], r.Name.Bytes(arena.Buf)...)
		nameEnd := len(subBufs[seg])
		subBufs[seg] = append(subBufs[seg], r.Seq.Bytes(arena.Buf)...)
		seqEnd := len(subBufs[seg])
		subBufs[seg] = append(subBufs[seg], r.Qual.Bytes(arena.Buf)...)
		qualEnd := len(subBufs[seg])
		subReads[seg] = append(subReads[seg], block.Read{
			Name: block.Borrowed(base, nameEnd),
			Seq:  block.Borrowed(nameEnd, seqEnd),
			Qual: block.Borrowed(seqEnd, qualEnd),
		})
	}
	for i, name := range c.segmentOrder {
		blk.Segments[name] = &block.Arena{Buf: subBufs[i], Reads: subReads[i]}
	}
	return blk, nil
}

func finalBlock(segmentOrder []string) *combined.Block {
	blk := combined.New(segmentOrder)
	for _, name := range segmentOrder {
		blk.Segments[name] = &block.Arena{}
	}
	blk.IsFinal = true
	return blk
}
