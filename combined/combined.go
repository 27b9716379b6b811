// Package combined implements the CombinedBlock and NumberedBlock data
// model (spec §3): the unit of work that flows from the SegmentCombiner
// through the StageFabric to the OutputMultiplexer.
package combined

import (
	"fmt"

	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/tagvalue"
)

// Block is one CombinedBlock: one block.Arena per input segment (all of
// equal read count), an optional per-read demultiplex bucket key, and a
// string-keyed map of per-read tag vectors.
type Block struct {
	// Segments maps segment name (e.g. "read1", "read2", "i1") to its
	// Arena for this block. All arenas must have equal Len().
	Segments map[string]*block.Arena
	// SegmentOrder is the declared segment order (spec's "segment 0" is
	// SegmentOrder[0]); Segments is keyed by name for readability but
	// ordering matters for interleaved output and tie-breaking.
	SegmentOrder []string
	// OutputTag is the demultiplex bucket key for each read, or nil if no
	// demultiplex step has run yet.
	OutputTag []uint64
	// Tags holds, for each registered label, one Value per read.
	Tags map[string]tagvalue.Vector
	// IsFinal is true only for the terminal sentinel block emitted once
	// per run on EOF.
	IsFinal bool
}

// New constructs an empty Block over the given segment order.
func New(segmentOrder []string) *Block {
	segs := make(map[string]*block.Arena, len(segmentOrder))
	return &Block{
		Segments:     segs,
		SegmentOrder: append([]string(nil), segmentOrder...),
		Tags:         map[string]tagvalue.Vector{},
	}
}

// ReadCount returns the number of reads in each (equal-length) segment,
// or 0 for an empty/final block.
func (b *Block) ReadCount() int {
	if len(b.SegmentOrder) == 0 {
		return 0
	}
	first := b.Segments[b.SegmentOrder[0]]
	if first == nil {
		return 0
	}
	return first.Len()
}

// Segment0 returns the Arena for the first declared segment, whose read
// order is, per spec §5, authoritative for a CombinedBlock's overall
// read order.
func (b *Block) Segment0() *block.Arena {
	if len(b.SegmentOrder) == 0 {
		return nil
	}
	return b.Segments[b.SegmentOrder[0]]
}

// CheckInvariants verifies spec §8's universal CombinedBlock invariant:
// all segments have equal length, and every tag vector (and OutputTag,
// when present) has that same length.
func (b *Block) CheckInvariants() error {
	n := b.ReadCount()
	for _, name := range b.SegmentOrder {
		seg := b.Segments[name]
		if seg == nil {
			return fmt.Errorf("combined: segment %q missing", name)
		}
		if seg.Len() != n {
			return fmt.Errorf("combined: segment %q has %d reads, want %d", name, seg.Len(), n)
		}
		if err := seg.CheckInvariants(); err != nil {
			return fmt.Errorf("combined: segment %q: %w", name, err)
		}
	}
	if b.OutputTag != nil && len(b.OutputTag) != n {
		return fmt.Errorf("combined: output_tag has %d entries, want %d", len(b.OutputTag), n)
	}
	for label, vec := range b.Tags {
		if len(vec) != n {
			return fmt.Errorf("combined: tag %q has %d entries, want %d", label, len(vec), n)
		}
	}
	return nil
}

// Filter retains, in every segment and every tag vector (and OutputTag),
// only the reads at the given ascending, deduplicated indices. This is
// the framework-provided filter helper of spec §4.6: the only sanctioned
// way a Step may change the per-segment read count.
func (b *Block) Filter(keep []int) *Block {
	out := New(b.SegmentOrder)
	out.IsFinal = b.IsFinal
	for _, name := range b.SegmentOrder {
		seg := b.Segments[name]
		newArena := &block.Arena{Buf: seg.Buf, Reads: make([]block.Read, len(keep))}
		for i, idx := range keep {
			newArena.Reads[i] = seg.Reads[idx]
		}
		out.Segments[name] = newArena
	}
	if b.OutputTag != nil {
		tag := make([]uint64, len(keep))
		for i, idx := range keep {
			tag[i] = b.OutputTag[idx]
		}
		out.OutputTag = tag
	}
	for label, vec := range b.Tags {
		out.Tags[label] = vec.Select(keep)
	}
	return out
}

// Numbered pairs a Block with its 1-origin, strictly increasing block
// number and an optional expected-read-count hint forwarded unchanged
// from the parser (spec §9: treated as a hint, never an error source).
type Numbered struct {
	BlockNo           uint64
	Block             *Block
	ExpectedReadCount *uint64
}
