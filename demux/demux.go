// Package demux implements the DemultiplexPlanner and DemultiplexScheme
// (spec §4.4): compiling one or more barcode-naming demultiplex steps
// into disjoint bit windows of a single per-read uint64 output_tag, and
// the cumulative tag-to-name map each step downstream of a demultiplex
// step sees.
//
// The bit-packing shape — several independent fields composed into one
// sort/lookup key by shifting each into its own window — is grounded on
// cmd/bio-bam-sort/sorter/sort.go's recCoord (refID<<33 | pos<<1 |
// reverse), adapted from "two fixed fields" to "a variable number of
// steps, each claiming just enough bits for its own name count."
package demux

import (
	"fmt"
	"math/bits"
	"sort"
)

// DefaultSeparator joins bucket names across composed demultiplex
// steps, e.g. "A_X" for barcode "A" from step 1 and "X" from step 2.
const DefaultSeparator = "_"

// StepSpec is what one demultiplex Step reports to the planner:
// its unique barcode names and whether unmatched reads should still
// receive an output_tag (tag 0) mapped to the "no-barcode" bucket.
type StepSpec struct {
	Names            []string
	IncludeNoBarcode bool
}

// DemultiplexOverflow is returned when the cumulative bit width needed
// to represent every composed step's tags would exceed 64 bits.
type DemultiplexOverflow struct {
	RequestedBits int
}

func (e *DemultiplexOverflow) Error() string {
	return fmt.Sprintf("demux: cumulative width %d bits exceeds 64", e.RequestedBits)
}

// stepScheme is one step's slice of the overall DemultiplexScheme: its
// bit window and the barcode name -> local tag (already shifted into
// that window) map.
type stepScheme struct {
	bitStart int
	bitWidth int
	localTag map[string]uint64 // barcode name -> shifted local tag
}

// DemultiplexView is the cumulative scheme visible to a Step at or
// after a given demultiplex step: the final bit mask in use so far, and
// the name each possible tag value maps to.
type DemultiplexView struct {
	// Mask covers every bit assigned up to and including this step.
	Mask uint64
	// TagToName maps a masked output_tag to its composed bucket name. A
	// combination that was never registered (some component step saw
	// "no barcode" without include_no_barcode) has no entry.
	TagToName map[uint64]*string
}

// Resolve returns the bucket name for tag (already masked to v.Mask),
// and whether one was registered.
func (v *DemultiplexView) Resolve(tag uint64) (string, bool) {
	name, ok := v.TagToName[tag&v.Mask]
	if !ok || name == nil {
		return "", false
	}
	return *name, true
}

// DemultiplexScheme is the full compiled plan: one stepScheme per
// demultiplex step in pipeline order, plus the cumulative view visible
// after each step.
type DemultiplexScheme struct {
	separator string
	steps     []stepScheme
	views     []*DemultiplexView // views[i] is the cumulative view after step i
}

// Plan compiles specs, in pipeline order, into a DemultiplexScheme.
// separator joins composed bucket names; DefaultSeparator if empty.
func Plan(specs []StepSpec, separator string) (*DemultiplexScheme, error) {
	if separator == "" {
		separator = DefaultSeparator
	}
	s := &DemultiplexScheme{separator: separator}
	bitStart := 0
	var cumulative map[uint64]*string = map[uint64]*string{0: nil}
	var cumulativeMask uint64
	for _, spec := range specs {
		names := append([]string(nil), spec.Names...)
		sort.Strings(names)
		n := len(names)
		if spec.IncludeNoBarcode {
			n++
		}
		width := bitsNeeded(n)
		if bitStart+width > 64 {
			return nil, &DemultiplexOverflow{RequestedBits: bitStart + width}
		}
		local := make(map[string]uint64, len(names))
		for i, name := range names {
			local[name] = uint64(i+1) << uint(bitStart)
		}
		next := make(map[uint64]*string)
		stepMask := uint64(0)
		if width > 0 {
			stepMask = (uint64(1)<<uint(width) - 1) << uint(bitStart)
		}
		for prevTag, prevName := range cumulative {
			// Tag 0 within this step's window means "no barcode."
			if spec.IncludeNoBarcode {
				next[prevTag] = composeName(prevName, "no-barcode", s.separator)
			}
			for _, name := range names {
				tag := prevTag | local[name]
				next[tag] = composeName(prevName, name, s.separator)
			}
		}
		cumulative = next
		cumulativeMask |= stepMask

		s.steps = append(s.steps, stepScheme{bitStart: bitStart, bitWidth: width, localTag: local})
		viewCopy := make(map[uint64]*string, len(cumulative))
		for k, v := range cumulative {
			viewCopy[k] = v
		}
		s.views = append(s.views, &DemultiplexView{Mask: cumulativeMask, TagToName: viewCopy})
		bitStart += width
	}
	return s, nil
}

func composeName(prev *string, add, sep string) *string {
	if prev == nil {
		name := add
		return &name
	}
	name := *prev + sep + add
	return &name
}

// bitsNeeded returns the number of bits needed to hold every tag value
// 0..n, i.e. bits.Len(n). Names take the 1-based tags 1..n and tag 0
// always means "no match", so one name needs 1 bit and two or three
// names need 2 bits. Plan passes the name count plus one when
// include_no_barcode is set, which can leave one bit of the window
// unused.
func bitsNeeded(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n))
}

// NumSteps returns how many demultiplex steps were planned.
func (s *DemultiplexScheme) NumSteps() int { return len(s.steps) }

// Resolve returns the output_tag contribution of stepIdx's barcode
// match for name (or 0 and false if name was never registered for that
// step).
func (s *DemultiplexScheme) Resolve(stepIdx int, name string) (uint64, bool) {
	tag, ok := s.steps[stepIdx].localTag[name]
	return tag, ok
}

// ViewAfter returns the cumulative DemultiplexView visible to any Step
// positioned after the stepIdx-th demultiplex step (0-based). An
// out-of-range stepIdx returns an empty view (zero Mask, empty
// TagToName).
func (s *DemultiplexScheme) ViewAfter(stepIdx int) *DemultiplexView {
	if stepIdx < 0 || stepIdx >= len(s.views) {
		return &DemultiplexView{TagToName: map[uint64]*string{}}
	}
	return s.views[stepIdx]
}
