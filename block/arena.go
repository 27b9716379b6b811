package block

import "fmt"

// Arena (the spec's ReadArena, a.k.a. FastQBlock) is one contiguous byte
// buffer plus an ordered sequence of Reads whose Borrowed Elements index
// into that buffer. Reads parsed from the same input stream, in order,
// share one Arena until some downstream Step promotes individual
// elements to Owned.
type Arena struct {
	Buf   []byte
	Reads []Read
}

// NewArena wraps buf with no reads; callers append via AddRead.
func NewArena(buf []byte) *Arena {
	return &Arena{Buf: buf}
}

// AddRead appends a Read. The caller is responsible for ensuring any
// Borrowed elements fall within [0, len(a.Buf)).
func (a *Arena) AddRead(r Read) {
	a.Reads = append(a.Reads, r)
}

// Len returns the number of reads in the arena.
func (a *Arena) Len() int { return len(a.Reads) }

// View returns a handle for the i-th read, bound to this arena.
func (a *Arena) View(i int) View {
	return View{arena: a, idx: i}
}

// CheckInvariants verifies that every Borrowed Position lies within
// [0, len(a.Buf)) and that len(seq) == len(qual) for every read. It is
// intended for use in tests and in assertion-style framework checks
// (spec §7 InvariantViolation), not on every hot-path block.
func (a *Arena) CheckInvariants() error {
	n := len(a.Buf)
	checkPos := func(field string, idx int, e Element) error {
		if e.IsOwned() {
			return nil
		}
		if e.Pos.Start < 0 || e.Pos.End > n || e.Pos.Start > e.Pos.End {
			return fmt.Errorf("block: read %d field %s: position [%d,%d) out of bounds for buffer of length %d",
				idx, field, e.Pos.Start, e.Pos.End, n)
		}
		return nil
	}
	for i, r := range a.Reads {
		if err := checkPos("name", i, r.Name); err != nil {
			return err
		}
		if err := checkPos("seq", i, r.Seq); err != nil {
			return err
		}
		if err := checkPos("qual", i, r.Qual); err != nil {
			return err
		}
		if r.Seq.Len() != r.Qual.Len() {
			return fmt.Errorf("block: read %d: len(seq)=%d != len(qual)=%d", i, r.Seq.Len(), r.Qual.Len())
		}
	}
	return nil
}

// Split divides the arena into two arenas at read index k: the first
// holds reads [0,k), the second [k,len). Positions are rebased so each
// resulting arena's Borrowed elements are valid against its own Buf
// slice (which aliases the original backing array; no bytes are
// copied). A split never breaks a read because it only ever occurs at a
// read boundary.
func (a *Arena) Split(k int) (*Arena, *Arena) {
	if k == 0 {
		return &Arena{Buf: a.Buf[:0]}, &Arena{Buf: a.Buf, Reads: a.Reads}
	}
	if k == len(a.Reads) {
		return &Arena{Buf: a.Buf, Reads: a.Reads}, &Arena{Buf: a.Buf[len(a.Buf):]}
	}
	splitAt := a.Reads[k].lowestOffset(a.Buf)
	left := &Arena{Buf: a.Buf[:splitAt], Reads: a.Reads[:k]}
	right := &Arena{Buf: a.Buf[splitAt:], Reads: rebase(a.Reads[k:], splitAt)}
	return left, right
}

// lowestOffset returns the smallest Borrowed Position.Start referenced
// by the read, falling back to len(block) when every element is Owned
// (nothing to rebase against).
func (r Read) lowestOffset(block []byte) int {
	lowest := len(block)
	for _, e := range []Element{r.Name, r.Seq, r.Qual} {
		if !e.IsOwned() && e.Pos.Start < lowest {
			lowest = e.Pos.Start
		}
	}
	return lowest
}

func rebase(reads []Read, offset int) []Read {
	out := make([]Read, len(reads))
	for i, r := range reads {
		out[i] = Read{
			Name: rebaseElement(r.Name, offset),
			Seq:  rebaseElement(r.Seq, offset),
			Qual: rebaseElement(r.Qual, offset),
		}
	}
	return out
}

func rebaseElement(e Element, offset int) Element {
	if e.IsOwned() {
		return e
	}
	return Borrowed(e.Pos.Start-offset, e.Pos.End-offset)
}
