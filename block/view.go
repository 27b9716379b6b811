package block

// View is a handle onto the i-th read of an Arena. It provides the
// read-editing operations Step implementations use; all of them mutate
// arena.Reads[idx] in place and return nothing, mirroring the way a Rust
// `&mut Read` would be threaded through a transform chain.
type View struct {
	arena *Arena
	idx   int
}

func (v View) read() *Read { return &v.arena.Reads[v.idx] }

// Name returns the read's name bytes: without the leading '@', which the
// parser strips, and including any trailing comment.
func (v View) Name() []byte { return v.read().Name.Bytes(v.arena.Buf) }

// Seq returns the read's sequence bytes.
func (v View) Seq() []byte { return v.read().Seq.Bytes(v.arena.Buf) }

// Qual returns the read's quality bytes.
func (v View) Qual() []byte { return v.read().Qual.Bytes(v.arena.Buf) }

// Len returns len(Seq()) (== len(Qual())).
func (v View) Len() int { return v.read().Len() }

// NameWithoutTrailingComment returns the name up to the first SPACE.
func (v View) NameWithoutTrailingComment() []byte {
	return v.read().NameWithoutTrailingComment(v.arena.Buf)
}

// CutStart drops the first n bases from seq and qual (saturating at 0).
func (v View) CutStart(n int) {
	r := v.read()
	r.Seq = r.Seq.shrinkFront(n)
	r.Qual = r.Qual.shrinkFront(n)
}

// CutEnd drops the last n bases from seq and qual (saturating at 0).
func (v View) CutEnd(n int) {
	r := v.read()
	r.Seq = r.Seq.shrinkBack(n)
	r.Qual = r.Qual.shrinkBack(n)
}

// MaxLen truncates seq and qual to at most n bases, taken from the
// front; reads already at or under n are untouched.
func (v View) MaxLen(n int) {
	r := v.read()
	r.Seq = r.Seq.maxLen(n)
	r.Qual = r.Qual.maxLen(n)
}

// Prefix prepends seqBytes/qualBytes to seq/qual. The result is always
// Owned.
func (v View) Prefix(seqBytes, qualBytes []byte) {
	r := v.read()
	buf := v.arena.Buf
	r.Seq = r.Seq.prependPrefix(buf, seqBytes)
	r.Qual = r.Qual.prependPrefix(buf, qualBytes)
}

// Suffix appends seqBytes/qualBytes to seq/qual. The result is always
// Owned.
func (v View) Suffix(seqBytes, qualBytes []byte) {
	r := v.read()
	buf := v.arena.Buf
	r.Seq = r.Seq.appendSuffix(buf, seqBytes)
	r.Qual = r.Qual.appendSuffix(buf, qualBytes)
}

// ReplaceSeq replaces the sequence. Callers must also call ReplaceQual
// (or otherwise ensure len(seq) == len(qual) holds) before the read is
// observed downstream.
func (v View) ReplaceSeq(seq []byte) {
	r := v.read()
	r.Seq = r.Seq.replace(seq)
}

// ReplaceQual replaces the quality string.
func (v View) ReplaceQual(qual []byte) {
	r := v.read()
	r.Qual = r.Qual.replace(qual)
}

// ReplaceName replaces the name.
func (v View) ReplaceName(name []byte) {
	r := v.read()
	r.Name = r.Name.replace(name)
}

// ReverseComplement complements seq in place (IUPAC-aware) and reverses
// qual.
func (v View) ReverseComplement() {
	r := v.read()
	buf := v.arena.Buf

	seq := r.Seq.Bytes(buf)
	rc := make([]byte, len(seq))
	for i, b := range seq {
		rc[len(seq)-1-i] = complement(b)
	}
	r.Seq = OwnedElement(rc)

	qual := r.Qual.Bytes(buf)
	rq := make([]byte, len(qual))
	for i, b := range qual {
		rq[len(qual)-1-i] = b
	}
	r.Qual = OwnedElement(rq)
}

// complement maps one IUPAC nucleotide code (upper or lower case) to its
// complement; anything it doesn't recognize maps to 'N'.
func complement(b byte) byte {
	return iupacComplement[b]
}

// iupacComplement extends the teacher's ACGTN-only revcomp table to the
// full IUPAC ambiguity alphabet, per spec §4.1 ("IUPAC-aware").
var iupacComplement = buildComplementTable()

func buildComplementTable() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	pairs := []struct{ from, to byte }{
		{'A', 'T'}, {'T', 'A'}, {'C', 'G'}, {'G', 'C'},
		{'U', 'A'}, {'N', 'N'},
		{'R', 'Y'}, {'Y', 'R'}, // A/G <-> C/T
		{'S', 'S'},             // G/C
		{'W', 'W'},             // A/T
		{'K', 'M'}, {'M', 'K'}, // G/T <-> A/C
		{'B', 'V'}, {'V', 'B'}, // not-A <-> not-T
		{'D', 'H'}, {'H', 'D'}, // not-C <-> not-G
	}
	for _, p := range pairs {
		t[p.from] = p.to
		t[p.from+('a'-'A')] = p.to + ('a' - 'A')
	}
	return t
}

// TrimQualityStart trims leading bases whose quality byte is < minQual.
func (v View) TrimQualityStart(minQual byte) {
	qual := v.Qual()
	n := 0
	for n < len(qual) && qual[n] < minQual {
		n++
	}
	v.CutStart(n)
}

// TrimQualityEnd trims trailing bases whose quality byte is < minQual.
func (v View) TrimQualityEnd(minQual byte) {
	qual := v.Qual()
	n := 0
	for n < len(qual) && qual[len(qual)-1-n] < minQual {
		n++
	}
	v.CutEnd(n)
}

// TrimAdapterMismatchTail finds the longest suffix of seq that is also a
// Hamming-<=maxMismatches match of a prefix of query of length >=
// minLen, ties broken by longest, and cuts it off. It is a no-op if no
// candidate suffix satisfies minLen/maxMismatches.
func (v View) TrimAdapterMismatchTail(query []byte, minLen, maxMismatches int) {
	seq := v.Seq()
	best := -1 // suffix length to trim; -1 means none found
	maxCandidate := len(seq)
	if len(query) < maxCandidate {
		maxCandidate = len(query)
	}
	for suffixLen := maxCandidate; suffixLen >= minLen; suffixLen-- {
		start := len(seq) - suffixLen
		mismatches := hamming(seq[start:], query[:suffixLen])
		if mismatches <= maxMismatches {
			best = suffixLen
			break // longest suffix found first since we scan from maxCandidate down
		}
	}
	if best > 0 {
		v.CutEnd(best)
	}
}

func hamming(a, b []byte) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

// polyBaseCandidates enumerates the bases TrimPolyBaseSuffix will try
// when base == '.'.
var polyBaseCandidates = []byte{'A', 'C', 'G', 'T', 'N'}

// TrimPolyBaseSuffix scans the sequence from the 3' end for a run of a
// single base (or, if base == '.', the best of A/C/G/T/N), and trims the
// longest valid poly-base suffix. See spec §4.1 for the exact contract;
// this implementation follows it directly:
//
//   - a candidate trim position must land on a matching base,
//   - the trimmed suffix must have length >= minLen,
//   - the mismatch fraction within the suffix must be <= maxMismatchFraction,
//   - scanning stops early once no further extension could possibly stay
//     under the threshold, or once maxConsecutiveMismatches consecutive
//     mismatches have been seen,
//   - the result is the leftmost (longest) valid candidate.
func (v View) TrimPolyBaseSuffix(minLen int, maxMismatchFraction float64, maxConsecutiveMismatches int, base byte) {
	seq := v.Seq()
	bases := polyBaseCandidates
	if base != '.' {
		bases = []byte{base}
	}

	bestCut := -1 // bases remaining after trim, i.e. cut the last len(seq)-bestCut bytes
	for _, candidateBase := range bases {
		cut := bestPolyBaseCut(seq, minLen, maxMismatchFraction, maxConsecutiveMismatches, candidateBase)
		if cut >= 0 && (bestCut < 0 || cut < bestCut) {
			bestCut = cut
		}
	}
	if bestCut >= 0 {
		v.CutEnd(len(seq) - bestCut)
	}
}

// bestPolyBaseCut returns the leftmost valid candidate's "bases
// remaining" count for a single candidate base, or -1 if none is valid.
func bestPolyBaseCut(seq []byte, minLen int, maxMismatchFraction float64, maxConsecutiveMismatches int, candidateBase byte) int {
	n := len(seq)
	matches, mismatches := 0, 0
	consecutiveMismatches := 0
	best := -1
	for i := n - 1; i >= 0; i-- {
		isMatch := seq[i] == candidateBase || (candidateBase != 'N' && seq[i] == 'N')
		if isMatch {
			matches++
			consecutiveMismatches = 0
		} else {
			mismatches++
			consecutiveMismatches++
		}
		suffixLen := n - i
		if isMatch && suffixLen >= minLen {
			frac := float64(mismatches) / float64(suffixLen)
			if frac <= maxMismatchFraction {
				best = i // leftmost valid candidate overwrites; we want longest suffix, i.e. smallest i.
			}
		}
		if consecutiveMismatches >= maxConsecutiveMismatches {
			break
		}
		// Early-exit: even if every remaining base to the left matched, the
		// mismatch fraction could only go down, so this check only prunes
		// once matching further cannot possibly bring the *current*
		// achievable minimum under threshold for any longer suffix,
		// i.e. when the already-accumulated mismatches alone exceed the
		// threshold for the maximum possible future suffix length (n).
		if float64(mismatches)/float64(n) > maxMismatchFraction && matches == 0 {
			break
		}
	}
	return best
}
