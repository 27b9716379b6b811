package block

import "bytes"

// Read is one FASTQ/FASTA record: a name, a sequence, and a quality
// string. Name/Seq/Qual are Elements, Borrowed into the owning Arena's
// buffer until some operation promotes them.
//
// Invariant: len(Seq) == len(Qual). The cut, trim and reverse-complement
// mutators in this package keep it; ReplaceSeq, ReplaceQual, Prefix and
// Suffix leave it to the caller. Arena.CheckInvariants reports a
// violation; the combiner runs it (through combined.Block.CheckInvariants)
// on every block it emits.
type Read struct {
	Name, Seq, Qual Element
}

// NameWithoutTrailingComment returns Name's bytes up to the first SPACE,
// or the whole name if there is none.
func (r Read) NameWithoutTrailingComment(block []byte) []byte {
	name := r.Name.Bytes(block)
	if i := bytes.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}

// Len returns the read's sequence length (equivalently, its quality
// length, by invariant).
func (r Read) Len() int { return r.Seq.Len() }
