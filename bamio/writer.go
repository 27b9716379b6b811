// Package bamio implements the BAM output sink (spec §6): unmapped
// sam.Records built directly from block.View reads, marshaled with
// encoding/bam.Marshal and framed as BGZF via encoding/bgzf, the same
// two collaborators the teacher used for its (alignment-aware) BAM
// writers, now driving an alignment-free, unmapped-only write path.
package bamio

import (
	"bytes"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/encoding/bam"
	"github.com/grailbio/fqproc/encoding/bgzf"
)

// PhredOffset is the ASCII-to-Phred-score offset fqproc assumes for
// BAM's binary QUAL encoding (Sanger / Illumina 1.8+, matching every
// input this processor's fastqio/fastaio parsers accept).
const PhredOffset = 33

// Writer serializes block.View reads as unmapped BAM records (FLAG
// 0x4), one per read, into a single BGZF-framed stream.
type Writer struct {
	bg  *bgzf.Writer
	buf bytes.Buffer
}

// NewWriter constructs a Writer over w at the given BGZF compression
// level (see compress/flate level constants), and immediately writes
// the minimal unmapped-reads BAM header: no reference sequences, since
// nothing in this pipeline aligns.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	bg, err := bgzf.NewWriter(w, level)
	if err != nil {
		return nil, err
	}
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	hb, err := bam.MarshalHeader(h)
	if err != nil {
		return nil, err
	}
	if _, err := bg.Write(hb); err != nil {
		return nil, err
	}
	return &Writer{bg: bg}, nil
}

// Write appends one read as an unmapped BAM record.
func (w *Writer) Write(v block.View) error {
	rec := &sam.Record{
		Name:    string(v.NameWithoutTrailingComment()),
		Ref:     nil,
		Pos:     -1,
		MapQ:    0,
		Cigar:   nil,
		Flags:   sam.Unmapped,
		MateRef: nil,
		MatePos: -1,
		TempLen: 0,
		Seq:     sam.NewSeq(v.Seq()),
		Qual:    phredFromASCII(v.Qual()),
	}
	w.buf.Reset()
	if err := bam.Marshal(rec, &w.buf); err != nil {
		return err
	}
	_, err := w.bg.Write(w.buf.Bytes())
	return err
}

// Close flushes the final BGZF block and appends the BGZF EOF
// terminator, per spec §6's "finish() emits EOF block" contract.
func (w *Writer) Close() error {
	return w.bg.Close()
}

func phredFromASCII(qual []byte) []byte {
	out := make([]byte, len(qual))
	for i, b := range qual {
		out[i] = b - PhredOffset
	}
	return out
}
