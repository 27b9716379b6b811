package fastaio

import (
	"io"

	"github.com/grailbio/fqproc/block"
)

var (
	newline = []byte{'\n'}
	gt      = []byte{'>'}
)

// Writer serializes block.View reads to single-line-per-record FASTA:
// the quality track attached by BlockParser (or by a step upstream) is
// dropped, since FASTA has no quality line.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes one read as ">name\nseq\n".
func (w *Writer) Write(v block.View) error {
	w.writeBytes(gt)
	w.writeBytes(v.Name())
	w.writeBytes(newline)
	w.writeBytes(v.Seq())
	w.writeBytes(newline)
	return w.err
}

func (w *Writer) writeBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}
