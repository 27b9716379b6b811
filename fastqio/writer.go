package fastqio

import (
	"io"

	"github.com/grailbio/fqproc/block"
)

var (
	newline = []byte{'\n'}
	at      = []byte{'@'}
	plus    = []byte{'+'}
)

// Writer serializes block.View reads to FASTQ, generalizing the
// teacher's string-based fastq.Writer to the zero-copy View model: each
// field is written directly from its Borrowed or Owned bytes, without
// ever materializing a string copy.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes one read in four-line FASTQ format. The separator line
// is written as a bare "+" regardless of what the teacher's Unk field
// might have held, matching common FASTQ practice and this package's
// read model (which has no third line).
func (w *Writer) Write(v block.View) error {
	w.writeBytes(at)
	w.writeBytes(v.Name())
	w.writeBytes(newline)
	w.writeBytes(v.Seq())
	w.writeBytes(newline)
	w.writeBytes(plus)
	w.writeBytes(newline)
	w.writeBytes(v.Qual())
	w.writeBytes(newline)
	return w.err
}

func (w *Writer) writeBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}
