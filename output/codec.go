// Package output implements the OutputMultiplexer (spec §4.7): an
// ordered, bucket-and-segment-routing multi-sink writer that consumes
// the StageFabric's final NumberedBlock stream.
package output

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec names a compression scheme applied to a FASTQ/FASTA sink. BAM
// sinks always use BGZF framing (via the bamio package) regardless of
// Codec.
type Codec int

const (
	Raw Codec = iota
	Gzip
	Zstd
)

func (c Codec) ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// codecWriteCloser wraps w with the framing Codec calls for, returning
// a writer whose Close flushes that framing (but never closes w itself
// — the caller, which owns the underlying file, does that).
func codecWriteCloser(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nopCloser{w}, nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
