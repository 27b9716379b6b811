package fastqio

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Source is one file contributing to a segment's input stream. A
// BlockParser consumes an ordered list of Sources as if they were
// concatenated, switching codecs independently per source by
// magic-byte sniffing, per spec §4.2.
type Source struct {
	// ID identifies the source in ParseErrors and logs; typically the
	// file path.
	ID string
	// Path is opened with github.com/grailbio/base/file, which is the
	// same file-opening collaborator encoding/fastq.Downsample uses, so
	// any backend file.Open supports (local disk, or a pluggable
	// scheme) works here too.
	Path string
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// openDecoded opens src and returns a reader over its decompressed
// bytes, having sniffed raw/gzip/zstd from the leading bytes. The
// returned closer closes both the decoder and the underlying file.
func openDecoded(ctx context.Context, src Source) (io.ReadCloser, error) {
	f, err := file.Open(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	raw := f.Reader(ctx)
	br := bufio.NewReaderSize(raw, 64<<10)
	magic, err := br.Peek(4)
	if err != nil && err != io.EOF {
		_ = f.Close(ctx)
		return nil, err
	}
	switch {
	case len(magic) >= 2 && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1]:
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close(ctx)
			return nil, err
		}
		return &closerChain{Reader: gz, closers: []func() error{gz.Close, func() error { return f.Close(ctx) }}}, nil
	case len(magic) == 4 && string(magic) == string(zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			_ = f.Close(ctx)
			return nil, err
		}
		return &closerChain{Reader: zr.IOReadCloser(), closers: []func() error{zr.IOReadCloser().Close, func() error { return f.Close(ctx) }}}, nil
	default:
		return &closerChain{Reader: br, closers: []func() error{func() error { return f.Close(ctx) }}}, nil
	}
}

// closerChain adapts an io.Reader plus a list of cleanup functions
// (invoked in order on Close) into an io.ReadCloser.
type closerChain struct {
	io.Reader
	closers []func() error
}

func (c *closerChain) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
