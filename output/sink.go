package output

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/fqproc/bamio"
	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/fqproc/fastaio"
	"github.com/grailbio/fqproc/fastqio"
)

// Format names the on-disk record format of a sink.
type Format int

const (
	FASTQ Format = iota
	FASTA
	BAM
)

func (f Format) ext() string {
	switch f {
	case FASTA:
		return ".fasta"
	case BAM:
		return ".bam"
	default:
		return ".fastq"
	}
}

// recordWriter is the common shape of fastqio.Writer, fastaio.Writer,
// and bamio.Writer: one View in, one record out.
type recordWriter interface {
	Write(v block.View) error
}

// rotatingSink is one (bucket, segment-or-interleave-label) output
// destination: it owns the currently open file and rotates to a new one
// every ChunkSizeReads, per spec §4.7.
type rotatingSink struct {
	ctx    context.Context
	prefix string
	bucket string
	label  string
	format Format
	codec  Codec

	allowOverwrite bool
	chunkSizeReads int

	curFile  file.File
	curCodec io.WriteCloser
	curRW    recordWriter
	curCount int
	chunkNo  int
}

func newRotatingSink(ctx context.Context, prefix, bucket, label string, format Format, codec Codec, chunkSizeReads int, allowOverwrite bool) *rotatingSink {
	return &rotatingSink{
		ctx: ctx, prefix: prefix, bucket: bucket, label: label,
		format: format, codec: codec,
		allowOverwrite: allowOverwrite, chunkSizeReads: chunkSizeReads,
	}
}

func (s *rotatingSink) path() string {
	ext := s.format.ext()
	if s.format != BAM {
		ext += s.codec.ext()
	}
	return fmt.Sprintf("%s_%s_%s_chunk%05d%s", s.prefix, s.bucket, s.label, s.chunkNo, ext)
}

func (s *rotatingSink) open() error {
	path := s.path()
	if !s.allowOverwrite {
		if _, err := file.Stat(s.ctx, path); err == nil {
			return errors.E(fmt.Sprintf("output: %s already exists and allow_overwrite is false", path))
		}
	}
	f, err := file.Create(s.ctx, path)
	if err != nil {
		return errors.E(err, "output: create", path)
	}
	s.curFile = f
	w := f.Writer(s.ctx)
	switch s.format {
	case BAM:
		bw, err := bamio.NewWriter(w, 0)
		if err != nil {
			return errors.E(err, "output: bam writer", path)
		}
		s.curCodec = nil
		s.curRW = bw
	default:
		cw, err := codecWriteCloser(w, s.codec)
		if err != nil {
			return errors.E(err, "output: codec writer", path)
		}
		s.curCodec = cw
		if s.format == FASTA {
			s.curRW = fastaio.NewWriter(cw)
		} else {
			s.curRW = fastqio.NewWriter(cw)
		}
	}
	s.curCount = 0
	return nil
}

// write rotates to a new chunk once chunkSizeReads is reached, before
// writing v. The first chunk is opened eagerly by New(), not here.
func (s *rotatingSink) write(v block.View) error {
	if s.chunkSizeReads > 0 && s.curCount >= s.chunkSizeReads {
		if err := s.closeCurrent(); err != nil {
			return err
		}
		s.chunkNo++
		if err := s.open(); err != nil {
			return err
		}
	}
	if err := s.curRW.Write(v); err != nil {
		return errors.E(err, "output: write", s.path())
	}
	s.curCount++
	return nil
}

func (s *rotatingSink) closeCurrent() error {
	if s.curRW == nil {
		return nil
	}
	var err error
	if bw, ok := s.curRW.(*bamio.Writer); ok {
		err = bw.Close()
	} else if s.curCodec != nil {
		err = s.curCodec.Close()
	}
	if cerr := s.curFile.Close(s.ctx); cerr != nil && err == nil {
		err = cerr
	}
	s.curRW = nil
	s.curCodec = nil
	s.curFile = nil
	return err
}

// finish flushes and closes whatever chunk is currently open, per
// spec §4.7's finish() contract.
func (s *rotatingSink) finish() error {
	return s.closeCurrent()
}
