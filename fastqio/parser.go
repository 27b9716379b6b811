// Package fastqio implements the FASTQ side of the block source and
// sink (spec §4.2): a BlockParser that turns one or more FASTQ sources
// into a stream of approximately block_size-byte block.Arenas, and a
// Writer that serializes block.View reads back to FASTQ.
package fastqio

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fqproc/biosimd"
	"github.com/grailbio/fqproc/block"
)

// Options configures a BlockParser.
type Options struct {
	// BlockSize is the approximate number of bytes (name, sequence and
	// quality together) to accumulate per emitted Arena before starting
	// a new one. A record
	// is never split across two blocks, so the true size is
	// BlockSize plus at most one record.
	BlockSize int
	// StrictFinalNewline requires the last line of the last source to
	// end in '\n'; when false (the common case for hand-edited test
	// fixtures) a missing final newline is tolerated.
	StrictFinalNewline bool
	// AllowCRLF, when true, strips a trailing '\r' from every line
	// before interpreting it. When false, an embedded '\r' is reported
	// as DisallowedByte.
	AllowCRLF bool
	// ExpectedReadCount is accepted but not used: Next returns only the
	// Arena, so no emitted block carries this count.
	ExpectedReadCount *uint64
}

const defaultBlockSize = 8 << 20 // 8 MiB, matching the teacher's fasta.bufferInitSize order of magnitude scaled down for a per-block unit.

// BlockParser reads an ordered list of Sources as if they were
// concatenated and emits block.Arena-backed blocks of FASTQ reads in
// source order. It is not safe for concurrent use; a caller wanting
// concurrency runs one BlockParser per segment, as the combiner package
// does.
type BlockParser struct {
	opts    Options
	sources []Source
	srcIdx  int
	cur     io.ReadCloser
	br      *bufio.Reader
	offset  int64 // byte offset within the current source
	done    bool
	emitted bool // never set: ExpectedReadCount is not attached to any block
}

// NewBlockParser constructs a parser over sources, applying opts.
func NewBlockParser(sources []Source, opts Options) *BlockParser {
	if opts.BlockSize <= 0 {
		opts.BlockSize = defaultBlockSize
	}
	return &BlockParser{opts: opts, sources: sources, srcIdx: -1}
}

// advanceSource closes the current source (if any) and opens the next
// one, returning false once sources are exhausted.
func (p *BlockParser) advanceSource(ctx context.Context) (bool, error) {
	if p.cur != nil {
		if err := p.cur.Close(); err != nil {
			return false, errors.E(err, "fastqio: closing source", p.sources[p.srcIdx].ID)
		}
		p.cur = nil
	}
	p.srcIdx++
	if p.srcIdx >= len(p.sources) {
		return false, nil
	}
	rc, err := openDecoded(ctx, p.sources[p.srcIdx])
	if err != nil {
		return false, errors.E(err, "fastqio: opening source", p.sources[p.srcIdx].ID)
	}
	p.cur = rc
	p.br = bufio.NewReaderSize(rc, 1<<20)
	p.offset = 0
	return true, nil
}

func (p *BlockParser) sourceID() string {
	if p.srcIdx < 0 || p.srcIdx >= len(p.sources) {
		return "<none>"
	}
	return p.sources[p.srcIdx].ID
}

// readLine returns the next line, without its trailing newline, moving
// across source boundaries transparently. ok is false at overall EOF.
// A source boundary never splits a line: each source is expected to
// hold whole records.
func (p *BlockParser) readLine(ctx context.Context) (line []byte, ok bool, err error) {
	for {
		if p.cur == nil {
			more, aerr := p.advanceSource(ctx)
			if aerr != nil {
				return nil, false, aerr
			}
			if !more {
				return nil, false, nil
			}
		}
		raw, rerr := p.br.ReadBytes('\n')
		if len(raw) > 0 {
			p.offset += int64(len(raw))
			hadNewline := raw[len(raw)-1] == '\n'
			if hadNewline {
				raw = raw[:len(raw)-1]
			}
			if p.opts.AllowCRLF && len(raw) > 0 && raw[len(raw)-1] == '\r' {
				raw = raw[:len(raw)-1]
			}
			if !hadNewline {
				// Final line of this source lacked a newline.
				isLastSource := p.srcIdx == len(p.sources)-1
				if p.opts.StrictFinalNewline && isLastSource {
					return nil, false, &ParseError{
						Kind:       MissingFinalNewline,
						ByteOffset: p.offset,
						SourceID:   p.sourceID(),
					}
				}
			}
			return raw, true, nil
		}
		if rerr == io.EOF {
			p.cur = nil // move to the next source on the next call
			continue
		}
		if rerr != nil {
			return nil, false, errors.E(rerr, "fastqio: reading", p.sourceID())
		}
	}
}

// Next returns the next block of reads, or ok=false once every source
// is exhausted. The returned Arena's Buf holds, for each record, its
// decoded name (without '@'), sequence and quality bytes packed back to
// back, with no newlines or '+' line; Name/Seq/Qual Elements are
// Borrowed into that Buf.
func (p *BlockParser) Next(ctx context.Context) (arena *block.Arena, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}
	var buf []byte
	a := &block.Arena{}
	for len(buf) < p.opts.BlockSize {
		startOffset := p.offset
		startSource := p.sourceID()
		header, hok, herr := p.readLine(ctx)
		if herr != nil {
			return nil, false, herr
		}
		if !hok {
			p.done = true
			break
		}
		if len(header) == 0 || header[0] != '@' {
			return nil, false, &ParseError{Kind: BadHeader, ByteOffset: startOffset, SourceID: startSource}
		}
		seq, sok, serr := p.readLine(ctx)
		if serr != nil {
			return nil, false, serr
		}
		if !sok {
			return nil, false, &ParseError{Kind: TruncatedRecord, ByteOffset: p.offset, SourceID: startSource}
		}
		plus, pok, perr := p.readLine(ctx)
		if perr != nil {
			return nil, false, perr
		}
		if !pok {
			return nil, false, &ParseError{Kind: TruncatedRecord, ByteOffset: p.offset, SourceID: startSource}
		}
		if len(plus) == 0 || plus[0] != '+' {
			return nil, false, &ParseError{Kind: BadHeader, ByteOffset: p.offset, SourceID: startSource, Detail: "separator line does not start with '+'"}
		}
		qual, qok, qerr := p.readLine(ctx)
		if qerr != nil {
			return nil, false, qerr
		}
		if !qok {
			return nil, false, &ParseError{Kind: TruncatedRecord, ByteOffset: p.offset, SourceID: startSource}
		}
		if len(seq) != len(qual) {
			return nil, false, &ParseError{Kind: LengthMismatch, ByteOffset: p.offset, SourceID: startSource}
		}
		if i := disallowedByte(seq); i >= 0 {
			return nil, false, &ParseError{Kind: DisallowedByte, ByteOffset: startOffset, SourceID: startSource, Detail: "seq"}
		}
		if i := forbiddenQualByte(qual); i >= 0 {
			return nil, false, &ParseError{Kind: DisallowedByte, ByteOffset: startOffset, SourceID: startSource, Detail: "qual"}
		}
		nameStart := len(buf)
		buf = append(buf, header[1:]...)
		nameEnd := len(buf)
		seqStart := len(buf)
		buf = append(buf, seq...)
		seqEnd := len(buf)
		qualStart := len(buf)
		buf = append(buf, qual...)
		qualEnd := len(buf)
		a.AddRead(block.Read{
			Name: block.Borrowed(nameStart, nameEnd),
			Seq:  block.Borrowed(seqStart, seqEnd),
			Qual: block.Borrowed(qualStart, qualEnd),
		})
		if p.done {
			break
		}
	}
	a.Buf = buf
	if a.Len() == 0 {
		return nil, false, nil
	}
	return a, true, nil
}

// disallowedByte returns the index of the first control byte (other
// than the data itself) found in a sequence line, or -1 if none.
// Embedded whitespace most commonly indicates a wrapped-FASTA file fed
// in by mistake.
func disallowedByte(seq []byte) int {
	for i, c := range seq {
		if c == ' ' || c == '\t' || c == '\r' {
			return i
		}
	}
	return -1
}

// forbiddenQualByte reports the index of the first quality byte that
// can never be valid Phred encoding (newline, NUL, tab, vertical tab),
// using biosimd's byte-class table rather than re-deriving it here.
func forbiddenQualByte(qual []byte) int {
	for i, c := range qual {
		if biosimd.IsForbiddenQualByte(c) {
			return i
		}
	}
	return -1
}
