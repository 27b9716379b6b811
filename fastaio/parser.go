// Package fastaio implements the FASTA side of the block source and
// sink (spec §4.2): streaming, multi-line FASTA records folded into
// block.Arena blocks alongside a synthesized quality track, since the
// processor's Read model always carries one.
//
// Grounded on encoding/fasta.go's name-up-to-first-space and
// concatenate-wrapped-lines parsing, adapted from "load a whole
// reference into memory for random access" to "stream records through
// bounded-size blocks" — this package never holds more than one block's
// worth of sequence at a time.
package fastaio

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fqproc/block"
)

// SyntheticQualByte fills the Qual track fqproc attaches to FASTA reads,
// which carry no quality information of their own. 'I' is Phred+33 for
// Q40, the conventional "maximum confidence" placeholder.
const SyntheticQualByte = 'I'

const defaultBlockSize = 8 << 20

// Options configures a BlockParser.
type Options struct {
	BlockSize         int
	ExpectedReadCount *uint64
}

// BlockParser reads an ordered list of Sources as if they were
// concatenated and emits block.Arena-backed blocks of FASTA records,
// each given a synthetic Qual track of SyntheticQualByte.
type BlockParser struct {
	opts    Options
	sources []Source
	srcIdx  int
	cur     io.ReadCloser
	br      *bufio.Reader
	offset  int64
	done    bool

	pendingName []byte // header of a record not yet fully consumed
	havePending bool
}

// NewBlockParser constructs a parser over sources, applying opts.
func NewBlockParser(sources []Source, opts Options) *BlockParser {
	if opts.BlockSize <= 0 {
		opts.BlockSize = defaultBlockSize
	}
	return &BlockParser{opts: opts, sources: sources, srcIdx: -1}
}

func (p *BlockParser) advanceSource(ctx context.Context) (bool, error) {
	if p.cur != nil {
		if err := p.cur.Close(); err != nil {
			return false, errors.E(err, "fastaio: closing source", p.sources[p.srcIdx].ID)
		}
		p.cur = nil
	}
	p.srcIdx++
	if p.srcIdx >= len(p.sources) {
		return false, nil
	}
	rc, err := openDecoded(ctx, p.sources[p.srcIdx])
	if err != nil {
		return false, errors.E(err, "fastaio: opening source", p.sources[p.srcIdx].ID)
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

// readLine returns the next line (without its newline) across source
// boundaries, or ok=false at overall EOF.
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
			if raw[len(raw)-1] == '\n' {
				raw = raw[:len(raw)-1]
			}
			if len(raw) > 0 && raw[len(raw)-1] == '\r' {
				raw = raw[:len(raw)-1]
			}
			return raw, true, nil
		}
		if rerr == io.EOF {
			p.cur = nil
			continue
		}
		if rerr != nil {
			return nil, false, errors.E(rerr, "fastaio: reading", p.sourceID())
		}
	}
}

// Next returns the next block of records, or ok=false once every source
// is exhausted and no pending record remains.
func (p *BlockParser) Next(ctx context.Context) (arena *block.Arena, ok bool, err error) {
	if p.done && !p.havePending {
		return nil, false, nil
	}
	var buf []byte
	a := &block.Arena{}
	for len(buf) < p.opts.BlockSize {
		var header []byte
		recordOffset := p.offset
		recordSource := p.sourceID()
		if p.havePending {
			header = p.pendingName
			p.havePending = false
		} else {
			var hok bool
			header, hok, err = p.readLine(ctx)
			if err != nil {
				return nil, false, err
			}
			if !hok {
				p.done = true
				break
			}
		}
		if len(header) == 0 || header[0] != '>' {
			return nil, false, &ParseError{Kind: BadHeader, ByteOffset: recordOffset, SourceID: recordSource}
		}
		name := header[1:]
		if i := bytes.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}

		var seq []byte
		for {
			line, lok, lerr := p.readLine(ctx)
			if lerr != nil {
				return nil, false, lerr
			}
			if !lok {
				p.done = true
				break
			}
			if len(line) > 0 && line[0] == '>' {
				p.pendingName = line
				p.havePending = true
				break
			}
			if i := disallowedByte(line); i >= 0 {
				return nil, false, &ParseError{Kind: DisallowedByte, ByteOffset: recordOffset, SourceID: recordSource}
			}
			seq = append(seq, line...)
		}
		if len(seq) == 0 {
			return nil, false, &ParseError{Kind: EmptySequence, ByteOffset: recordOffset, SourceID: recordSource}
		}

		nameStart := len(buf)
		buf = append(buf, name...)
		nameEnd := len(buf)
		seqStart := len(buf)
		buf = append(buf, seq...)
		seqEnd := len(buf)
		qualStart := len(buf)
		for range seq {
			buf = append(buf, SyntheticQualByte)
		}
		qualEnd := len(buf)
		a.AddRead(block.Read{
			Name: block.Borrowed(nameStart, nameEnd),
			Seq:  block.Borrowed(seqStart, seqEnd),
			Qual: block.Borrowed(qualStart, qualEnd),
		})
		if p.done && !p.havePending {
			break
		}
	}
	a.Buf = buf
	if a.Len() == 0 {
		return nil, false, nil
	}
	return a, true, nil
}

func disallowedByte(seq []byte) int {
	for i, c := range seq {
		if c == ' ' || c == '\t' {
			return i
		}
	}
	return -1
}
