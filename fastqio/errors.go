package fastqio

import "fmt"

// ParseErrorKind enumerates the ways a FASTQ stream can fail to parse,
// per spec §4.2/§7.
type ParseErrorKind int

const (
	// BadHeader: a record did not begin with '@' where expected.
	BadHeader ParseErrorKind = iota
	// DisallowedByte: seq or qual contained a byte outside what's
	// permitted (embedded whitespace, wrapped FASTA, or an
	// out-of-alphabet quality byte).
	DisallowedByte
	// LengthMismatch: len(seq) != len(qual) for a record.
	LengthMismatch
	// TruncatedRecord: EOF in the middle of a record.
	TruncatedRecord
	// MissingFinalNewline: the final record lacked a trailing newline
	// and strict_final_newline was set.
	MissingFinalNewline
)

func (k ParseErrorKind) String() string {
	switch k {
	case BadHeader:
		return "bad_header"
	case DisallowedByte:
		return "disallowed_byte"
	case LengthMismatch:
		return "length_mismatch"
	case TruncatedRecord:
		return "truncated_record"
	case MissingFinalNewline:
		return "missing_final_newline"
	default:
		return "unknown"
	}
}

// ParseError reports a malformed FASTQ input, per spec §7's ParseError
// taxonomy: kind, byte offset, and the source that produced it.
type ParseError struct {
	Kind       ParseErrorKind
	ByteOffset int64
	SourceID   string
	Detail     string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("fastqio: %s at %s:%d: %s", e.Kind, e.SourceID, e.ByteOffset, e.Detail)
	}
	return fmt.Sprintf("fastqio: %s at %s:%d", e.Kind, e.SourceID, e.ByteOffset)
}
