// Package config decodes and structurally validates the TOML
// configuration spec.md §6 describes: input segments, output sinks,
// barcode tables, and the linear step list. Per-step argument schemas
// (the ~100 concrete operators) are a collaborator concern and are
// passed through as an open-ended args table rather than validated
// here.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/grailbio/base/errors"
)

// Config is the root decoded document.
type Config struct {
	Input    Input              `toml:"input"`
	Output   Output             `toml:"output"`
	Options  Options            `toml:"options"`
	Barcodes map[string]Barcode `toml:"barcodes"`
	Steps    []Step             `toml:"step"`
}

// Input describes the run's input segments, per spec.md §6.
type Input struct {
	// Mode is "segmented" or "interleaved".
	Mode string `toml:"mode"`
	// Segments maps segment name to its ordered list of source files,
	// used when Mode == "segmented".
	Segments map[string][]string `toml:"segments"`
	// Files is the single chained source list used when
	// Mode == "interleaved".
	Files []string `toml:"files"`
	// SegmentOrder names the segments an interleaved stream is split
	// into, in round-robin order.
	SegmentOrder []string `toml:"segment_order"`

	// Format is "fastq" (default) or "fasta".
	Format             string `toml:"format"`
	BlockSize          int    `toml:"block_size"`
	StrictFinalNewline bool   `toml:"strict_final_newline"`
	AcceptCRLF         bool   `toml:"accept_crlf"`
}

// Output describes the run's output sinks.
type Output struct {
	Prefix         string   `toml:"prefix"`
	Dir            string   `toml:"dir"`
	Format         string   `toml:"format"` // "fastq", "fasta", or "bam"
	Codec          string   `toml:"codec"`  // "raw", "gzip", or "zstd"
	Interleave     []string `toml:"interleave"`
	ChunkSizeReads int      `toml:"chunk_size_reads"`
	AllowOverwrite bool     `toml:"allow_overwrite"`
}

// Options holds run-wide knobs that aren't specific to input or output.
type Options struct {
	Separator   string `toml:"separator"`
	ThreadCount int    `toml:"thread_count"`
}

// Barcode is one `[barcodes.<name>]` table: a segment to read from and
// a sequence -> bucket-name table. Validate checks that Segment names a
// declared input segment; nothing else reads these tables, and a
// demultiplex step takes its barcodes from its own [[step]] args.
type Barcode struct {
	Segment          string            `toml:"segment"`
	Sequences        map[string]string `toml:"sequences"`
	IncludeNoBarcode bool              `toml:"include_no_barcode"`
}

// Step is one `[[step]]` entry: an operator type name plus its
// open-ended argument table, deferred to the operator's own decoding.
type Step struct {
	Type        string                 `toml:"type"`
	ThreadCount int                    `toml:"thread_count"`
	Args        map[string]interface{} `toml:"args"`
}

// Load decodes the TOML document at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.E(err, "config: decode", path)
	}
	return &cfg, nil
}

// disallowedSeparators lists separator characters spec.md §6 forbids
// because they collide with path or bucket-naming syntax.
var disallowedSeparators = map[string]bool{"/": true, "\\": true, ":": true}

// Validate performs the structural checks spec.md §6 calls for: parity
// of block_size under interleaved input, separator charset, and
// named-segment consistency between input and output. It does not
// check file existence or per-step argument schemas — those are
// collaborator concerns (spec.md §1).
func Validate(cfg *Config) error {
	switch cfg.Input.Mode {
	case "segmented":
		if len(cfg.Input.Segments) == 0 {
			return errors.E("config: segmented input requires at least one segment")
		}
	case "interleaved":
		if len(cfg.Input.SegmentOrder) == 0 {
			return errors.E("config: interleaved input requires segment_order")
		}
		if cfg.Input.BlockSize%2 != 0 {
			return errors.E("config: block_size must be even for interleaved input")
		}
		if cfg.Input.BlockSize%len(cfg.Input.SegmentOrder) != 0 {
			return errors.E("config: block_size must be a multiple of the interleaved segment count")
		}
		// Not checked: block_size >= 2*len(SegmentOrder). The boundary
		// note alongside the even-ness rule suggests a lower bound, but
		// no surviving validation code disambiguates it further, so it's
		// left unenforced rather than guessed at.
	default:
		return errors.E("config: input.mode must be \"segmented\" or \"interleaved\", got", cfg.Input.Mode)
	}

	switch cfg.Input.Format {
	case "", "fastq", "fasta":
	default:
		return errors.E("config: input.format must be \"fastq\" or \"fasta\", got", cfg.Input.Format)
	}

	sep := cfg.Options.Separator
	if sep == "" {
		sep = "_"
	}
	if len(sep) != 1 {
		return errors.E("config: options.separator must be exactly one character")
	}
	if disallowedSeparators[sep] {
		return errors.E("config: options.separator must not be /, \\, or :")
	}

	segments := segmentNames(cfg.Input)
	for _, name := range cfg.Output.Interleave {
		if !segments[name] {
			return errors.E("config: output.interleave names unknown segment", name)
		}
	}
	for _, bc := range cfg.Barcodes {
		if bc.Segment != "" && !segments[bc.Segment] {
			return errors.E("config: barcodes table references unknown segment", bc.Segment)
		}
	}
	return nil
}

func segmentNames(in Input) map[string]bool {
	names := map[string]bool{}
	if in.Mode == "segmented" {
		for name := range in.Segments {
			names[name] = true
		}
	} else {
		for _, name := range in.SegmentOrder {
			names[name] = true
		}
	}
	return names
}
