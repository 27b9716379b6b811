package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/fqproc/config"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeTOML(t *testing.T, dir, contents string) string {
	path := filepath.Join(dir, "run.toml")
	assert.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "fqproc-config")
	assert.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestLoadSegmentedConfig(t *testing.T) {
	dir := tempDir(t)
	path := writeTOML(t, dir, `
[input]
mode = "segmented"
[input.segments]
read1 = ["a_R1.fastq.gz"]
read2 = ["a_R2.fastq.gz"]

[output]
prefix = "out"
format = "fastq"
codec = "gzip"

[options]
separator = "_"
thread_count = 4

[[step]]
type = "cut_end"
[step.args]
n = 2
`)
	cfg, err := config.Load(path)
	assert.NoError(t, err)
	expect.EQ(t, cfg.Input.Mode, "segmented")
	expect.EQ(t, len(cfg.Input.Segments["read1"]), 1)
	expect.EQ(t, cfg.Output.Prefix, "out")
	expect.EQ(t, cfg.Options.ThreadCount, 4)
	assert.EQ(t, len(cfg.Steps), 1)
	expect.EQ(t, cfg.Steps[0].Type, "cut_end")

	assert.NoError(t, config.Validate(cfg))
}

func TestValidateSegmentedRequiresASegment(t *testing.T) {
	cfg := &config.Config{Input: config.Input{Mode: "segmented"}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "segmented input requires")
}

func TestValidateInterleavedBlockSizeParity(t *testing.T) {
	cfg := &config.Config{Input: config.Input{
		Mode:         "interleaved",
		SegmentOrder: []string{"read1", "read2"},
		BlockSize:    100,
	}}
	assert.NoError(t, config.Validate(cfg))

	cfg.Input.BlockSize = 101
	assert.HasSubstr(t, config.Validate(cfg).Error(), "must be even")
}

func TestValidateInterleavedBlockSizeMultipleOfSegmentCount(t *testing.T) {
	cfg := &config.Config{Input: config.Input{
		Mode:         "interleaved",
		SegmentOrder: []string{"read1", "read2", "read3"},
		BlockSize:    4,
	}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "multiple of the interleaved segment count")
}

func TestValidateInterleavedRequiresSegmentOrder(t *testing.T) {
	cfg := &config.Config{Input: config.Input{Mode: "interleaved"}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "requires segment_order")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &config.Config{Input: config.Input{Mode: "bogus"}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "input.mode must be")
}

func TestValidateSeparatorCharset(t *testing.T) {
	base := config.Input{Mode: "segmented", Segments: map[string][]string{"read1": {"a.fastq"}}}

	cfg := &config.Config{Input: base, Options: config.Options{Separator: "/"}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "must not be /")

	cfg = &config.Config{Input: base, Options: config.Options{Separator: "::"}}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "exactly one character")

	cfg = &config.Config{Input: base, Options: config.Options{Separator: "-"}}
	assert.NoError(t, config.Validate(cfg))

	cfg = &config.Config{Input: base}
	assert.NoError(t, config.Validate(cfg))
}

func TestValidateOutputInterleaveUnknownSegment(t *testing.T) {
	cfg := &config.Config{
		Input: config.Input{
			Mode:     "segmented",
			Segments: map[string][]string{"read1": {"a.fastq"}},
		},
		Output: config.Output{Interleave: []string{"read2"}},
	}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "output.interleave names unknown segment")
}

func TestValidateBarcodeUnknownSegment(t *testing.T) {
	cfg := &config.Config{
		Input: config.Input{
			Mode:     "segmented",
			Segments: map[string][]string{"read1": {"a.fastq"}},
		},
		Barcodes: map[string]config.Barcode{
			"lane": {Segment: "read9", Sequences: map[string]string{"ACGT": "X"}},
		},
	}
	assert.HasSubstr(t, config.Validate(cfg).Error(), "barcodes table references unknown segment")
}

func TestValidateInterleavedConfigEndToEnd(t *testing.T) {
	cfg := &config.Config{
		Input: config.Input{
			Mode:         "interleaved",
			Files:        []string{"a.fastq"},
			SegmentOrder: []string{"r1", "r2"},
			BlockSize:    6,
		},
		Output: config.Output{Interleave: []string{"r1", "r2"}},
		Barcodes: map[string]config.Barcode{
			"lane": {Segment: "r1", Sequences: map[string]string{"ACGT": "X"}},
		},
	}
	assert.NoError(t, config.Validate(cfg))
}
