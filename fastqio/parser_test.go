package fastqio_test

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"testing"

	"github.com/grailbio/fqproc/fastqio"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeFastq(t *testing.T, path string, lines []string) {
	data := ""
	for _, l := range lines {
		data += l + "\n"
	}
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0600))
}

func readAllBlocks(t *testing.T, p *fastqio.BlockParser) [][]string {
	ctx := context.Background()
	var got [][]string
	for {
		arena, ok, err := p.Next(ctx)
		assert.NoError(t, err)
		if !ok {
			break
		}
		var names []string
		for i := 0; i < arena.Len(); i++ {
			v := arena.View(i)
			names = append(names, string(v.Name())+"|"+string(v.Seq())+"|"+string(v.Qual()))
		}
		got = append(got, names)
	}
	return got
}

func TestBlockParserSingleSegmentPassthrough(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{
		"@r1 comment", "ACGT", "+", "IIII",
		"@r2", "TTTT", "+", "####",
	})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	blocks := readAllBlocks(t, p)
	expect.EQ(t, len(blocks), 1)
	expect.EQ(t, blocks[0][0], "r1 comment|ACGT|IIII")
	expect.EQ(t, blocks[0][1], "r2|TTTT|####")
}

func TestBlockParserSmallBlockSizeSplitsRecordsNotWithinOne(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{
		"@r1", "ACGTACGTAC", "+", "IIIIIIIIII",
		"@r2", "TTTTTTTTTT", "+", "##########",
		"@r3", "GGGGGGGGGG", "+", "HHHHHHHHHH",
	})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 15})
	ctx := context.Background()
	total := 0
	for {
		arena, ok, err := p.Next(ctx)
		assert.NoError(t, err)
		if !ok {
			break
		}
		assert.NoError(t, arena.CheckInvariants())
		total += arena.Len()
	}
	expect.EQ(t, total, 3)
}

func TestBlockParserChainsSources(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path1 := fmt.Sprintf("%s/a.fastq", tempDir)
	path2 := fmt.Sprintf("%s/b.fastq", tempDir)
	writeFastq(t, path1, []string{"@r1", "ACGT", "+", "IIII"})
	writeFastq(t, path2, []string{"@r2", "TTTT", "+", "####"})
	p := fastqio.NewBlockParser([]fastqio.Source{
		{ID: path1, Path: path1},
		{ID: path2, Path: path2},
	}, fastqio.Options{BlockSize: 1 << 20})
	blocks := readAllBlocks(t, p)
	var all []string
	for _, b := range blocks {
		all = append(all, b...)
	}
	expect.EQ(t, len(all), 2)
	expect.EQ(t, all[0], "r1|ACGT|IIII")
	expect.EQ(t, all[1], "r2|TTTT|####")
}

func TestBlockParserBadHeader(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{"r1", "ACGT", "+", "IIII"})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	_, _, err := p.Next(context.Background())
	expect.NotNil(t, err)
	perr, ok := err.(*fastqio.ParseError)
	assert.True(t, ok, "expected *fastqio.ParseError, got %T", err)
	expect.EQ(t, perr.Kind, fastqio.BadHeader)
}

func TestBlockParserTruncatedRecord(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{"@r1", "ACGT", "+"})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	_, _, err := p.Next(context.Background())
	expect.NotNil(t, err)
	perr, ok := err.(*fastqio.ParseError)
	assert.True(t, ok, "expected *fastqio.ParseError, got %T", err)
	expect.EQ(t, perr.Kind, fastqio.TruncatedRecord)
}

func TestBlockParserLengthMismatch(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{"@r1", "ACGT", "+", "III"})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	_, _, err := p.Next(context.Background())
	expect.NotNil(t, err)
	perr, ok := err.(*fastqio.ParseError)
	assert.True(t, ok, "expected *fastqio.ParseError, got %T", err)
	expect.EQ(t, perr.Kind, fastqio.LengthMismatch)
}

func TestBlockParserStrictFinalNewline(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	assert.NoError(t, ioutil.WriteFile(path, []byte("@r1\nACGT\n+\nIIII"), 0600))
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{
		BlockSize:          1 << 20,
		StrictFinalNewline: true,
	})
	_, _, err := p.Next(context.Background())
	expect.NotNil(t, err)
	perr, ok := err.(*fastqio.ParseError)
	assert.True(t, ok, "expected *fastqio.ParseError, got %T", err)
	expect.EQ(t, perr.Kind, fastqio.MissingFinalNewline)
}

func TestBlockParserTolerantFinalNewline(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	assert.NoError(t, ioutil.WriteFile(path, []byte("@r1\nACGT\n+\nIIII"), 0600))
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	blocks := readAllBlocks(t, p)
	expect.EQ(t, len(blocks), 1)
	expect.EQ(t, blocks[0][0], "r1|ACGT|IIII")
}

func TestWriterRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := fmt.Sprintf("%s/in.fastq", tempDir)
	writeFastq(t, path, []string{"@r1 c", "ACGT", "+", "IIII"})
	p := fastqio.NewBlockParser([]fastqio.Source{{ID: path, Path: path}}, fastqio.Options{BlockSize: 1 << 20})
	arena, ok, err := p.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok, "expected a block")
	var buf bytes.Buffer
	w := fastqio.NewWriter(&buf)
	for i := 0; i < arena.Len(); i++ {
		assert.NoError(t, w.Write(arena.View(i)))
	}
	expect.EQ(t, buf.String(), "@r1 c\nACGT\n+\nIIII\n")
}
