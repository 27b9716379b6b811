package bamio_test

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/grailbio/fqproc/bamio"
	"github.com/grailbio/fqproc/block"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriterProducesValidBGZF(t *testing.T) {
	a := block.NewArena([]byte("r1ACGTIIII"))
	a.AddRead(block.Read{
		Name: block.Borrowed(0, 2),
		Seq:  block.Borrowed(2, 6),
		Qual: block.Borrowed(6, 10),
	})

	var out bytes.Buffer
	w, err := bamio.NewWriter(&out, flate.DefaultCompression)
	assert.NoError(t, err)
	assert.NoError(t, w.Write(a.View(0)))
	assert.NoError(t, w.Close())

	// A valid BGZF stream is itself a valid gzip stream; the BGZF EOF
	// terminator is a well-formed empty gzip member appended at the end.
	b := out.Bytes()
	expect.True(t, len(b) > 28, "expected at least the terminator block, got %d bytes", len(b))
	expect.EQ(t, b[0], byte(0x1f))
	expect.EQ(t, b[1], byte(0x8b))
}
