package avrofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressBlockNull(t *testing.T) {
	raw := []byte("hello world")
	block, err := compressBlock(CodecNull, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, block)

	out, err := decompressBlock(CodecNull, block)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestCompressDecompressBlockDeflate(t *testing.T) {
	raw := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")
	block, err := compressBlock(CodecDeflate, raw)
	require.NoError(t, err)
	assert.Less(t, len(block), len(raw))

	out, err := decompressBlock(CodecDeflate, block)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestCompressBlockRejectsUnknownCodec(t *testing.T) {
	_, err := compressBlock(Codec("bogus"), []byte("x"))
	assert.Error(t, err)
}

func TestDecompressBlockRejectsUnknownCodec(t *testing.T) {
	_, err := decompressBlock(Codec("bogus"), []byte("x"))
	assert.Error(t, err)
}
