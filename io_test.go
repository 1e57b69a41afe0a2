package avro

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZigzagRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 2, -2, 64, -64, 1 << 40, -(1 << 40)} {
		assert.Equal(t, v, zigzagDecode(zigzagEncode(v)), v)
	}
}

func TestBinaryEncoderDecoderIntLong(t *testing.T) {
	var buf bytes.Buffer
	enc := NewBinaryEncoder(&buf)
	require.NoError(t, enc.WriteInt(-3))
	require.NoError(t, enc.WriteLong(1234567890123))

	dec := NewBinaryDecoder(buf.Bytes())
	n, err := dec.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(-3), n)

	l, err := dec.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890123), l)
}

func TestBinaryEncoderDecoderFloatDouble(t *testing.T) {
	var buf bytes.Buffer
	enc := NewBinaryEncoder(&buf)
	require.NoError(t, enc.WriteFloat(3.14))
	require.NoError(t, enc.WriteDouble(2.71828))

	dec := NewBinaryDecoder(buf.Bytes())
	f, err := dec.ReadFloat()
	require.NoError(t, err)
	assert.InDelta(t, float32(3.14), f, 0.0001)

	d, err := dec.ReadDouble()
	require.NoError(t, err)
	assert.InDelta(t, 2.71828, d, 0.00001)
}

func TestBinaryEncoderDecoderBytesString(t *testing.T) {
	var buf bytes.Buffer
	enc := NewBinaryEncoder(&buf)
	require.NoError(t, enc.WriteBytes([]byte{1, 2, 3}))
	require.NoError(t, enc.WriteString("hello"))

	dec := NewBinaryDecoder(buf.Bytes())
	b, err := dec.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	s, err := dec.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestBinaryDecoderRejectsNegativeByteLength(t *testing.T) {
	var buf bytes.Buffer
	enc := NewBinaryEncoder(&buf)
	require.NoError(t, enc.WriteLong(-1))

	dec := NewBinaryDecoder(buf.Bytes())
	_, err := dec.ReadBytes()
	assert.Error(t, err)
}

func TestBinaryDecoderRemaining(t *testing.T) {
	dec := NewBinaryDecoder([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, 3, dec.Remaining())
	_, err := dec.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Remaining())
}

func TestBinaryDecoderFixedShortRead(t *testing.T) {
	dec := NewBinaryDecoder([]byte{0x01, 0x02})
	_, err := dec.ReadFixed(4)
	assert.Error(t, err)
}

func TestBinaryDecoderReadByteAtEOF(t *testing.T) {
	dec := NewBinaryDecoder(nil)
	b, err := dec.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, -1, b)
}
