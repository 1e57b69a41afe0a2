package avrofile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrobridge/avro"
)

type record struct {
	Name string
	Age  int32
}

var recordSchema = `{
	"type": "record", "name": "Record",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "int"}
	]
}`

func TestWriterReaderRoundTripNullCodec(t *testing.T) {
	schema, err := avro.ReadSchema(recordSchema)
	require.NoError(t, err)

	var buf bytes.Buffer
	wr, err := NewWriter(&buf, schema, CodecNull)
	require.NoError(t, err)

	in := []record{{Name: "a", Age: 1}, {Name: "b", Age: 2}, {Name: "c", Age: 3}}
	for _, r := range in {
		require.NoError(t, wr.Append(r))
	}
	require.NoError(t, wr.Close())

	rd, err := NewReader(&buf)
	require.NoError(t, err)
	assert.True(t, avro.Equal(schema, rd.Schema()))

	var out []record
	for {
		var r record
		err := rd.Next(&r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, r)
	}
	assert.Equal(t, in, out)
}

func TestWriterReaderRoundTripDeflateCodec(t *testing.T) {
	schema, err := avro.ReadSchema(recordSchema)
	require.NoError(t, err)

	var buf bytes.Buffer
	wr, err := NewWriter(&buf, schema, CodecDeflate)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, wr.Append(record{Name: "x", Age: int32(i)}))
	}
	require.NoError(t, wr.Close())

	rd, err := NewReader(&buf)
	require.NoError(t, err)

	count := 0
	for {
		var r record
		err := rd.Next(&r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 10, count)
}

func TestWriterFlushesMultipleBlocks(t *testing.T) {
	schema, err := avro.ReadSchema(recordSchema)
	require.NoError(t, err)

	var buf bytes.Buffer
	wr, err := NewWriter(&buf, schema, CodecNull)
	require.NoError(t, err)
	wr.BlockSize = 2

	for i := 0; i < 5; i++ {
		require.NoError(t, wr.Append(record{Name: "n", Age: int32(i)}))
	}
	require.NoError(t, wr.Close())

	rd, err := NewReader(&buf)
	require.NoError(t, err)

	var ages []int32
	for {
		var r record
		err := rd.Next(&r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ages = append(ages, r.Age)
	}
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, ages)
}

func TestNewReaderRejectsBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not an avro file")))
	assert.Error(t, err)
}

func TestNewWriterRejectsUnknownCodec(t *testing.T) {
	schema, err := avro.ReadSchema(recordSchema)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = NewWriter(&buf, schema, Codec("snappy"))
	assert.Error(t, err)
}

func TestReaderDetectsSyncMarkerMismatch(t *testing.T) {
	schema, err := avro.ReadSchema(recordSchema)
	require.NoError(t, err)

	var buf bytes.Buffer
	wr, err := NewWriter(&buf, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, wr.Append(record{Name: "a", Age: 1}))
	require.NoError(t, wr.Close())

	corrupted := buf.Bytes()
	// Flip a byte inside the trailing sync marker.
	corrupted[len(corrupted)-1] ^= 0xff

	rd, err := NewReader(bytes.NewReader(corrupted))
	require.NoError(t, err)
	var r record
	err = rd.Next(&r)
	assert.Error(t, err)
}
