// Package avrofile implements the Avro Object Container File format: a
// self-describing file layout embedding the writer schema in its header,
// distinct from the Confluent wire format of avro/registry.
package avrofile

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/avrobridge/avro"
)

var magic = [4]byte{'O', 'b', 'j', 1}

const syncMarkerLen = 16

// Codec names the block compression codec declared in a file's metadata.
type Codec string

const (
	// CodecNull stores blocks uncompressed.
	CodecNull Codec = "null"
	// CodecDeflate compresses blocks with compress/flate's DEFLATE,
	// grounded on klauspost/compress/flate for the faster implementation.
	CodecDeflate Codec = "deflate"
)

const (
	metaSchemaKey = "avro.schema"
	metaCodecKey  = "avro.codec"
)

// Writer appends Avro-encoded objects to an Object Container File, grouping
// them into blocks and flushing a block once it reaches BlockSize objects.
type Writer struct {
	w          io.Writer
	schema     avro.Schema
	codec      Codec
	sync       [syncMarkerLen]byte
	BlockSize  int
	pending    [][]byte
	headerDone bool
}

// NewWriter creates a Writer that will emit a fresh header (schema,
// metadata, random sync marker) before the first block.
func NewWriter(w io.Writer, schema avro.Schema, codec Codec) (*Writer, error) {
	if codec != CodecNull && codec != CodecDeflate {
		return nil, fmt.Errorf("avrofile: unsupported codec %q", codec)
	}
	wr := &Writer{w: w, schema: schema, codec: codec, BlockSize: 100}
	if _, err := rand.Read(wr.sync[:]); err != nil {
		return nil, fmt.Errorf("avrofile: generate sync marker: %w", err)
	}
	return wr, nil
}

func (wr *Writer) writeHeader() error {
	if wr.headerDone {
		return nil
	}
	if _, err := wr.w.Write(magic[:]); err != nil {
		return err
	}

	schemaJSON, err := avro.WriteSchema(wr.schema, false)
	if err != nil {
		return fmt.Errorf("avrofile: encode schema: %w", err)
	}
	meta := map[string][]byte{
		metaSchemaKey: schemaJSON,
		metaCodecKey:  []byte(wr.codec),
	}

	enc := avro.NewBinaryEncoder(wr.w)
	if err := writeMetaMap(enc, meta); err != nil {
		return err
	}
	if err := enc.Write(wr.sync[:]); err != nil {
		return err
	}
	wr.headerDone = true
	return nil
}

// Append encodes v against the file's schema and queues it for the current
// block, flushing automatically once BlockSize objects have accumulated.
func (wr *Writer) Append(v any) error {
	if err := wr.writeHeader(); err != nil {
		return err
	}
	b, err := avro.Marshal(wr.schema, v)
	if err != nil {
		return fmt.Errorf("avrofile: marshal object: %w", err)
	}
	wr.pending = append(wr.pending, b)
	if len(wr.pending) >= wr.BlockSize {
		return wr.Flush()
	}
	return nil
}

// Flush writes any pending objects out as one data block, even if it has
// fewer than BlockSize objects.
func (wr *Writer) Flush() error {
	if err := wr.writeHeader(); err != nil {
		return err
	}
	if len(wr.pending) == 0 {
		return nil
	}

	var raw bytes.Buffer
	for _, obj := range wr.pending {
		raw.Write(obj)
	}

	block, err := compressBlock(wr.codec, raw.Bytes())
	if err != nil {
		return err
	}

	enc := avro.NewBinaryEncoder(wr.w)
	if err := enc.WriteLong(int64(len(wr.pending))); err != nil {
		return err
	}
	if err := enc.WriteLong(int64(len(block))); err != nil {
		return err
	}
	if err := enc.Write(block); err != nil {
		return err
	}
	if err := enc.Write(wr.sync[:]); err != nil {
		return err
	}
	wr.pending = wr.pending[:0]
	return nil
}

// Close flushes any pending block. It does not close the underlying writer.
func (wr *Writer) Close() error {
	return wr.Flush()
}

func writeMetaMap(enc avro.Encoder, meta map[string][]byte) error {
	if len(meta) > 0 {
		if err := enc.WriteLong(int64(len(meta))); err != nil {
			return err
		}
		for k, v := range meta {
			if err := enc.WriteString(k); err != nil {
				return err
			}
			if err := enc.WriteBytes(v); err != nil {
				return err
			}
		}
	}
	return enc.WriteLong(0)
}

func readMetaMap(dec avro.Decoder) (map[string][]byte, error) {
	meta := map[string][]byte{}
	for {
		count, err := dec.ReadLong()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return meta, nil
		}
		if count < 0 {
			count = -count
			if _, err := dec.ReadLong(); err != nil {
				return nil, err
			}
		}
		for i := int64(0); i < count; i++ {
			k, err := dec.ReadString()
			if err != nil {
				return nil, err
			}
			v, err := dec.ReadBytes()
			if err != nil {
				return nil, err
			}
			meta[k] = v
		}
	}
}

// Reader iterates the objects stored in an Object Container File, decoding
// each block against the writer schema recorded in the file's header.
type Reader struct {
	dec    *avro.BinaryDecoder
	schema avro.Schema
	codec  Codec
	sync   [syncMarkerLen]byte

	blockDec  *avro.BinaryDecoder
	blockLeft int64
}

// NewReader parses the file header from r's full contents (Object Container
// Files are not designed for incremental network streaming, so the whole
// payload is read up front).
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("avrofile: read file: %w", err)
	}
	if len(data) < 4 || !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("avrofile: missing Obj\\x01 magic header")
	}

	dec := avro.NewBinaryDecoder(data[4:])
	meta, err := readMetaMap(dec)
	if err != nil {
		return nil, fmt.Errorf("avrofile: read metadata: %w", err)
	}
	schemaJSON, ok := meta[metaSchemaKey]
	if !ok {
		return nil, fmt.Errorf("avrofile: metadata missing %q", metaSchemaKey)
	}
	schema, err := avro.ReadSchema(string(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("avrofile: parse schema: %w", err)
	}
	codec := Codec(meta[metaCodecKey])
	if codec == "" {
		codec = CodecNull
	}

	syncBytes, err := dec.ReadFixed(syncMarkerLen)
	if err != nil {
		return nil, fmt.Errorf("avrofile: read sync marker: %w", err)
	}

	rd := &Reader{dec: dec, schema: schema, codec: codec}
	copy(rd.sync[:], syncBytes)
	return rd, nil
}

// Schema returns the writer schema recorded in the file header.
func (rd *Reader) Schema() avro.Schema { return rd.schema }

// Next decodes the next object into target, which must be a non-nil
// pointer. It returns io.EOF once every block has been consumed.
func (rd *Reader) Next(target any) error {
	for rd.blockLeft <= 0 {
		if err := rd.loadBlock(); err != nil {
			return err
		}
	}
	if err := avro.UnmarshalFrom(rd.schema, rd.blockDec, target); err != nil {
		return err
	}
	rd.blockLeft--
	return nil
}

func (rd *Reader) loadBlock() error {
	if rd.dec.Remaining() == 0 {
		return io.EOF
	}
	count, err := rd.dec.ReadLong()
	if err != nil {
		return err
	}
	size, err := rd.dec.ReadLong()
	if err != nil {
		return err
	}
	block, err := rd.dec.ReadFixed(int(size))
	if err != nil {
		return err
	}
	marker, err := rd.dec.ReadFixed(syncMarkerLen)
	if err != nil {
		return err
	}
	if !bytes.Equal(marker, rd.sync[:]) {
		return fmt.Errorf("avrofile: sync marker mismatch, file may be corrupt")
	}

	raw, err := decompressBlock(rd.codec, block)
	if err != nil {
		return err
	}
	rd.blockDec = avro.NewBinaryDecoder(raw)
	rd.blockLeft = count
	return nil
}
