package avro

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Decoder is the byte-source contract of spec.md §4.5.4: positional,
// forward-only, no seeking. ReadByte returns -1 at EOF instead of an error
// so callers can distinguish a clean end from a short-read failure.
type Decoder interface {
	ReadByte() (int, error)
	Read(buf []byte) (int, error)

	ReadBoolean() (bool, error)
	ReadInt() (int32, error)
	ReadLong() (int64, error)
	ReadFloat() (float32, error)
	ReadDouble() (float64, error)
	ReadBytes() ([]byte, error)
	ReadString() (string, error)
	ReadFixed(size int) ([]byte, error)
}

// Encoder is the byte-sink contract of spec.md §4.5.4.
type Encoder interface {
	WriteByte(b byte) error
	Write(buf []byte) error

	WriteBoolean(v bool) error
	WriteInt(v int32) error
	WriteLong(v int64) error
	WriteFloat(v float32) error
	WriteDouble(v float64) error
	WriteBytes(v []byte) error
	WriteString(v string) error
	WriteFixed(v []byte) error
}

// BinaryDecoder reads the Avro binary encoding from an in-memory byte slice.
type BinaryDecoder struct {
	buf []byte
	pos int
}

func NewBinaryDecoder(buf []byte) *BinaryDecoder {
	return &BinaryDecoder{buf: buf}
}

// Remaining reports how many unread bytes are left in the decoder's buffer.
func (d *BinaryDecoder) Remaining() int {
	return len(d.buf) - d.pos
}

func (d *BinaryDecoder) ReadByte() (int, error) {
	if d.pos >= len(d.buf) {
		return -1, nil
	}
	b := d.buf[d.pos]
	d.pos++
	return int(b), nil
}

func (d *BinaryDecoder) Read(buf []byte) (int, error) {
	n := copy(buf, d.buf[d.pos:])
	d.pos += n
	if n < len(buf) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (d *BinaryDecoder) ReadBoolean() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	if b < 0 {
		return false, &InvalidDataError{Reason: "unexpected EOF reading boolean"}
	}
	return b != 0, nil
}

func (d *BinaryDecoder) readVarint() (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < 10; i++ {
		b, err := d.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0 {
			return 0, &InvalidDataError{Reason: "unexpected EOF reading varint"}
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, &InvalidDataError{Reason: "varint too long"}
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func (d *BinaryDecoder) ReadInt() (int32, error) {
	v, err := d.readVarint()
	if err != nil {
		return 0, err
	}
	return int32(zigzagDecode(v)), nil
}

func (d *BinaryDecoder) ReadLong() (int64, error) {
	v, err := d.readVarint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(v), nil
}

func (d *BinaryDecoder) ReadFloat() (float32, error) {
	if len(d.buf)-d.pos < 4 {
		return 0, &InvalidDataError{Reason: "unexpected EOF reading float"}
	}
	bits := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return math.Float32frombits(bits), nil
}

func (d *BinaryDecoder) ReadDouble() (float64, error) {
	if len(d.buf)-d.pos < 8 {
		return 0, &InvalidDataError{Reason: "unexpected EOF reading double"}
	}
	bits := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return math.Float64frombits(bits), nil
}

func (d *BinaryDecoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, &InvalidDataError{Reason: "negative byte-length"}
	}
	return d.ReadFixed(int(n))
}

func (d *BinaryDecoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &InvalidDataError{Reason: "string is not valid UTF-8"}
	}
	return string(b), nil
}

func (d *BinaryDecoder) ReadFixed(size int) ([]byte, error) {
	if len(d.buf)-d.pos < size {
		return nil, &InvalidDataError{Reason: "unexpected EOF reading fixed-size data"}
	}
	out := make([]byte, size)
	copy(out, d.buf[d.pos:d.pos+size])
	d.pos += size
	return out, nil
}

// BinaryEncoder writes the Avro binary encoding to an io.Writer.
type BinaryEncoder struct {
	w io.Writer
}

func NewBinaryEncoder(w io.Writer) *BinaryEncoder {
	return &BinaryEncoder{w: w}
}

func (e *BinaryEncoder) WriteByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

func (e *BinaryEncoder) Write(buf []byte) error {
	_, err := e.w.Write(buf)
	return err
}

func (e *BinaryEncoder) WriteBoolean(v bool) error {
	if v {
		return e.WriteByte(1)
	}
	return e.WriteByte(0)
}

func (e *BinaryEncoder) writeVarint(v uint64) error {
	var tmp [10]byte
	n := 0
	for v >= 0x80 {
		tmp[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	tmp[n] = byte(v)
	n++
	return e.Write(tmp[:n])
}

func (e *BinaryEncoder) WriteInt(v int32) error {
	return e.writeVarint(zigzagEncode(int64(v)))
}

func (e *BinaryEncoder) WriteLong(v int64) error {
	return e.writeVarint(zigzagEncode(v))
}

func (e *BinaryEncoder) WriteFloat(v float32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return e.Write(tmp[:])
}

func (e *BinaryEncoder) WriteDouble(v float64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return e.Write(tmp[:])
}

func (e *BinaryEncoder) WriteBytes(v []byte) error {
	if err := e.WriteLong(int64(len(v))); err != nil {
		return err
	}
	return e.Write(v)
}

func (e *BinaryEncoder) WriteString(v string) error {
	return e.WriteBytes([]byte(v))
}

func (e *BinaryEncoder) WriteFixed(v []byte) error {
	return e.Write(v)
}
