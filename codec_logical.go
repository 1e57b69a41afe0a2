package avro

import (
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Duration is the host representation of Avro's duration logical type: three
// unsigned 32-bit little-endian components packed into a fixed(12).
type Duration struct {
	Months       int32
	Days         int32
	Milliseconds int32
}

var (
	bigIntType  = reflect.TypeOf(big.Int{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	timeType    = reflect.TypeOf(time.Time{})
	durationGo  = reflect.TypeOf(time.Duration(0))
	durationAvr = reflect.TypeOf(Duration{})
)

// wrapLogical dispatches to a logical-type-aware codec when the schema
// declares one matching the base Kind, or falls back to the plain base
// builder otherwise (spec.md §4.2's "applied only when the base type
// agrees" carried through to codec construction).
func wrapLogical(lt *LogicalType, base Kind, size int, rt reflect.Type, baseBuilder func(reflect.Type) (*codec, error)) (*codec, error) {
	if lt == nil || !lt.validBase(base, size) {
		return baseBuilder(rt)
	}
	switch lt.Kind {
	case Decimal:
		return decimalCodec(base, lt, size)
	case UUID:
		return uuidCodec(rt)
	case Date:
		return dateCodec(rt)
	case TimeMillis:
		return timeMillisCodec(rt)
	case TimeMicros:
		return timeMicrosCodec(rt)
	case TimestampMillis:
		return timestampCodec(rt, time.Millisecond)
	case TimestampMicros:
		return timestampCodec(rt, time.Microsecond)
	case DurationLogical:
		return durationCodec(rt)
	default:
		return baseBuilder(rt)
	}
}

func requireType(rt, want reflect.Type, reason string) error {
	if rt != want {
		return &UnsupportedTypeError{TypeName: rt.String(), Reason: reason}
	}
	return nil
}

func unscaledBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0}
	}
	b := v.Bytes()
	if v.Sign() > 0 {
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}
	// Two's complement encoding of a negative value.
	twos := new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)+1)*8))
	tb := twos.Bytes()
	for len(tb) > 1 && tb[0] == 0xff && tb[1]&0x80 != 0 {
		tb = tb[1:]
	}
	if tb[0]&0x80 == 0 {
		return append([]byte{0xff}, tb...)
	}
	return tb
}

func bytesToUnscaled(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	neg := b[0]&0x80 != 0
	if !neg {
		return new(big.Int).SetBytes(b)
	}
	twos := new(big.Int).SetBytes(b)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8)
	return new(big.Int).Sub(twos, mod)
}

func decimalCodec(base Kind, lt *LogicalType, size int) (*codec, error) {
	if base == Fixed {
		return &codec{
			encode: func(v reflect.Value, enc Encoder) error {
				bi := v.Interface().(big.Int)
				b, err := signExtend(unscaledBytes(&bi), size)
				if err != nil {
					return err
				}
				return enc.WriteFixed(b)
			},
			decode: func(target reflect.Value, dec Decoder) error {
				b, err := dec.ReadFixed(size)
				if err != nil {
					return err
				}
				target.Set(reflect.ValueOf(*bytesToUnscaled(b)))
				return nil
			},
		}, nil
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			bi := v.Interface().(big.Int)
			return enc.WriteBytes(unscaledBytes(&bi))
		},
		decode: func(target reflect.Value, dec Decoder) error {
			b, err := dec.ReadBytes()
			if err != nil {
				return err
			}
			target.Set(reflect.ValueOf(*bytesToUnscaled(b)))
			return nil
		},
	}, nil
}

// signExtend pads b, a minimal two's-complement unscaled-value encoding, out
// to exactly size bytes, sign-extending on the left so the magnitude is
// preserved.
func signExtend(b []byte, size int) ([]byte, error) {
	if len(b) > size {
		return nil, &UnsupportedTypeError{TypeName: "decimal/fixed", Reason: fmt.Sprintf("unscaled value needs %d bytes, fixed(%d) is too small", len(b), size)}
	}
	if len(b) == size {
		return b, nil
	}
	pad := byte(0)
	if b[0]&0x80 != 0 {
		pad = 0xff
	}
	out := make([]byte, size)
	for i := 0; i < size-len(b); i++ {
		out[i] = pad
	}
	copy(out[size-len(b):], b)
	return out, nil
}

func uuidCodec(rt reflect.Type) (*codec, error) {
	if err := requireType(rt, uuidType, "uuid logical type requires a github.com/google/uuid.UUID host field"); err != nil {
		return nil, err
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			id := v.Interface().(uuid.UUID)
			return enc.WriteString(id.String())
		},
		decode: func(target reflect.Value, dec Decoder) error {
			s, err := dec.ReadString()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return &InvalidDataError{Reason: "invalid uuid: " + err.Error()}
			}
			target.Set(reflect.ValueOf(id))
			return nil
		},
	}, nil
}

func dateCodec(rt reflect.Type) (*codec, error) {
	if err := requireType(rt, timeType, "date logical type requires a time.Time host field"); err != nil {
		return nil, err
	}
	const day = 24 * time.Hour
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			t := v.Interface().(time.Time).UTC()
			days := t.Truncate(day).Unix() / int64(day/time.Second)
			return enc.WriteInt(int32(days))
		},
		decode: func(target reflect.Value, dec Decoder) error {
			days, err := dec.ReadInt()
			if err != nil {
				return err
			}
			t := time.Unix(int64(days)*int64(day/time.Second), 0).UTC()
			target.Set(reflect.ValueOf(t))
			return nil
		},
	}, nil
}

func timeMillisCodec(rt reflect.Type) (*codec, error) {
	if err := requireType(rt, durationGo, "time-millis logical type requires a time.Duration host field"); err != nil {
		return nil, err
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			d := v.Interface().(time.Duration)
			return enc.WriteInt(int32(d.Milliseconds()))
		},
		decode: func(target reflect.Value, dec Decoder) error {
			ms, err := dec.ReadInt()
			if err != nil {
				return err
			}
			target.Set(reflect.ValueOf(time.Duration(ms) * time.Millisecond))
			return nil
		},
	}, nil
}

func timeMicrosCodec(rt reflect.Type) (*codec, error) {
	if err := requireType(rt, durationGo, "time-micros logical type requires a time.Duration host field"); err != nil {
		return nil, err
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			d := v.Interface().(time.Duration)
			return enc.WriteLong(d.Microseconds())
		},
		decode: func(target reflect.Value, dec Decoder) error {
			us, err := dec.ReadLong()
			if err != nil {
				return err
			}
			target.Set(reflect.ValueOf(time.Duration(us) * time.Microsecond))
			return nil
		},
	}, nil
}

func timestampCodec(rt reflect.Type, unit time.Duration) (*codec, error) {
	if err := requireType(rt, timeType, "timestamp logical types require a time.Time host field"); err != nil {
		return nil, err
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			t := v.Interface().(time.Time).UTC()
			return enc.WriteLong(t.UnixNano() / int64(unit))
		},
		decode: func(target reflect.Value, dec Decoder) error {
			n, err := dec.ReadLong()
			if err != nil {
				return err
			}
			t := time.Unix(0, n*int64(unit)).UTC()
			target.Set(reflect.ValueOf(t))
			return nil
		},
	}, nil
}

func durationCodec(rt reflect.Type) (*codec, error) {
	if err := requireType(rt, durationAvr, "duration logical type requires an avro.Duration host field"); err != nil {
		return nil, err
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			d := v.Interface().(Duration)
			var buf [12]byte
			putUint32LE(buf[0:4], uint32(d.Months))
			putUint32LE(buf[4:8], uint32(d.Days))
			putUint32LE(buf[8:12], uint32(d.Milliseconds))
			return enc.WriteFixed(buf[:])
		},
		decode: func(target reflect.Value, dec Decoder) error {
			b, err := dec.ReadFixed(12)
			if err != nil {
				return err
			}
			target.Set(reflect.ValueOf(Duration{
				Months:       int32(getUint32LE(b[0:4])),
				Days:         int32(getUint32LE(b[4:8])),
				Milliseconds: int32(getUint32LE(b[8:12])),
			}))
			return nil
		},
	}, nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
