package avro

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/modern-go/reflect2"
)

// codec is a compiled encode/decode pair for one (Schema, host type)
// combination. decode populates a pre-existing addressable target rather
// than allocating one, mirroring the teacher's Projection.Read(target, ...)
// shape in datum_projector.go.
type codec struct {
	encode func(v reflect.Value, enc Encoder) error
	decode func(target reflect.Value, dec Decoder) error
}

type cacheKey struct {
	schema uintptr
	rt     reflect.Type
}

// buildCtx is the per-build forward-placeholder cache of spec.md §4.5.3: a
// record's codec is inserted before its fields are built, so a field that
// refers back to the same (or a mutually recursive) record resolves to the
// same *codec pointer instead of recursing forever.
type buildCtx struct {
	cache map[cacheKey]*codec
}

func newBuildCtx() *buildCtx {
	return &buildCtx{cache: map[cacheKey]*codec{}}
}

// Marshal encodes v against schema into Avro binary.
func Marshal(schema Schema, v any) ([]byte, error) {
	rv := dereferenceValue(reflect.ValueOf(v))
	c, err := buildCodec(schema, rv.Type(), newBuildCtx())
	if err != nil {
		return nil, err
	}
	var sink bytes.Buffer
	if err := c.encode(rv, NewBinaryEncoder(&sink)); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// UnmarshalFrom decodes a single schema-shaped value off dec's current
// position into target, which must be a non-nil pointer. Unlike Unmarshal
// it does not require the encoded value's byte length up front, so callers
// streaming several values off one Decoder (e.g. avro/avrofile's block
// reader) can decode them back to back without pre-splitting the buffer.
func UnmarshalFrom(schema Schema, dec Decoder, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidDataError{Reason: "UnmarshalFrom target must be a non-nil pointer"}
	}
	rv = rv.Elem()
	c, err := buildCodec(schema, rv.Type(), newBuildCtx())
	if err != nil {
		return err
	}
	return c.decode(rv, dec)
}

// Unmarshal decodes Avro binary data (written against schema) into target,
// which must be a non-nil pointer.
func Unmarshal(schema Schema, data []byte, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidDataError{Reason: "Unmarshal target must be a non-nil pointer"}
	}
	rv = rv.Elem()
	c, err := buildCodec(schema, rv.Type(), newBuildCtx())
	if err != nil {
		return err
	}
	return c.decode(rv, NewBinaryDecoder(data))
}

// CompiledCodec is a codec built once for a single (Schema, host type) pair,
// for callers that marshal or unmarshal the same shape repeatedly and want
// to skip buildCodec's work on every call (avro/registry's per-id/subject
// serializer and deserializer caches are the motivating case).
type CompiledCodec struct {
	rt reflect.Type
	c  *codec
}

// Compile builds a CompiledCodec for schema against the concrete type of
// sample (a zero value or an existing value of the host type both work).
func Compile(schema Schema, sample any) (*CompiledCodec, error) {
	rt := dereferenceValue(reflect.ValueOf(sample)).Type()
	c, err := buildCodec(schema, rt, newBuildCtx())
	if err != nil {
		return nil, err
	}
	return &CompiledCodec{rt: rt, c: c}, nil
}

// Marshal encodes v, which must have the same concrete type Compile was
// called with.
func (cc *CompiledCodec) Marshal(v any) ([]byte, error) {
	rv := dereferenceValue(reflect.ValueOf(v))
	if rv.Type() != cc.rt {
		return nil, &UnsupportedTypeError{TypeName: rv.Type().String(), Reason: "does not match the type this codec was compiled for"}
	}
	var sink bytes.Buffer
	if err := cc.c.encode(rv, NewBinaryEncoder(&sink)); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// Unmarshal decodes data into target, which must be a non-nil pointer to
// the same concrete type Compile was called with.
func (cc *CompiledCodec) Unmarshal(data []byte, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidDataError{Reason: "Unmarshal target must be a non-nil pointer"}
	}
	rv = rv.Elem()
	if rv.Type() != cc.rt {
		return &UnsupportedTypeError{TypeName: rv.Type().String(), Reason: "does not match the type this codec was compiled for"}
	}
	return cc.c.decode(rv, NewBinaryDecoder(data))
}

// Validate reports whether data is structurally well-formed Avro binary for
// schema, without requiring a host Go type to decode into. It underlies
// cmd/avroctl's test-schema subcommand: decoding happens against the same
// discard codecs buildRecordCodec uses for unmatched fields, so a schema
// mismatch (truncated data, bad union index, wrong string length) surfaces
// the same way it would during a real Unmarshal.
func Validate(schema Schema, data []byte) error {
	c, err := buildSkipCodec(schema)
	if err != nil {
		return err
	}
	dt := skipType(schema)
	target := reflect.New(dt).Elem()
	dec := NewBinaryDecoder(data)
	if err := c.decode(target, dec); err != nil {
		return err
	}
	if dec.Remaining() != 0 {
		return &InvalidDataError{Reason: "trailing bytes after decoding one value"}
	}
	return nil
}

// buildCodec is the recursive builder of spec.md §4.5: one case per Schema
// Kind, using the Type Resolver to describe the host type where structure
// matters (records).
func buildCodec(schema Schema, rt reflect.Type, ctx *buildCtx) (*codec, error) {
	if _, ok := schema.(NamedSchema); ok {
		key := cacheKey{schema: ptrOf(schema), rt: rt}
		if existing, ok := ctx.cache[key]; ok {
			return existing, nil
		}
	}

	switch s := schema.(type) {
	case *NullSchema:
		return nullCodec(), nil
	case *BooleanSchema:
		return booleanCodec(rt)
	case *IntSchema:
		return wrapLogical(s.Logical, Int, 0, rt, intCodec)
	case *LongSchema:
		return wrapLogical(s.Logical, Long, 0, rt, longCodec)
	case *FloatSchema:
		return floatCodec(rt)
	case *DoubleSchema:
		return doubleCodec(rt)
	case *BytesSchema:
		return wrapLogical(s.Logical, Bytes, 0, rt, bytesCodec)
	case *StringSchema:
		return wrapLogical(s.Logical, String, 0, rt, stringCodec)
	case *ArraySchema:
		return buildArrayCodec(s, rt, ctx)
	case *MapSchema:
		return buildMapCodec(s, rt, ctx)
	case *UnionSchema:
		return buildUnionCodec(s, rt, ctx)
	case *FixedSchema:
		return wrapLogical(s.Logical, Fixed, s.Size, rt, func(reflect.Type) (*codec, error) { return fixedCodec(s.Size) })
	case *EnumSchema:
		return buildEnumCodec(s, rt)
	case *RecordSchema:
		return buildRecordCodec(s, rt, ctx)
	default:
		return nil, &UnsupportedSchemaError{Schema: schema}
	}
}

func nullCodec() *codec {
	return &codec{
		encode: func(reflect.Value, Encoder) error { return nil },
		decode: func(reflect.Value, Decoder) error { return nil },
	}
}

func booleanCodec(rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.Bool {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "boolean schema requires a bool host field"}
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error { return enc.WriteBoolean(v.Bool()) },
		decode: func(target reflect.Value, dec Decoder) error {
			b, err := dec.ReadBoolean()
			if err != nil {
				return err
			}
			target.SetBool(b)
			return nil
		},
	}, nil
}

func intCodec(rt reflect.Type) (*codec, error) {
	switch rt.Kind() {
	case reflect.Int32, reflect.Int, reflect.Int16, reflect.Int8:
		return &codec{
			encode: func(v reflect.Value, enc Encoder) error { return enc.WriteInt(int32(v.Int())) },
			decode: func(target reflect.Value, dec Decoder) error {
				n, err := dec.ReadInt()
				if err != nil {
					return err
				}
				target.SetInt(int64(n))
				return nil
			},
		}, nil
	}
	return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "int schema requires an integer host field"}
}

func longCodec(rt reflect.Type) (*codec, error) {
	switch rt.Kind() {
	case reflect.Int64, reflect.Int, reflect.Int32:
		return &codec{
			encode: func(v reflect.Value, enc Encoder) error { return enc.WriteLong(v.Int()) },
			decode: func(target reflect.Value, dec Decoder) error {
				n, err := dec.ReadLong()
				if err != nil {
					return err
				}
				target.SetInt(n)
				return nil
			},
		}, nil
	}
	return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "long schema requires an integer host field"}
}

func floatCodec(rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.Float32 && rt.Kind() != reflect.Float64 {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "float schema requires a float host field"}
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error { return enc.WriteFloat(float32(v.Float())) },
		decode: func(target reflect.Value, dec Decoder) error {
			f, err := dec.ReadFloat()
			if err != nil {
				return err
			}
			target.SetFloat(float64(f))
			return nil
		},
	}, nil
}

func doubleCodec(rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.Float64 && rt.Kind() != reflect.Float32 {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "double schema requires a float host field"}
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error { return enc.WriteDouble(v.Float()) },
		decode: func(target reflect.Value, dec Decoder) error {
			f, err := dec.ReadDouble()
			if err != nil {
				return err
			}
			target.SetFloat(f)
			return nil
		},
	}, nil
}

func bytesCodec(rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.Slice || rt.Elem().Kind() != reflect.Uint8 {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "bytes schema requires a []byte host field"}
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error { return enc.WriteBytes(v.Bytes()) },
		decode: func(target reflect.Value, dec Decoder) error {
			b, err := dec.ReadBytes()
			if err != nil {
				return err
			}
			target.SetBytes(b)
			return nil
		},
	}, nil
}

func stringCodec(rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.String {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "string schema requires a string host field"}
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error { return enc.WriteString(v.String()) },
		decode: func(target reflect.Value, dec Decoder) error {
			s, err := dec.ReadString()
			if err != nil {
				return err
			}
			target.SetString(s)
			return nil
		},
	}, nil
}

func fixedCodec(size int) (*codec, error) {
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			b := v.Bytes()
			if len(b) != size {
				return &InvalidDataError{Reason: "fixed value has wrong length"}
			}
			return enc.WriteFixed(b)
		},
		decode: func(target reflect.Value, dec Decoder) error {
			b, err := dec.ReadFixed(size)
			if err != nil {
				return err
			}
			target.SetBytes(b)
			return nil
		},
	}, nil
}

func buildArrayCodec(s *ArraySchema, rt reflect.Type, ctx *buildCtx) (*codec, error) {
	if rt.Kind() != reflect.Slice {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "array schema requires a slice host field"}
	}
	itemCodec, err := buildCodec(s.Items, rt.Elem(), ctx)
	if err != nil {
		return nil, err
	}
	elemType := rt.Elem()
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			n := v.Len()
			if n > 0 {
				if err := enc.WriteLong(int64(n)); err != nil {
					return err
				}
				for i := 0; i < n; i++ {
					if err := itemCodec.encode(v.Index(i), enc); err != nil {
						return err
					}
				}
			}
			return enc.WriteLong(0)
		},
		decode: func(target reflect.Value, dec Decoder) error {
			result := reflect.MakeSlice(rt, 0, 0)
			for {
				count, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if count == 0 {
					break
				}
				if count < 0 {
					count = -count
					if _, err := dec.ReadLong(); err != nil { // byte-size, ignored
						return err
					}
				}
				for i := int64(0); i < count; i++ {
					item := reflect.New(elemType).Elem()
					if err := itemCodec.decode(item, dec); err != nil {
						return err
					}
					result = reflect.Append(result, item)
				}
			}
			target.Set(result)
			return nil
		},
	}, nil
}

func buildMapCodec(s *MapSchema, rt reflect.Type, ctx *buildCtx) (*codec, error) {
	if rt.Kind() != reflect.Map || rt.Key().Kind() != reflect.String {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "map schema requires a map[string]T host field"}
	}
	valueCodec, err := buildCodec(s.Values, rt.Elem(), ctx)
	if err != nil {
		return nil, err
	}
	valueType := rt.Elem()
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			n := v.Len()
			if n > 0 {
				if err := enc.WriteLong(int64(n)); err != nil {
					return err
				}
				iter := v.MapRange()
				for iter.Next() {
					if err := enc.WriteString(iter.Key().String()); err != nil {
						return err
					}
					if err := valueCodec.encode(iter.Value(), enc); err != nil {
						return err
					}
				}
			}
			return enc.WriteLong(0)
		},
		decode: func(target reflect.Value, dec Decoder) error {
			result := reflect.MakeMap(rt)
			for {
				count, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if count == 0 {
					break
				}
				if count < 0 {
					count = -count
					if _, err := dec.ReadLong(); err != nil {
						return err
					}
				}
				for i := int64(0); i < count; i++ {
					key, err := dec.ReadString()
					if err != nil {
						return err
					}
					val := reflect.New(valueType).Elem()
					if err := valueCodec.decode(val, dec); err != nil {
						return err
					}
					result.SetMapIndex(reflect.ValueOf(key), val)
				}
			}
			target.Set(result)
			return nil
		},
	}, nil
}

func buildEnumCodec(s *EnumSchema, rt reflect.Type) (*codec, error) {
	if rt.Kind() != reflect.String {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "enum schema requires a string host field"}
	}
	index := make(map[string]int32, len(s.Symbols))
	for i, sym := range s.Symbols {
		index[sym] = int32(i)
	}
	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			i, ok := index[v.String()]
			if !ok {
				return &InvalidDataError{Reason: "value is not a symbol of enum " + s.FullName()}
			}
			return enc.WriteInt(i)
		},
		decode: func(target reflect.Value, dec Decoder) error {
			i, err := dec.ReadInt()
			if err != nil {
				return err
			}
			if int(i) < 0 || int(i) >= len(s.Symbols) {
				return &InvalidDataError{Reason: "enum symbol index out of range"}
			}
			target.SetString(s.Symbols[i])
			return nil
		},
	}, nil
}

// recordFieldCodec binds one writer-schema field to either a host struct
// field codec, or (when the host type has no matching member) a discard
// codec per spec.md §4.5.2.
type recordFieldCodec struct {
	field       *codec
	sf          reflect2.StructField // nil when this field is discarded on decode
	discardType reflect.Type         // set only when sf is nil
}

func buildRecordCodec(s *RecordSchema, rt reflect.Type, ctx *buildCtx) (*codec, error) {
	if rt.Kind() != reflect.Struct {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "record schema requires a struct host field"}
	}

	key := cacheKey{schema: ptrOf(s), rt: rt}
	placeholder := &codec{}
	ctx.cache[key] = placeholder

	res, err := resolveHostType(rt)
	if err != nil {
		return nil, err
	}

	fields := make([]recordFieldCodec, len(s.Fields))
	for i, sf := range s.Fields {
		resolved := res.fieldByNameOrAlias(sf)
		if resolved == nil {
			dt := skipType(sf.Type)
			skip, err := buildSkipCodec(sf.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = recordFieldCodec{field: skip, discardType: dt}
			continue
		}
		fc, err := buildCodec(sf.Type, resolved.StructField.Type().Type1(), ctx)
		if err != nil {
			return nil, err
		}
		fields[i] = recordFieldCodec{field: fc, sf: resolved.StructField}
	}

	built := &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			if !v.CanAddr() {
				addressable := reflect.New(v.Type()).Elem()
				addressable.Set(v)
				v = addressable
			}
			for i, f := range fields {
				if f.sf == nil {
					// The host is the source on encode: a schema field it has no
					// member for cannot be written.
					return &UnsupportedTypeError{TypeName: rt.String(), Reason: "no host member for record field " + s.Fields[i].Name}
				}
				fv := reflect.NewAt(f.sf.Type().Type1(), f.sf.UnsafeGet(reflect2.PtrOf(v.Addr().Interface()))).Elem()
				if err := f.field.encode(fv, enc); err != nil {
					return err
				}
			}
			return nil
		},
		decode: func(target reflect.Value, dec Decoder) error {
			for _, f := range fields {
				if f.sf == nil {
					discard := reflect.New(f.discardType).Elem()
					if err := f.field.decode(discard, dec); err != nil {
						return err
					}
					continue
				}
				fv := reflect.NewAt(f.sf.Type().Type1(), f.sf.UnsafeGet(reflect2.PtrOf(target.Addr().Interface()))).Elem()
				if err := f.field.decode(fv, dec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	*placeholder = *built
	return placeholder, nil
}

// skipType returns a throwaway host type capable of absorbing a decoded
// value of the given writer schema so buildCodec can construct a real
// decode closure for it, even though the value is discarded afterward.
func skipType(s Schema) reflect.Type {
	switch s.Type() {
	case Boolean:
		return reflect.TypeOf(false)
	case Int:
		return reflect.TypeOf(int32(0))
	case Long:
		return reflect.TypeOf(int64(0))
	case Float:
		return reflect.TypeOf(float32(0))
	case Double:
		return reflect.TypeOf(float64(0))
	case Bytes, Fixed:
		return reflect.TypeOf([]byte(nil))
	case String, Enum:
		return reflect.TypeOf("")
	case Array:
		return reflect.SliceOf(skipType(s.(*ArraySchema).Items))
	case Map:
		return reflect.MapOf(reflect.TypeOf(""), skipType(s.(*MapSchema).Values))
	case Record:
		rs := s.(*RecordSchema)
		fields := make([]reflect.StructField, len(rs.Fields))
		for i, f := range rs.Fields {
			fields[i] = reflect.StructField{Name: exportedFieldName(i), Type: skipType(f.Type)}
		}
		return reflect.StructOf(fields)
	case Union:
		return reflect.TypeOf((*any)(nil)).Elem()
	default:
		return reflect.TypeOf(struct{}{})
	}
}

// buildSkipCodec constructs a decode-and-discard codec for a writer-schema
// field absent from the host type (spec.md §4.5.2), ignoring logical-type
// refinements entirely since the decoded value is never observed.
func buildSkipCodec(s Schema) (*codec, error) {
	switch v := s.(type) {
	case *NullSchema:
		return nullCodec(), nil
	case *BooleanSchema:
		return booleanCodec(skipType(s))
	case *IntSchema:
		return intCodec(skipType(s))
	case *LongSchema:
		return longCodec(skipType(s))
	case *FloatSchema:
		return floatCodec(skipType(s))
	case *DoubleSchema:
		return doubleCodec(skipType(s))
	case *BytesSchema:
		return bytesCodec(skipType(s))
	case *StringSchema:
		return stringCodec(skipType(s))
	case *FixedSchema:
		return fixedCodec(v.Size)
	case *EnumSchema:
		return buildEnumCodec(v, skipType(s))
	case *ArraySchema:
		itemCodec, err := buildSkipCodec(v.Items)
		if err != nil {
			return nil, err
		}
		elemType := skipType(v.Items)
		rt := reflect.SliceOf(elemType)
		return &codec{
			decode: func(target reflect.Value, dec Decoder) error {
				for {
					count, err := dec.ReadLong()
					if err != nil {
						return err
					}
					if count == 0 {
						break
					}
					if count < 0 {
						count = -count
						if _, err := dec.ReadLong(); err != nil {
							return err
						}
					}
					for i := int64(0); i < count; i++ {
						item := reflect.New(elemType).Elem()
						if err := itemCodec.decode(item, dec); err != nil {
							return err
						}
					}
				}
				target.Set(reflect.Zero(rt))
				return nil
			},
		}, nil
	case *MapSchema:
		valueCodec, err := buildSkipCodec(v.Values)
		if err != nil {
			return nil, err
		}
		valueType := skipType(v.Values)
		return &codec{
			decode: func(target reflect.Value, dec Decoder) error {
				for {
					count, err := dec.ReadLong()
					if err != nil {
						return err
					}
					if count == 0 {
						break
					}
					if count < 0 {
						count = -count
						if _, err := dec.ReadLong(); err != nil {
							return err
						}
					}
					for i := int64(0); i < count; i++ {
						if _, err := dec.ReadString(); err != nil {
							return err
						}
						item := reflect.New(valueType).Elem()
						if err := valueCodec.decode(item, dec); err != nil {
							return err
						}
					}
				}
				target.Set(reflect.Zero(target.Type()))
				return nil
			},
		}, nil
	case *RecordSchema:
		fieldCodecs := make([]*codec, len(v.Fields))
		fieldTypes := make([]reflect.Type, len(v.Fields))
		for i, f := range v.Fields {
			fc, err := buildSkipCodec(f.Type)
			if err != nil {
				return nil, err
			}
			fieldCodecs[i] = fc
			fieldTypes[i] = skipType(f.Type)
		}
		return &codec{
			decode: func(target reflect.Value, dec Decoder) error {
				for i, fc := range fieldCodecs {
					item := reflect.New(fieldTypes[i]).Elem()
					if err := fc.decode(item, dec); err != nil {
						return err
					}
				}
				return nil
			},
		}, nil
	case *UnionSchema:
		branchCodecs := make([]*codec, len(v.Types))
		branchTypes := make([]reflect.Type, len(v.Types))
		for i, t := range v.Types {
			fc, err := buildSkipCodec(t)
			if err != nil {
				return nil, err
			}
			branchCodecs[i] = fc
			branchTypes[i] = skipType(t)
		}
		return &codec{
			decode: func(target reflect.Value, dec Decoder) error {
				idx, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if idx < 0 || int(idx) >= len(branchCodecs) {
					return &InvalidDataError{Reason: "unknown union branch index"}
				}
				item := reflect.New(branchTypes[idx]).Elem()
				return branchCodecs[idx].decode(item, dec)
			},
		}, nil
	default:
		return nil, &UnsupportedSchemaError{Schema: s}
	}
}

func exportedFieldName(i int) string {
	return fmt.Sprintf("F%d", i)
}
