package avro

import (
	"reflect"
	"sync"
)

// namedHostTypes lets callers register which concrete Go type stands in for
// a given named schema when it appears as a non-nullable union branch with
// no other static type hint available (spec.md §4.5.1's "assignable via the
// Type Resolver matching" needs a concrete type to match against).
var namedHostTypes sync.Map // fullName string -> reflect.Type

// RegisterHostType associates a named schema's full name with the concrete
// Go type used to represent it inside a union lacking any other static type
// hint. Safe for concurrent use.
func RegisterHostType(fullName string, v any) {
	namedHostTypes.Store(fullName, reflect.TypeOf(v))
}

// naturalType returns the Go type that canonically represents values of the
// given schema when no struct-field type hint is available, e.g. because
// the value arrives boxed in a union branch.
func naturalType(s Schema) reflect.Type {
	switch v := s.(type) {
	case *BooleanSchema:
		return reflect.TypeOf(false)
	case *IntSchema:
		if v.Logical != nil {
			switch v.Logical.Kind {
			case Date:
				return timeType
			case TimeMillis:
				return durationGo
			}
		}
		return reflect.TypeOf(int32(0))
	case *LongSchema:
		if v.Logical != nil {
			switch v.Logical.Kind {
			case TimeMicros:
				return durationGo
			case TimestampMillis, TimestampMicros:
				return timeType
			}
		}
		return reflect.TypeOf(int64(0))
	case *FloatSchema:
		return reflect.TypeOf(float32(0))
	case *DoubleSchema:
		return reflect.TypeOf(float64(0))
	case *BytesSchema:
		if v.Logical != nil && v.Logical.Kind == Decimal {
			return bigIntType
		}
		return reflect.TypeOf([]byte(nil))
	case *StringSchema:
		if v.Logical != nil && v.Logical.Kind == UUID {
			return uuidType
		}
		return reflect.TypeOf("")
	case *FixedSchema:
		if v.Logical != nil && v.Logical.Kind == DurationLogical {
			return durationAvr
		}
		return reflect.TypeOf([]byte(nil))
	case *EnumSchema:
		return reflect.TypeOf("")
	case *ArraySchema:
		return reflect.SliceOf(naturalType(v.Items))
	case *MapSchema:
		return reflect.MapOf(reflect.TypeOf(""), naturalType(v.Values))
	case *RecordSchema:
		if rt, ok := namedHostTypes.Load(v.FullName()); ok {
			return rt.(reflect.Type)
		}
		return reflect.TypeOf(map[string]any(nil))
	default:
		return reflect.TypeOf((*any)(nil)).Elem()
	}
}

// buildUnionCodec implements spec.md §4.5.1. Two host shapes are supported:
//
//   - a 2-branch union where one branch is null: host is a pointer to the
//     non-null branch's type (nil encodes the null branch).
//   - any other union: host is `any`, holding a value whose runtime type is
//     matched against each non-null branch's naturalType in declaration
//     order (first match wins), or nil for the null branch if present.
func buildUnionCodec(s *UnionSchema, rt reflect.Type, ctx *buildCtx) (*codec, error) {
	nullIndex := -1
	for i, t := range s.Types {
		if t.Type() == Null {
			nullIndex = i
			break
		}
	}

	if len(s.Types) == 2 && nullIndex >= 0 && rt.Kind() == reflect.Ptr {
		var branch Schema
		var branchIndex int32
		for i, t := range s.Types {
			if t.Type() != Null {
				branch = t
				branchIndex = int32(i)
				break
			}
		}
		elemCodec, err := buildCodec(branch, rt.Elem(), ctx)
		if err != nil {
			return nil, err
		}
		nIdx := int32(nullIndex)
		return &codec{
			encode: func(v reflect.Value, enc Encoder) error {
				if v.IsNil() {
					return enc.WriteLong(int64(nIdx))
				}
				if err := enc.WriteLong(int64(branchIndex)); err != nil {
					return err
				}
				return elemCodec.encode(v.Elem(), enc)
			},
			decode: func(target reflect.Value, dec Decoder) error {
				idx, err := dec.ReadLong()
				if err != nil {
					return err
				}
				if int32(idx) == nIdx {
					target.Set(reflect.Zero(rt))
					return nil
				}
				if int32(idx) != branchIndex {
					return &InvalidDataError{Reason: "unexpected union branch index"}
				}
				elem := reflect.New(rt.Elem())
				if err := elemCodec.decode(elem.Elem(), dec); err != nil {
					return err
				}
				target.Set(elem)
				return nil
			},
		}, nil
	}

	type branchCodec struct {
		schema Schema
		typ    reflect.Type
		index  int32
		codec  *codec
	}
	branches := make([]branchCodec, 0, len(s.Types))
	for i, t := range s.Types {
		if t.Type() == Null {
			continue
		}
		nt := naturalType(t)
		c, err := buildCodec(t, nt, ctx)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branchCodec{schema: t, typ: nt, index: int32(i), codec: c})
	}
	nIdx := int32(nullIndex)

	return &codec{
		encode: func(v reflect.Value, enc Encoder) error {
			if v.Kind() == reflect.Interface {
				v = v.Elem()
			}
			if !v.IsValid() {
				if nullIndex < 0 {
					return &UnsupportedTypeError{TypeName: "nil", Reason: "union has no null branch"}
				}
				return enc.WriteLong(int64(nIdx))
			}
			for _, b := range branches {
				if v.Type() == b.typ || v.Type().AssignableTo(b.typ) {
					if err := enc.WriteLong(int64(b.index)); err != nil {
						return err
					}
					return b.codec.encode(v, enc)
				}
			}
			return &UnsupportedTypeError{TypeName: v.Type().String(), Reason: "value does not match any union branch"}
		},
		decode: func(target reflect.Value, dec Decoder) error {
			idx, err := dec.ReadLong()
			if err != nil {
				return err
			}
			if int32(idx) == nIdx {
				target.Set(reflect.Zero(target.Type()))
				return nil
			}
			for _, b := range branches {
				if b.index == int32(idx) {
					val := reflect.New(b.typ).Elem()
					if err := b.codec.decode(val, dec); err != nil {
						return err
					}
					target.Set(val)
					return nil
				}
			}
			return &InvalidDataError{Reason: "unknown union branch index"}
		},
	}, nil
}
