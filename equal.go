package avro

import "reflect"

// Equal reports whether two schemas are structurally equal. Comparison on
// cyclic (self-referencing) record schemas terminates via a visited-set
// guard keyed by the named schemas' reference identity.
func Equal(a, b Schema) bool {
	return equalSchema(a, b, map[[2]uintptr]bool{})
}

func ptrOf(s Schema) uintptr {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		return v.Pointer()
	}
	return 0
}

func equalSchema(a, b Schema, visited map[[2]uintptr]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}

	if na, ok := a.(NamedSchema); ok {
		nb := b.(NamedSchema)
		key := [2]uintptr{ptrOf(a), ptrOf(b)}
		if visited[key] {
			// Already comparing this pair further up the call stack; assume
			// equal to break the cycle (the enclosing comparison will still
			// fail overall if any other field differs).
			return true
		}
		visited[key] = true
		if na.FullName() != nb.FullName() {
			return false
		}
	}

	switch x := a.(type) {
	case *NullSchema, *BooleanSchema, *FloatSchema, *DoubleSchema:
		return true
	case *IntSchema:
		return equalLogical(x.Logical, b.(*IntSchema).Logical)
	case *LongSchema:
		return equalLogical(x.Logical, b.(*LongSchema).Logical)
	case *BytesSchema:
		return equalLogical(x.Logical, b.(*BytesSchema).Logical)
	case *StringSchema:
		return equalLogical(x.Logical, b.(*StringSchema).Logical)
	case *ArraySchema:
		return equalSchema(x.Items, b.(*ArraySchema).Items, visited)
	case *MapSchema:
		return equalSchema(x.Values, b.(*MapSchema).Values, visited)
	case *UnionSchema:
		y := b.(*UnionSchema)
		if len(x.Types) != len(y.Types) {
			return false
		}
		for i := range x.Types {
			if !equalSchema(x.Types[i], y.Types[i], visited) {
				return false
			}
		}
		return true
	case *FixedSchema:
		y := b.(*FixedSchema)
		return x.Size == y.Size && equalLogical(x.Logical, y.Logical)
	case *EnumSchema:
		y := b.(*EnumSchema)
		if len(x.Symbols) != len(y.Symbols) {
			return false
		}
		for i := range x.Symbols {
			if x.Symbols[i] != y.Symbols[i] {
				return false
			}
		}
		return true
	case *RecordSchema:
		y := b.(*RecordSchema)
		if len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name {
				return false
			}
			if !equalSchema(x.Fields[i].Type, y.Fields[i].Type, visited) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalLogical(a, b *LogicalType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind == b.Kind && a.Precision == b.Precision && a.Scale == b.Scale
}
