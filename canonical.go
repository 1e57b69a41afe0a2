package avro

import (
	"bytes"
	"fmt"
)

// WriteSchema renders a schema as JSON. In canonical mode it produces the
// Avro Parsing Canonical Form: aliases, documentation, logical-type
// attributes, defaults, and properties are all omitted, attributes are
// emitted in a fixed order, and named types are emitted as full-names only
// (no separate namespace attribute).
func WriteSchema(s Schema, canonical bool) ([]byte, error) {
	return writeSchema(s, canonical, newNameCache())
}

// writeSchema is the writer's case-chain dispatcher, sharing the same
// nameCache-based conflict detection used across one write call: a second
// full definition for a full-name that isn't structurally equal to the
// first raises InvalidSchemaError (spec.md §4.3, §8 property 4).
func writeSchema(s Schema, canonical bool, cache *nameCache) ([]byte, error) {
	if ns, ok := s.(NamedSchema); ok {
		full := ns.FullName()
		if existing, seen := cache.get(full); seen {
			if !Equal(existing, s) {
				return nil, &InvalidSchemaError{Reason: "conflicting definitions for " + full}
			}
			return []byte(fmt.Sprintf("%q", full)), nil
		}
		cache.put(ns)
	}

	switch v := s.(type) {
	case *NullSchema:
		return []byte(`"null"`), nil
	case *BooleanSchema:
		return []byte(`"boolean"`), nil
	case *FloatSchema:
		return []byte(`"float"`), nil
	case *DoubleSchema:
		return []byte(`"double"`), nil
	case *IntSchema:
		return writePrimitive("int", v.Logical, canonical)
	case *LongSchema:
		return writePrimitive("long", v.Logical, canonical)
	case *BytesSchema:
		return writePrimitive("bytes", v.Logical, canonical)
	case *StringSchema:
		return writePrimitive("string", v.Logical, canonical)
	case *ArraySchema:
		return writeArray(v, canonical, cache)
	case *MapSchema:
		return writeMap(v, canonical, cache)
	case *UnionSchema:
		return writeUnion(v, canonical, cache)
	case *FixedSchema:
		return writeFixed(v, canonical)
	case *EnumSchema:
		return writeEnum(v, canonical)
	case *RecordSchema:
		return writeRecord(v, canonical, cache)
	default:
		return nil, &UnsupportedSchemaError{Schema: s}
	}
}

func writePrimitive(name string, lt *LogicalType, canonical bool) ([]byte, error) {
	if canonical || lt == nil {
		return []byte(fmt.Sprintf("%q", name)), nil
	}
	return []byte(marshalPrimitiveJSON(name, lt)), nil
}

func writeArray(s *ArraySchema, canonical bool, cache *nameCache) ([]byte, error) {
	items, err := writeSchema(s.Items, canonical, cache)
	if err != nil {
		return nil, fmt.Errorf("array items: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, "type", "array", false)
	writeFieldName(&buf, "items", true)
	buf.Write(items)
	if !canonical {
		writeProperties(&buf, s.Properties)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMap(s *MapSchema, canonical bool, cache *nameCache) ([]byte, error) {
	values, err := writeSchema(s.Values, canonical, cache)
	if err != nil {
		return nil, fmt.Errorf("map values: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, "type", "map", false)
	writeFieldName(&buf, "values", true)
	buf.Write(values)
	if !canonical {
		writeProperties(&buf, s.Properties)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeUnion(s *UnionSchema, canonical bool, cache *nameCache) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, t := range s.Types {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := writeSchema(t, canonical, cache)
		if err != nil {
			return nil, fmt.Errorf("union branch %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeFixed(s *FixedSchema, canonical bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if canonical {
		writeString(&buf, "name", s.FullName(), false)
		writeString(&buf, "type", "fixed", true)
		writeInt(&buf, "size", s.Size, true)
	} else {
		writeString(&buf, "name", s.Name(), false)
		if s.Namespace() != "" {
			writeString(&buf, "namespace", s.Namespace(), true)
		}
		writeString(&buf, "type", "fixed", true)
		writeInt(&buf, "size", s.Size, true)
		if s.Logical != nil {
			writeString(&buf, "logicalType", s.Logical.Kind.jsonName(), true)
			if s.Logical.Kind == Decimal {
				writeInt(&buf, "precision", s.Logical.Precision, true)
				writeInt(&buf, "scale", s.Logical.Scale, true)
			}
		}
		writeStringSlice(&buf, "aliases", s.Aliases())
		writeProperties(&buf, s.Properties)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeEnum(s *EnumSchema, canonical bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if canonical {
		writeString(&buf, "name", s.FullName(), false)
		writeString(&buf, "type", "enum", true)
		writeFieldName(&buf, "symbols", true)
		writeQuotedStrings(&buf, s.Symbols)
	} else {
		writeString(&buf, "name", s.Name(), false)
		if s.Namespace() != "" {
			writeString(&buf, "namespace", s.Namespace(), true)
		}
		writeString(&buf, "type", "enum", true)
		if s.Doc != "" {
			writeString(&buf, "doc", s.Doc, true)
		}
		writeFieldName(&buf, "symbols", true)
		writeQuotedStrings(&buf, s.Symbols)
		writeStringSlice(&buf, "aliases", s.Aliases())
		writeProperties(&buf, s.Properties)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeRecord(s *RecordSchema, canonical bool, cache *nameCache) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if canonical {
		writeString(&buf, "name", s.FullName(), false)
		writeString(&buf, "type", "record", true)
		writeFieldName(&buf, "fields", true)
		buf.WriteByte('[')
		for i, f := range s.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			fb, err := writeCanonicalField(f, cache)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			buf.Write(fb)
		}
		buf.WriteByte(']')
	} else {
		writeString(&buf, "type", "record", false)
		writeString(&buf, "name", s.Name(), true)
		if s.Namespace() != "" {
			writeString(&buf, "namespace", s.Namespace(), true)
		}
		if s.Doc != "" {
			writeString(&buf, "doc", s.Doc, true)
		}
		writeStringSlice(&buf, "aliases", s.Aliases())
		writeFieldName(&buf, "fields", true)
		buf.WriteByte('[')
		for i, f := range s.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			fb, err := writeFullField(f, cache)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			buf.Write(fb)
		}
		buf.WriteByte(']')
		writeProperties(&buf, s.Properties)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCanonicalField(f *RecordField, cache *nameCache) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, "name", f.Name, false)
	writeFieldName(&buf, "type", true)
	tb, err := writeSchema(f.Type, true, cache)
	if err != nil {
		return nil, err
	}
	buf.Write(tb)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeFullField(f *RecordField, cache *nameCache) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, "name", f.Name, false)
	writeFieldName(&buf, "type", true)
	tb, err := writeSchema(f.Type, false, cache)
	if err != nil {
		return nil, err
	}
	buf.Write(tb)
	if f.Doc != "" {
		writeString(&buf, "doc", f.Doc, true)
	}
	if f.HasDefault {
		writeFieldName(&buf, "default", true)
		db, err := jsonAPI.Marshal(f.Default)
		if err != nil {
			return nil, err
		}
		buf.Write(db)
	}
	if f.Order != "" {
		writeString(&buf, "order", f.Order, true)
	}
	writeStringSlice(&buf, "aliases", f.Aliases)
	writeProperties(&buf, f.Properties)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeQuotedStrings(buf *bytes.Buffer, values []string) {
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeQuoted(buf, v)
	}
	buf.WriteByte(']')
}

func writeQuoted(buf *bytes.Buffer, s string) {
	b, _ := jsonAPI.Marshal(s)
	buf.Write(b)
}

func writeStringSlice(buf *bytes.Buffer, name string, values []string) {
	if len(values) == 0 {
		return
	}
	writeFieldName(buf, name, true)
	writeQuotedStrings(buf, values)
}

func writeProperties(buf *bytes.Buffer, props map[string]any) {
	for k, v := range props {
		writeFieldName(buf, k, true)
		b, err := jsonAPI.Marshal(v)
		if err != nil {
			continue
		}
		buf.Write(b)
	}
}
