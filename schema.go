// Package avro models Avro schemas, reads and writes them in JSON form, and
// compiles a schema together with a host Go type into an encoder/decoder
// pair for the Avro binary format.
package avro

import "reflect"

// Kind identifies which variant of the Schema sum a value is.
type Kind int

const (
	Null Kind = iota
	Boolean
	Int
	Long
	Float
	Double
	Bytes
	String
	Array
	Map
	Union
	Fixed
	Enum
	Record
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Bytes:
		return "bytes"
	case String:
		return "string"
	case Array:
		return "array"
	case Map:
		return "map"
	case Union:
		return "union"
	case Fixed:
		return "fixed"
	case Enum:
		return "enum"
	case Record:
		return "record"
	default:
		return "unknown"
	}
}

// Schema is a single Avro schema, primitive or complex.
type Schema interface {
	// Type returns which variant of the schema sum this value is.
	Type() Kind
	// String returns the full (non-canonical) JSON representation.
	String() string
}

// NamedSchema is implemented by the three schema variants that can be
// referenced later by full-name: Record, Enum and Fixed.
type NamedSchema interface {
	Schema
	Name() string
	Namespace() string
	FullName() string
	Aliases() []string
}

// isNamed reports whether a Schema is one of the NamedSchema variants.
func isNamed(s Schema) bool {
	_, ok := s.(NamedSchema)
	return ok
}

// isPrimitive reports whether a Schema is one of the eight primitive types.
func isPrimitive(s Schema) bool {
	switch s.Type() {
	case Null, Boolean, Int, Long, Float, Double, Bytes, String:
		return true
	default:
		return false
	}
}

// GetFullName returns a schema's fully-qualified name if it is a NamedSchema,
// or its Kind's type name otherwise.
func GetFullName(s Schema) string {
	if ns, ok := s.(NamedSchema); ok {
		return ns.FullName()
	}
	return s.Type().String()
}

// --- Primitive schemas ---

type NullSchema struct{}

func (*NullSchema) Type() Kind     { return Null }
func (*NullSchema) String() string { return `"null"` }

type BooleanSchema struct{}

func (*BooleanSchema) Type() Kind     { return Boolean }
func (*BooleanSchema) String() string { return `"boolean"` }

type IntSchema struct {
	Logical *LogicalType
}

func (*IntSchema) Type() Kind { return Int }
func (s *IntSchema) String() string {
	return marshalPrimitiveJSON("int", s.Logical)
}

type LongSchema struct {
	Logical *LogicalType
}

func (*LongSchema) Type() Kind { return Long }
func (s *LongSchema) String() string {
	return marshalPrimitiveJSON("long", s.Logical)
}

type FloatSchema struct{}

func (*FloatSchema) Type() Kind     { return Float }
func (*FloatSchema) String() string { return `"float"` }

type DoubleSchema struct{}

func (*DoubleSchema) Type() Kind     { return Double }
func (*DoubleSchema) String() string { return `"double"` }

type BytesSchema struct {
	Logical *LogicalType
}

func (*BytesSchema) Type() Kind { return Bytes }
func (s *BytesSchema) String() string {
	return marshalPrimitiveJSON("bytes", s.Logical)
}

type StringSchema struct {
	Logical *LogicalType
}

func (*StringSchema) Type() Kind { return String }
func (s *StringSchema) String() string {
	return marshalPrimitiveJSON("string", s.Logical)
}

// --- Collection schemas ---

type ArraySchema struct {
	Items      Schema
	Properties map[string]any
}

func (*ArraySchema) Type() Kind { return Array }
func (s *ArraySchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

type MapSchema struct {
	Values     Schema
	Properties map[string]any
}

func (*MapSchema) Type() Kind { return Map }
func (s *MapSchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

// --- Union schema ---

type UnionSchema struct {
	Types []Schema
}

func (*UnionSchema) Type() Kind { return Union }
func (s *UnionSchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

// NewUnionSchema validates and constructs a union schema per the Avro rules:
// no two branches may both be Union, no two branches may share a primitive
// type, and no two branches may be the same named type.
func NewUnionSchema(types []Schema) (*UnionSchema, error) {
	seenPrimitive := map[Kind]bool{}
	seenNamed := map[string]bool{}
	for _, t := range types {
		if t.Type() == Union {
			return nil, &InvalidSchemaError{Reason: "union may not directly contain another union"}
		}
		if isPrimitive(t) {
			if seenPrimitive[t.Type()] {
				return nil, &InvalidSchemaError{Reason: "union has duplicate primitive branch " + t.Type().String()}
			}
			seenPrimitive[t.Type()] = true
		}
		if ns, ok := t.(NamedSchema); ok {
			if seenNamed[ns.FullName()] {
				return nil, &InvalidSchemaError{Reason: "union has duplicate named branch " + ns.FullName()}
			}
			seenNamed[ns.FullName()] = true
		}
	}
	return &UnionSchema{Types: types}, nil
}

// --- Named schemas ---

type namedBase struct {
	name      string
	namespace string
	aliases   []string
}

func (n *namedBase) Name() string      { return n.name }
func (n *namedBase) Namespace() string { return n.namespace }
func (n *namedBase) FullName() string  { return fullName(n.name, n.namespace) }
func (n *namedBase) Aliases() []string { return n.aliases }

func newNamedBase(name, namespace string) (namedBase, error) {
	bareName := name
	ns := namespace
	if containsDot(name) {
		ns, bareName = splitFullName(name)
	}
	if err := validateName(bareName); err != nil {
		return namedBase{}, err
	}
	if err := validateNamespace(ns); err != nil {
		return namedBase{}, err
	}
	return namedBase{name: bareName, namespace: ns}, nil
}

// FixedSchema represents Avro's fixed-size byte array type.
type FixedSchema struct {
	namedBase
	Size       int
	Logical    *LogicalType
	Properties map[string]any
}

func (*FixedSchema) Type() Kind { return Fixed }
func (s *FixedSchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

// NewFixedSchema validates name/namespace and constructs a fixed schema.
func NewFixedSchema(name, namespace string, size int) (*FixedSchema, error) {
	nb, err := newNamedBase(name, namespace)
	if err != nil {
		return nil, err
	}
	return &FixedSchema{namedBase: nb, Size: size}, nil
}

// AddAlias appends a validated alias to the fixed schema.
func (s *FixedSchema) AddAlias(alias string) error {
	if err := validateNamespace(alias); err != nil {
		return err
	}
	s.aliases = append(s.aliases, alias)
	return nil
}

// EnumSchema represents Avro's enum type: an ordered, unique set of symbols.
type EnumSchema struct {
	namedBase
	Doc        string
	Symbols    []string
	Default    string
	Properties map[string]any
}

func (*EnumSchema) Type() Kind { return Enum }
func (s *EnumSchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

// NewEnumSchema validates name/namespace and the symbol list (unique, each a
// valid identifier) and constructs an enum schema.
func NewEnumSchema(name, namespace string, symbols []string) (*EnumSchema, error) {
	nb, err := newNamedBase(name, namespace)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, sym := range symbols {
		if !nameComponentPattern.MatchString(sym) {
			return nil, &InvalidSymbolError{Symbol: sym}
		}
		if seen[sym] {
			return nil, &InvalidSchemaError{Reason: "duplicate enum symbol " + sym}
		}
		seen[sym] = true
	}
	return &EnumSchema{namedBase: nb, Symbols: symbols}, nil
}

// AddAlias appends a validated alias to the enum schema.
func (s *EnumSchema) AddAlias(alias string) error {
	if err := validateNamespace(alias); err != nil {
		return err
	}
	s.aliases = append(s.aliases, alias)
	return nil
}

// RecordField is a single field of a RecordSchema.
type RecordField struct {
	Name       string
	Doc        string
	Type       Schema
	Default    any
	HasDefault bool
	Aliases    []string
	Order      string // "ascending" (default), "descending", or "ignore"
	Properties map[string]any
}

// RecordSchema represents Avro's record type: an ordered list of named,
// typed fields.
type RecordSchema struct {
	namedBase
	Doc        string
	Fields     []*RecordField
	Properties map[string]any
}

func (*RecordSchema) Type() Kind { return Record }
func (s *RecordSchema) String() string {
	b, _ := writeSchema(s, false, newNameCache())
	return string(b)
}

// NewRecordSchema validates name/namespace and field-name uniqueness and
// constructs a record schema. Fields may be added incrementally afterward
// (via SetFields) to permit forward references while parsing JSON.
func NewRecordSchema(name, namespace string, fields []*RecordField) (*RecordSchema, error) {
	nb, err := newNamedBase(name, namespace)
	if err != nil {
		return nil, err
	}
	rs := &RecordSchema{namedBase: nb}
	if fields != nil {
		if err := rs.SetFields(fields); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// SetFields replaces the record's field list after validating that field
// names are unique. Used by the JSON reader once a forward-referencing
// schema's fields have been fully parsed.
func (s *RecordSchema) SetFields(fields []*RecordField) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if seen[f.Name] {
			return &InvalidSchemaError{Reason: "duplicate field name " + f.Name + " in record " + s.FullName()}
		}
		seen[f.Name] = true
	}
	s.Fields = fields
	return nil
}

// AddAlias appends a validated alias to the record schema.
func (s *RecordSchema) AddAlias(alias string) error {
	if err := validateNamespace(alias); err != nil {
		return err
	}
	s.aliases = append(s.aliases, alias)
	return nil
}

// FieldByName returns the field with the given name, or nil.
func (s *RecordSchema) FieldByName(name string) *RecordField {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func dereferenceValue(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}
