package avro

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// nameCache interns named schemas by full-name across a single parse (or a
// single write), letting a Record refer to itself by name and letting the
// writer detect full-name conflicts.
type nameCache struct {
	schemas map[string]NamedSchema
}

func newNameCache() *nameCache {
	return &nameCache{schemas: map[string]NamedSchema{}}
}

func (c *nameCache) get(name string) (NamedSchema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

func (c *nameCache) put(s NamedSchema) {
	c.schemas[s.FullName()] = s
}

// ReadSchema parses a JSON schema document without reusing any existing
// named schemas.
func ReadSchema(jsonText string) (Schema, error) {
	return ReadSchemaWithCache(jsonText, newNameCache())
}

// ReadSchemaFile reads and parses a schema from a file.
func ReadSchemaFile(path string) (Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadSchema(string(b))
}

// ReadSchemaWithCache parses a JSON schema document, interning (and
// resolving against) named schemas in the given cache.
func ReadSchemaWithCache(jsonText string, cache *nameCache) (Schema, error) {
	var node any
	if err := jsonAPI.Unmarshal([]byte(jsonText), &node); err != nil {
		// A bare primitive type name like `"int"` is also valid raw text
		// that isn't itself a JSON document once unquoted; fall back to
		// treating the raw text as a string node.
		node = jsonText
	}
	return parseNode(node, "", cache)
}

// MustReadSchema is like ReadSchema but panics on error.
func MustReadSchema(jsonText string) Schema {
	s, err := ReadSchema(jsonText)
	if err != nil {
		panic(err)
	}
	return s
}

// parseNode is the reader's case-chain dispatcher: the first applicable
// case wins, and the per-case reasons for declining are collected into an
// UnknownSchemaError when none apply.
func parseNode(node any, namespace string, cache *nameCache) (Schema, error) {
	var reasons []error

	if s, ok, err := caseArrayNode(node, namespace, cache); ok {
		return s, err
	} else if err != nil {
		reasons = append(reasons, err)
	}

	if s, ok, err := caseStringNode(node, namespace, cache); ok {
		return s, err
	} else if err != nil {
		reasons = append(reasons, err)
	}

	if s, ok, err := caseObjectNode(node, namespace, cache); ok {
		return s, err
	} else if err != nil {
		reasons = append(reasons, err)
	}

	if node == nil {
		return &NullSchema{}, nil
	}

	return nil, &UnknownSchemaError{Node: fmt.Sprintf("%v", node), Reasons: reasons}
}

// caseArrayNode handles the union case: a bare JSON array.
func caseArrayNode(node any, namespace string, cache *nameCache) (Schema, bool, error) {
	arr, ok := node.([]any)
	if !ok {
		return nil, false, nil
	}
	types := make([]Schema, len(arr))
	for i, n := range arr {
		s, err := parseNode(n, namespace, cache)
		if err != nil {
			return nil, true, err
		}
		types[i] = s
	}
	u, err := NewUnionSchema(types)
	return u, true, err
}

// caseStringNode handles primitive type names and name references.
func caseStringNode(node any, namespace string, cache *nameCache) (Schema, bool, error) {
	name, ok := node.(string)
	if !ok {
		return nil, false, nil
	}
	if s := primitiveByName(name, nil); s != nil {
		return s, true, nil
	}
	resolved := fullName(name, namespace)
	if s, ok := cache.get(resolved); ok {
		return s, true, nil
	}
	if s, ok := cache.get(name); ok {
		return s, true, nil
	}
	return nil, true, fmt.Errorf("avro: unknown type name %q", name)
}

func primitiveByName(name string, logical *LogicalType) Schema {
	switch name {
	case "null":
		return &NullSchema{}
	case "boolean":
		return &BooleanSchema{}
	case "int":
		return &IntSchema{Logical: logical}
	case "long":
		return &LongSchema{Logical: logical}
	case "float":
		return &FloatSchema{}
	case "double":
		return &DoubleSchema{}
	case "bytes":
		return &BytesSchema{Logical: logical}
	case "string":
		return &StringSchema{Logical: logical}
	default:
		return nil
	}
}

// caseObjectNode handles every `{"type": ...}` shaped node: logical types,
// array/map collections, and the three named schemas. It also unwraps the
// `{"type": "otherSchema"}` reference-by-object idiom.
func caseObjectNode(node any, namespace string, cache *nameCache) (Schema, bool, error) {
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false, nil
	}

	typeField, hasType := obj["type"]
	if !hasType {
		return nil, true, &InvalidSchemaError{Reason: "object schema missing \"type\""}
	}

	// `{"type": ["null", ...]}` is a union written with an object wrapper.
	if arr, ok := typeField.([]any); ok {
		s, _, err := caseArrayNode(any(arr), namespace, cache)
		return s, true, err
	}

	typeName, ok := typeField.(string)
	if !ok {
		return nil, true, &InvalidSchemaError{Reason: "\"type\" must be a string or array"}
	}

	switch typeName {
	case "null", "boolean", "float", "double":
		return primitiveByName(typeName, nil), true, nil
	case "int", "long":
		lt, err := caseLogicalType(obj, boolKind(typeName == "int"))
		if err != nil {
			return nil, true, err
		}
		return primitiveByName(typeName, lt), true, nil
	case "bytes":
		lt, err := caseLogicalType(obj, Bytes)
		if err != nil {
			return nil, true, err
		}
		return &BytesSchema{Logical: lt}, true, nil
	case "string":
		lt, err := caseLogicalType(obj, String)
		if err != nil {
			return nil, true, err
		}
		return &StringSchema{Logical: lt}, true, nil
	case "array":
		items, err := parseNode(obj["items"], namespace, cache)
		if err != nil {
			return nil, true, err
		}
		return &ArraySchema{Items: items, Properties: properties(obj, arrayReserved)}, true, nil
	case "map":
		values, err := parseNode(obj["values"], namespace, cache)
		if err != nil {
			return nil, true, err
		}
		return &MapSchema{Values: values, Properties: properties(obj, mapReserved)}, true, nil
	case "enum":
		s, err := parseEnum(obj, namespace)
		if err != nil {
			return nil, true, err
		}
		if err := internName(s, cache); err != nil {
			return nil, true, err
		}
		return s, true, nil
	case "fixed":
		s, err := parseFixed(obj, namespace)
		if err != nil {
			return nil, true, err
		}
		if err := internName(s, cache); err != nil {
			return nil, true, err
		}
		return s, true, nil
	case "record", "error":
		return parseRecord(obj, namespace, cache)
	default:
		// `{"type": "SomeNamedType"}` reference form.
		return parseNode(typeName, namespace, cache)
	}
}

func boolKind(isInt bool) Kind {
	if isInt {
		return Int
	}
	return Long
}

func caseLogicalType(obj map[string]any, base Kind) (*LogicalType, error) {
	name, _ := obj["logicalType"].(string)
	if name == "" {
		return nil, nil
	}
	kind := logicalKindFromJSON(name)
	if kind == NoLogicalType {
		return nil, nil
	}
	lt := &LogicalType{Kind: kind}
	if kind == Decimal {
		precision, ok := numberField(obj, "precision")
		if !ok {
			return nil, &InvalidSchemaError{Reason: "decimal logical type requires precision"}
		}
		lt.Precision = precision
		if scale, ok := numberField(obj, "scale"); ok {
			lt.Scale = scale
		}
	}
	if !lt.validBase(base, intField(obj, "size")) {
		// Base type disagrees with the declared logical type: per spec.md
		// §4.2, this case is simply not applicable, leaving the node to be
		// read as a plain base schema.
		return nil, nil
	}
	return lt, nil
}

func numberField(obj map[string]any, key string) (int, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func intField(obj map[string]any, key string) int {
	n, _ := numberField(obj, key)
	return n
}

func internName(s NamedSchema, cache *nameCache) error {
	if existing, ok := cache.get(s.FullName()); ok {
		if !Equal(existing, s) {
			return &InvalidSchemaError{Reason: "conflicting definitions for " + s.FullName()}
		}
		return nil
	}
	cache.put(s)
	return nil
}

func parseEnum(obj map[string]any, namespace string) (*EnumSchema, error) {
	name, _ := obj["name"].(string)
	symRaw, _ := obj["symbols"].([]any)
	symbols := make([]string, len(symRaw))
	for i, s := range symRaw {
		symbols[i], _ = s.(string)
	}
	ns := namespace
	if v, ok := obj["namespace"].(string); ok {
		ns = v
	}
	s, err := NewEnumSchema(name, ns, symbols)
	if err != nil {
		return nil, err
	}
	s.Doc, _ = obj["doc"].(string)
	s.Properties = properties(obj, enumReserved)
	return s, nil
}

func parseFixed(obj map[string]any, namespace string) (*FixedSchema, error) {
	name, _ := obj["name"].(string)
	size := intField(obj, "size")
	ns := namespace
	if v, ok := obj["namespace"].(string); ok {
		ns = v
	}
	s, err := NewFixedSchema(name, ns, size)
	if err != nil {
		return nil, err
	}
	if lt, err := caseLogicalType(obj, Fixed); err == nil {
		s.Logical = lt
	}
	s.Properties = properties(obj, fixedReserved)
	return s, nil
}

func parseRecord(obj map[string]any, namespace string, cache *nameCache) (Schema, bool, error) {
	name, _ := obj["name"].(string)
	ns := namespace
	if v, ok := obj["namespace"].(string); ok {
		ns = v
	}
	rec, err := NewRecordSchema(name, ns, nil)
	if err != nil {
		return nil, true, err
	}

	// A prior full definition under the same name is only acceptable if the
	// two definitions turn out to be structurally equal once this one is
	// fully parsed; remember it now, before overwriting the cache entry so
	// that this record's own fields can resolve self/mutual references.
	prior, hadPrior := cache.get(rec.FullName())
	cache.put(rec)

	fieldsRaw, _ := obj["fields"].([]any)
	fields := make([]*RecordField, len(fieldsRaw))
	for i, fr := range fieldsRaw {
		f, err := parseField(fr, ns, cache)
		if err != nil {
			return nil, true, err
		}
		fields[i] = f
	}
	if err := rec.SetFields(fields); err != nil {
		return nil, true, err
	}
	rec.Doc, _ = obj["doc"].(string)
	rec.Properties = properties(obj, recordReserved)
	if aliases, ok := obj["aliases"].([]any); ok {
		for _, a := range aliases {
			if as, ok := a.(string); ok {
				_ = rec.AddAlias(as)
			}
		}
	}

	if hadPrior && !Equal(prior, rec) {
		return nil, true, &InvalidSchemaError{Reason: "conflicting definitions for " + rec.FullName()}
	}
	return rec, true, nil
}

func parseField(node any, namespace string, cache *nameCache) (*RecordField, error) {
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, &InvalidSchemaError{Reason: "record field must be an object"}
	}
	name, ok := obj["name"].(string)
	if !ok {
		return nil, &InvalidSchemaError{Reason: "record field missing \"name\""}
	}
	fieldType, err := parseNode(obj["type"], namespace, cache)
	if err != nil {
		return nil, err
	}
	f := &RecordField{Name: name, Type: fieldType}
	f.Doc, _ = obj["doc"].(string)
	f.Order, _ = obj["order"].(string)
	if def, exists := obj["default"]; exists {
		f.Default = coerceDefault(def, fieldType)
		f.HasDefault = true
	}
	if aliases, ok := obj["aliases"].([]any); ok {
		for _, a := range aliases {
			if as, ok := a.(string); ok {
				f.Aliases = append(f.Aliases, as)
			}
		}
	}
	f.Properties = properties(obj, fieldReserved)
	return f, nil
}

// coerceDefault narrows JSON's float64-for-every-number representation down
// to the schema's declared numeric width.
func coerceDefault(def any, schema Schema) any {
	fv, ok := def.(float64)
	if !ok {
		return def
	}
	switch schema.Type() {
	case Int:
		return int32(fv)
	case Long:
		return int64(fv)
	case Float:
		return float32(fv)
	case Double:
		return fv
	default:
		return def
	}
}

func properties(obj map[string]any, reserved map[string]bool) map[string]any {
	props := map[string]any{}
	for k, v := range obj {
		if !reserved[k] {
			props[k] = v
		}
	}
	if len(props) == 0 {
		return nil
	}
	return props
}

func reservedSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var (
	arrayReserved  = reservedSet("type", "items")
	mapReserved    = reservedSet("type", "values")
	enumReserved   = reservedSet("type", "name", "namespace", "aliases", "doc", "symbols")
	fixedReserved  = reservedSet("type", "name", "namespace", "aliases", "size", "logicalType", "precision", "scale")
	recordReserved = reservedSet("type", "name", "namespace", "aliases", "doc", "fields")
	fieldReserved  = reservedSet("name", "doc", "type", "default", "order", "aliases")
)
