package avro

import (
	"reflect"
	"sync"

	"github.com/ettle/strcase"
	"github.com/modern-go/reflect2"
)

// fieldResolution binds one record field of a schema to a member of a host
// struct type.
type fieldResolution struct {
	SchemaName  string
	StructField reflect2.StructField
	GoName      string
}

// TypeResolution is the Type Resolver's output for a single host type: enough
// structural information about H to drive codec construction without
// depending on the schema that produced it.
type TypeResolution struct {
	GoType     reflect2.Type
	RType      reflect.Type
	Fields     []*fieldResolution // populated when GoType is (or points to) a struct
	EnumByName map[string]int     // populated for types usable as enum hosts
}

// fieldOrderer is the "data contract" marker of spec.md §4.4: a type that
// implements it exposes only the listed field names, in that order.
type fieldOrderer interface {
	FieldOrder() []string
}

var resolutionCache sync.Map // reflect.Type -> *TypeResolution

// resolveHostType runs the reflection-based and metadata-aware chains over a
// host Go type and returns its structural resolution. Each case is tried in
// order; a case that cannot describe rt returns (nil, UnsupportedTypeError)
// and the resolver tries the next one. Results are cached per reflect.Type
// since the same host type is resolved on every encode/decode call.
func resolveHostType(rt reflect.Type) (*TypeResolution, error) {
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if cached, ok := resolutionCache.Load(rt); ok {
		return cached.(*TypeResolution), nil
	}

	var errs []error
	for _, chain := range []func(reflect.Type) (*TypeResolution, error){
		resolveMetadataAware,
		resolveReflectionBased,
	} {
		res, err := chain(rt)
		if err == nil {
			resolutionCache.Store(rt, res)
			return res, nil
		}
		errs = append(errs, err)
	}
	return nil, &aggregateError{errs: errs}
}

// resolveReflectionBased is the default chain: all exported members are
// visible, named by their Go field name.
func resolveReflectionBased(rt reflect.Type) (*TypeResolution, error) {
	res := &TypeResolution{
		GoType: reflect2.Type2(rt),
		RType:  rt,
	}
	if rt.Kind() != reflect.Struct {
		return res, nil
	}
	structType := res.GoType.(reflect2.StructType)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		res.Fields = append(res.Fields, &fieldResolution{
			SchemaName:  defaultSchemaName(sf.Name),
			StructField: structType.FieldByIndex(i),
			GoName:      sf.Name,
		})
	}
	return res, nil
}

// resolveMetadataAware is the annotation-respecting chain: `avro:"name"`
// overrides a field's schema name, `avro:"-"` excludes it, and a type
// implementing FieldOrder restricts (and orders) which fields are visible at
// all. It fails (falls through to the reflection chain) when rt carries no
// such metadata, so plain structs are still handled by the default chain.
func resolveMetadataAware(rt reflect.Type) (*TypeResolution, error) {
	if rt.Kind() != reflect.Struct {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "metadata-aware chain only describes structs"}
	}

	order, hasOrder := fieldOrderOf(rt)
	hasTags := false
	for i := 0; i < rt.NumField(); i++ {
		if _, ok := rt.Field(i).Tag.Lookup("avro"); ok {
			hasTags = true
			break
		}
	}
	if !hasOrder && !hasTags {
		return nil, &UnsupportedTypeError{TypeName: rt.String(), Reason: "no avro struct tags or FieldOrder marker present"}
	}

	res := &TypeResolution{
		GoType: reflect2.Type2(rt),
		RType:  rt,
	}
	structType := res.GoType.(reflect2.StructType)

	type candidate struct {
		schemaName string
		field      reflect2.StructField
		goName     string
	}
	byGoName := map[string]candidate{}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		tag, ok := sf.Tag.Lookup("avro")
		if ok && tag == "-" {
			continue
		}
		name := defaultSchemaName(sf.Name)
		if ok && tag != "" {
			name = tag
		}
		byGoName[sf.Name] = candidate{schemaName: name, field: structType.FieldByIndex(i), goName: sf.Name}
	}

	if hasOrder {
		for _, name := range order {
			for goName, c := range byGoName {
				if c.schemaName == name || goName == name {
					res.Fields = append(res.Fields, &fieldResolution{SchemaName: c.schemaName, StructField: c.field, GoName: c.goName})
					break
				}
			}
		}
		return res, nil
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if c, ok := byGoName[sf.Name]; ok {
			res.Fields = append(res.Fields, &fieldResolution{SchemaName: c.schemaName, StructField: c.field, GoName: c.goName})
		}
	}
	return res, nil
}

func fieldOrderOf(rt reflect.Type) ([]string, bool) {
	if v, ok := reflect.New(rt).Interface().(fieldOrderer); ok {
		return v.FieldOrder(), true
	}
	return nil, false
}

// defaultSchemaName derives a schema field/symbol name from a Go identifier
// when no override tag is present, normalizing PascalCase to the
// lowerCamelCase convention Avro schemas typically use.
func defaultSchemaName(goName string) string {
	return strcase.ToCamel(goName)
}

// fieldByName locates the resolved field matching a schema field name,
// falling back to a casing-normalized comparison against the Go name (for
// hosts resolved without explicit tags, whose SchemaName is itself derived
// via defaultSchemaName and so already matches like-for-like).
func (r *TypeResolution) fieldByName(schemaName string) *fieldResolution {
	for _, f := range r.Fields {
		if f.SchemaName == schemaName {
			return f
		}
	}
	pascal := strcase.ToPascal(schemaName)
	for _, f := range r.Fields {
		if f.GoName == pascal {
			return f
		}
	}
	return nil
}

// fieldByNameOrAlias matches a writer-schema field against the resolution,
// trying the field's declared name first and its aliases second — the host
// type may have been written against an older alias of a renamed field.
func (r *TypeResolution) fieldByNameOrAlias(sf *RecordField) *fieldResolution {
	if f := r.fieldByName(sf.Name); f != nil {
		return f
	}
	for _, alias := range sf.Aliases {
		if f := r.fieldByName(alias); f != nil {
			return f
		}
	}
	return nil
}
