package avro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSchemaPrimitives(t *testing.T) {
	for _, tc := range []struct {
		json string
		kind Kind
	}{
		{`"null"`, Null},
		{`"boolean"`, Boolean},
		{`"int"`, Int},
		{`"long"`, Long},
		{`"float"`, Float},
		{`"double"`, Double},
		{`"bytes"`, Bytes},
		{`"string"`, String},
	} {
		s, err := ReadSchema(tc.json)
		require.NoError(t, err, tc.json)
		assert.Equal(t, tc.kind, s.Type())
	}
}

func TestReadSchemaRecord(t *testing.T) {
	doc := `{
		"type": "record",
		"name": "User",
		"namespace": "com.example",
		"fields": [
			{"name": "id", "type": "long"},
			{"name": "name", "type": "string"},
			{"name": "tags", "type": {"type": "array", "items": "string"}}
		]
	}`
	s, err := ReadSchema(doc)
	require.NoError(t, err)
	rs, ok := s.(*RecordSchema)
	require.True(t, ok)
	assert.Equal(t, "com.example.User", rs.FullName())
	require.Len(t, rs.Fields, 3)
	assert.Equal(t, "id", rs.Fields[0].Name)
	assert.Equal(t, Long, rs.Fields[0].Type.Type())
	assert.Equal(t, Array, rs.Fields[2].Type.Type())
}

func TestReadSchemaRecursiveRecord(t *testing.T) {
	doc := `{
		"type": "record",
		"name": "Node",
		"fields": [
			{"name": "value", "type": "int"},
			{"name": "next", "type": ["null", "Node"]}
		]
	}`
	s, err := ReadSchema(doc)
	require.NoError(t, err)
	rs := s.(*RecordSchema)
	union := rs.Fields[1].Type.(*UnionSchema)
	require.Len(t, union.Types, 2)
	next, ok := union.Types[1].(*RecordSchema)
	require.True(t, ok)
	assert.Equal(t, "Node", next.FullName())
}

func TestInvalidNameRejected(t *testing.T) {
	_, err := NewRecordSchema("1Bad", "", nil)
	require.Error(t, err)
	var nameErr *InvalidNameError
	assert.ErrorAs(t, err, &nameErr)
}

func TestDuplicateEnumSymbolRejected(t *testing.T) {
	_, err := NewEnumSchema("Suit", "", []string{"SPADES", "SPADES"})
	require.Error(t, err)
}

func TestEqualStructural(t *testing.T) {
	a, err := ReadSchema(`{"type":"record","name":"A","fields":[{"name":"x","type":"int"}]}`)
	require.NoError(t, err)
	b, err := ReadSchema(`{"type":"record","name":"A","fields":[{"name":"x","type":"int"}]}`)
	require.NoError(t, err)
	c, err := ReadSchema(`{"type":"record","name":"A","fields":[{"name":"x","type":"long"}]}`)
	require.NoError(t, err)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestEqualHandlesRecursiveSchemas(t *testing.T) {
	doc := `{
		"type": "record",
		"name": "Node",
		"fields": [{"name": "next", "type": ["null", "Node"]}]
	}`
	a, err := ReadSchema(doc)
	require.NoError(t, err)
	b, err := ReadSchema(doc)
	require.NoError(t, err)
	assert.True(t, Equal(a, b))
}

func TestWriteSchemaFullRoundTrips(t *testing.T) {
	s, err := ReadSchema(`{"type":"record","name":"Point","namespace":"geo","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`)
	require.NoError(t, err)
	out, err := WriteSchema(s, false)
	require.NoError(t, err)

	reparsed, err := ReadSchema(string(out))
	require.NoError(t, err)
	assert.True(t, Equal(s, reparsed))
}

func TestWriteSchemaCanonicalOmitsExtras(t *testing.T) {
	s, err := ReadSchema(`{"type":"record","name":"Point","namespace":"geo","doc":"a point","aliases":["OldPoint"],"fields":[{"name":"x","type":"double"}]}`)
	require.NoError(t, err)
	out, err := WriteSchema(s, true)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "doc")
	assert.NotContains(t, string(out), "OldPoint")
	assert.Contains(t, string(out), `"geo.Point"`)
}

func TestWriteSchemaNameConflictDetected(t *testing.T) {
	a, err := NewRecordSchema("Dup", "", []*RecordField{{Name: "x", Type: &IntSchema{}}})
	require.NoError(t, err)
	b, err := NewRecordSchema("Dup", "", []*RecordField{{Name: "y", Type: &StringSchema{}}})
	require.NoError(t, err)
	outer, err := NewRecordSchema("Outer", "", []*RecordField{
		{Name: "a", Type: a},
		{Name: "b", Type: b},
	})
	require.NoError(t, err)

	_, err = WriteSchema(outer, false)
	require.Error(t, err)
	var schemaErr *InvalidSchemaError
	assert.ErrorAs(t, err, &schemaErr)
}
