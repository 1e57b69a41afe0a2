package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrobridge/avro"
)

func TestGeneratorEmitsStructWithTags(t *testing.T) {
	schema, err := avro.ReadSchema(`{
		"type": "record", "name": "Person", "namespace": "people",
		"fields": [
			{"name": "full_name", "type": "string"},
			{"name": "age", "type": "int"}
		]
	}`)
	require.NoError(t, err)

	gen := newGenerator("avrogen")
	gen.emit(schema)
	out := gen.String()

	assert.Contains(t, out, "package avrogen")
	assert.Contains(t, out, "struct {")
	assert.Contains(t, out, "Person struct {")
	assert.Contains(t, out, "`avro:\"full_name\"`")
	assert.Contains(t, out, "FullName string")
	assert.Contains(t, out, "Age int32")
}

func TestGeneratorDedupesNamedRecords(t *testing.T) {
	schema, err := avro.ReadSchema(`{
		"type": "record", "name": "Pair",
		"fields": [
			{"name": "left", "type": {"type": "record", "name": "Leaf", "fields": [{"name":"v","type":"int"}]}},
			{"name": "right", "type": "Leaf"}
		]
	}`)
	require.NoError(t, err)

	gen := newGenerator("avrogen")
	gen.emit(schema)
	out := gen.String()

	assert.Equal(t, 1, countOccurrences(out, "type Leaf struct {"))
}

func TestGeneratorAddsLogicalTypeImports(t *testing.T) {
	schema, err := avro.ReadSchema(`{"type":"string","logicalType":"uuid"}`)
	require.NoError(t, err)

	gen := newGenerator("avrogen")
	typ := gen.emit(schema)
	assert.Equal(t, "uuid.UUID", typ)
	assert.Contains(t, gen.String(), `"github.com/google/uuid"`)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
