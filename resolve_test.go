package avro

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainUser struct {
	ID   int64
	Name string
}

type taggedUser struct {
	UserID   int64  `avro:"id"`
	FullName string `avro:"name"`
	internal string
	Secret   string `avro:"-"`
}

type orderedUser struct {
	FullName string `avro:"name"`
	UserID   int64  `avro:"id"`
}

func (orderedUser) FieldOrder() []string { return []string{"id", "name"} }

func TestResolveReflectionBasedDefaultNaming(t *testing.T) {
	res, err := resolveHostType(reflect.TypeOf(plainUser{}))
	require.NoError(t, err)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "id", res.Fields[0].SchemaName)
	assert.Equal(t, "name", res.Fields[1].SchemaName)
}

func TestResolveMetadataAwareTagsAndIgnore(t *testing.T) {
	res, err := resolveHostType(reflect.TypeOf(taggedUser{}))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range res.Fields {
		names[f.SchemaName] = true
	}
	assert.True(t, names["id"])
	assert.True(t, names["name"])
	assert.False(t, names["secret"])
	assert.False(t, names["Secret"])
}

func TestResolveFieldOrderMarker(t *testing.T) {
	res, err := resolveHostType(reflect.TypeOf(orderedUser{}))
	require.NoError(t, err)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "id", res.Fields[0].SchemaName)
	assert.Equal(t, "name", res.Fields[1].SchemaName)
}

func TestFieldByNameOrAlias(t *testing.T) {
	res, err := resolveHostType(reflect.TypeOf(taggedUser{}))
	require.NoError(t, err)

	f := res.fieldByNameOrAlias(&RecordField{Name: "oldId", Aliases: []string{"id"}})
	require.NotNil(t, f)
	assert.Equal(t, "UserID", f.GoName)

	assert.Nil(t, res.fieldByNameOrAlias(&RecordField{Name: "missing"}))
}
