package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrobridge/avro"
)

func TestTestSchemaCommandValidatesSchemaOnly(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "s.json")
	require.NoError(t, writeOutput(schemaPath, []byte(`"string"`)))

	cmd := newTestSchemaCommand()
	cmd.SetArgs([]string{schemaPath})
	require.NoError(t, cmd.Execute())
}

func TestTestSchemaCommandValidatesData(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "s.json")
	require.NoError(t, writeOutput(schemaPath, []byte(`"string"`)))

	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)
	data, err := avro.Marshal(schema, "hello")
	require.NoError(t, err)

	dataPath := filepath.Join(dir, "d.bin")
	require.NoError(t, writeOutput(dataPath, data))

	cmd := newTestSchemaCommand()
	cmd.SetArgs([]string{"--data", dataPath, schemaPath})
	require.NoError(t, cmd.Execute())
}

func TestTestSchemaCommandRejectsMismatchedData(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "s.json")
	require.NoError(t, writeOutput(schemaPath, []byte(`"long"`)))

	dataPath := filepath.Join(dir, "d.bin")
	require.NoError(t, writeOutput(dataPath, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))

	cmd := newTestSchemaCommand()
	cmd.SetArgs([]string{"--data", dataPath, schemaPath})
	assert.Error(t, cmd.Execute())
}
