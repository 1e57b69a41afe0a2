package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchemaCommandWritesCanonicalForm(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "in.json")
	outPath := filepath.Join(dir, "out.json")
	require.NoError(t, writeOutput(schemaPath, []byte(`{"type":"record","name":"Dup","doc":"ignored","fields":[{"name":"x","type":"int"}]}`)))

	cmd := newCreateSchemaCommand()
	cmd.SetArgs([]string{"--canonical", "-o", outPath, schemaPath})
	require.NoError(t, cmd.Execute())

	out, err := readInput(outPath)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "doc")
	assert.Contains(t, string(out), `"name":"Dup"`)
}

func TestCreateSchemaCommandRejectsInvalidSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "bad.json")
	require.NoError(t, writeOutput(schemaPath, []byte(`{"type":"record","name":"1Bad","fields":[]}`)))

	cmd := newCreateSchemaCommand()
	cmd.SetArgs([]string{schemaPath})
	assert.Error(t, cmd.Execute())
}
