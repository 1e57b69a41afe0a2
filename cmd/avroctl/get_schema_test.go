package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchemaCommandFetchesByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schemas/ids/3", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"schema": `"long"`})
	}))
	defer srv.Close()

	cfg := &registryConfig{URL: srv.URL}
	cmd := newGetSchemaCommand(cfg, nil)

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.json")
	cmd.SetArgs([]string{"--id", "3", "-o", outPath})
	require.NoError(t, cmd.Execute())

	out, err := readInput(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "long")
}

func TestGetSchemaCommandRequiresRegistryURL(t *testing.T) {
	cfg := &registryConfig{}
	cmd := newGetSchemaCommand(cfg, nil)
	cmd.SetArgs([]string{"--id", "1"})
	assert.Error(t, cmd.Execute())
}

func TestGetSchemaCommandRequiresIDOrSubject(t *testing.T) {
	cfg := &registryConfig{URL: "http://localhost:1"}
	cmd := newGetSchemaCommand(cfg, nil)
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
