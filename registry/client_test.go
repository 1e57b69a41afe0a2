package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrobridge/avro"
)

func TestHTTPClientSchemaByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schemas/ids/9", r.URL.Path)
		assert.Equal(t, "application/vnd.schemaregistry.v1+json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"schema": `"string"`,
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", "", nil, nil)
	require.NoError(t, err)

	info, err := client.SchemaByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 9, info.ID)
	assert.Equal(t, "string", info.Schema.Type().String())
}

func TestHTTPClientSchemaByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 40403,
			"message":    "schema not found",
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", "", nil, nil)
	require.NoError(t, err)

	_, err = client.SchemaByID(context.Background(), 404)
	require.Error(t, err)
	var notFound *ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 40403, notFound.Code)
}

func TestHTTPClientBasicAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"schema": `"boolean"`})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "user", "pass", nil, nil)
	require.NoError(t, err)

	_, err = client.LatestSchema(context.Background(), "subj")
	require.NoError(t, err)
	assert.Contains(t, gotAuth, "Basic ")
}

func TestHTTPClientSchemaID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subjects/subj", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"subject": "subj",
			"id":      7,
			"version": 3,
			"schema":  `"string"`,
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", "", nil, nil)
	require.NoError(t, err)

	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)

	id, err := client.SchemaID(context.Background(), "subj", schema)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestHTTPClientSchemaIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 40401,
			"message":    "subject not found",
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", "", nil, nil)
	require.NoError(t, err)

	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)

	_, err = client.SchemaID(context.Background(), "subj", schema)
	require.Error(t, err)
	var notFound *ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 40401, notFound.Code)
}

func TestHTTPClientRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "", "", nil, nil)
	require.NoError(t, err)

	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)

	id, err := client.Register(context.Background(), "subj", schema)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}
