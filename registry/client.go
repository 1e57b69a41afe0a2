// Package registry implements the Confluent Schema-Registry wire format and
// a client for fetching and registering schemas, plus singleflight-backed
// serializer/deserializer caches built on top of the avro package's codec.
package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/avrobridge/avro"
	"github.com/avrobridge/avro/internal/logging"
)

// ErrNotFound is returned when the registry has no schema for the requested
// id, subject, or subject/version. It carries the error code the registry
// returned, e.g. Confluent's well-known 40401 "subject not found" or 40403
// "schema not found".
type ErrNotFound struct {
	Code    int
	Message string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("registry: not found (code %d): %s", e.Code, e.Message)
}

// SchemaInfo is a schema as returned by the registry, together with its
// assigned id (and, when known, subject/version).
type SchemaInfo struct {
	ID      int
	Subject string
	Version int
	Schema  avro.Schema
	Raw     string
}

// Client is the registry operations the Wire-format Adapter depends on.
// Methods are context-first per the wider pack's HTTP-client convention
// (the teacher predates context.Context entirely).
type Client interface {
	SchemaByID(ctx context.Context, id int) (*SchemaInfo, error)
	LatestSchema(ctx context.Context, subject string) (*SchemaInfo, error)
	SchemaByVersion(ctx context.Context, subject string, version int) (*SchemaInfo, error)
	Register(ctx context.Context, subject string, schema avro.Schema) (int, error)
	SchemaID(ctx context.Context, subject string, schema avro.Schema) (int, error)
}

// HTTPClient is the default Client implementation, grounded on the
// confluent schema-registry REST API's `/schemas/ids/{id}`,
// `/subjects/{subject}/versions/latest` and
// `/subjects/{subject}/versions` endpoints.
type HTTPClient struct {
	BaseURL    *url.URL
	HTTP       *http.Client
	BasicToken string
	Logger     *logging.Logger
}

// NewHTTPClient builds a registry client against baseURL. username/password
// enable HTTP basic auth when non-empty; tlsConf may be nil.
func NewHTTPClient(baseURL string, username, password string, tlsConf *tls.Config, logger *logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("registry: parse base url: %w", err)
	}

	c := &HTTPClient{BaseURL: u, HTTP: http.DefaultClient, Logger: logger}
	if username != "" || password != "" {
		c.BasicToken = base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	}
	if tlsConf != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConf
		c.HTTP = &http.Client{Transport: transport}
	}
	return c, nil
}

func (c *HTTPClient) request(ctx context.Context, method, pathSuffix string, body io.Reader) (*http.Response, error) {
	reqURL := *c.BaseURL
	reqURL.Path = path.Join(reqURL.Path, pathSuffix)

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.schemaregistry.v1+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	}
	if c.BasicToken != "" {
		req.Header.Set("Authorization", "Basic "+c.BasicToken)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	c.Logger.Debug("registry request", "method", method, "path", pathSuffix, "elapsed", time.Since(start), "err", err)
	return resp, err
}

type schemaResponse struct {
	Schema  string `json:"schema"`
	ID      int    `json:"id"`
	Subject string `json:"subject"`
	Version int    `json:"version"`
}

func (c *HTTPClient) decodeSchema(resp *http.Response, subject string) (*SchemaInfo, error) {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		var payload struct {
			ErrorCode int    `json:"error_code"`
			Message   string `json:"message"`
		}
		b, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(b, &payload)
		return nil, &ErrNotFound{Code: payload.ErrorCode, Message: payload.Message}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var sr schemaResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("registry: decode response: %w", err)
	}
	schema, err := avro.ReadSchema(sr.Schema)
	if err != nil {
		return nil, fmt.Errorf("registry: parse schema: %w", err)
	}
	if sr.Subject == "" {
		sr.Subject = subject
	}
	return &SchemaInfo{ID: sr.ID, Subject: sr.Subject, Version: sr.Version, Schema: schema, Raw: sr.Schema}, nil
}

func (c *HTTPClient) SchemaByID(ctx context.Context, id int) (*SchemaInfo, error) {
	resp, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/schemas/ids/%d", id), nil)
	if err != nil {
		return nil, err
	}
	info, err := c.decodeSchema(resp, "")
	if err != nil {
		return nil, err
	}
	info.ID = id
	return info, nil
}

func (c *HTTPClient) LatestSchema(ctx context.Context, subject string) (*SchemaInfo, error) {
	resp, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/subjects/%s/versions/latest", subject), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeSchema(resp, subject)
}

func (c *HTTPClient) SchemaByVersion(ctx context.Context, subject string, version int) (*SchemaInfo, error) {
	resp, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/subjects/%s/versions/%d", subject, version), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeSchema(resp, subject)
}

func (c *HTTPClient) Register(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	raw, err := avro.WriteSchema(schema, false)
	if err != nil {
		return 0, fmt.Errorf("registry: write schema: %w", err)
	}
	payload, err := json.Marshal(struct {
		Schema string `json:"schema"`
	}{Schema: string(raw)})
	if err != nil {
		return 0, err
	}
	resp, err := c.request(ctx, http.MethodPost, fmt.Sprintf("/subjects/%s/versions", subject), bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("registry: register failed with status %d: %s", resp.StatusCode, string(b))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	var result struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("registry: decode register response: %w", err)
	}
	c.Logger.Info("schema registered", "subject", subject, "id", result.ID)
	return result.ID, nil
}

// SchemaID looks up the id already assigned to schema under subject, without
// registering a new version (Confluent's "check if a schema has already been
// registered" endpoint, `POST /subjects/{subject}`). Returns ErrNotFound if
// subject has no matching registered schema.
func (c *HTTPClient) SchemaID(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	raw, err := avro.WriteSchema(schema, false)
	if err != nil {
		return 0, fmt.Errorf("registry: write schema: %w", err)
	}
	payload, err := json.Marshal(struct {
		Schema string `json:"schema"`
	}{Schema: string(raw)})
	if err != nil {
		return 0, err
	}
	resp, err := c.request(ctx, http.MethodPost, fmt.Sprintf("/subjects/%s", subject), bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	info, err := c.decodeSchema(resp, subject)
	if err != nil {
		return 0, err
	}
	return info.ID, nil
}
