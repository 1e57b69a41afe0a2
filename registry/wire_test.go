package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrobridge/avro"
)

func TestEncodeDecodeEnvelopeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	wire := Encode(7, payload)
	assert.Len(t, wire, envelopeLen+len(payload))

	id, got, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, payload, got)
}

func TestDecodeRejectsShortMessage(t *testing.T) {
	_, _, err := Decode([]byte{0x00, 0x01})
	assert.Error(t, err)
}

func TestDecodeRejectsBadMagicByte(t *testing.T) {
	wire := Encode(1, []byte{0xaa})
	wire[0] = 0x7f
	_, _, err := Decode(wire)
	assert.Error(t, err)
}

func TestSubjectName(t *testing.T) {
	assert.Equal(t, "orders-value", SubjectName("orders", false))
	assert.Equal(t, "orders-key", SubjectName("orders", true))
}

// fakeClient is an in-memory Client used to exercise the schema cache and
// Adapter without any network access.
type fakeClient struct {
	mu          sync.Mutex
	byID        map[int]avro.Schema
	bySubject   map[string]int
	registerErr error
	calls       int32
}

func newFakeClient() *fakeClient {
	return &fakeClient{byID: make(map[int]avro.Schema), bySubject: make(map[string]int)}
}

func (f *fakeClient) SchemaByID(_ context.Context, id int) (*SchemaInfo, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, &ErrNotFound{Code: 40403, Message: "schema not found"}
	}
	return &SchemaInfo{ID: id, Schema: s}, nil
}

func (f *fakeClient) LatestSchema(_ context.Context, subject string) (*SchemaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.bySubject[subject]
	if !ok {
		return nil, &ErrNotFound{Code: 40401, Message: "subject not found"}
	}
	return &SchemaInfo{ID: id, Subject: subject, Schema: f.byID[id]}, nil
}

func (f *fakeClient) SchemaByVersion(_ context.Context, subject string, _ int) (*SchemaInfo, error) {
	return f.LatestSchema(context.Background(), subject)
}

func (f *fakeClient) Register(_ context.Context, subject string, schema avro.Schema) (int, error) {
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := len(f.byID) + 1
	f.byID[id] = schema
	f.bySubject[subject] = id
	return id, nil
}

func (f *fakeClient) SchemaID(_ context.Context, subject string, _ avro.Schema) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.bySubject[subject]
	if !ok {
		return 0, &ErrNotFound{Code: 40401, Message: "subject not found"}
	}
	return id, nil
}

func TestAdapterBuildSerializerRegistersAutomatically(t *testing.T) {
	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)

	client := newFakeClient()
	adapter := NewAdapter(client)

	ser, err := adapter.BuildSerializer(context.Background(), schema, BuildOptions{
		Subject:               "greeting-value",
		RegisterAutomatically: true,
	})
	require.NoError(t, err)

	wire, err := ser.Serialize("hi")
	require.NoError(t, err)

	deser := adapter.BuildDeserializer()
	var out string
	require.NoError(t, deser.Deserialize(context.Background(), wire, &out))
	assert.Equal(t, "hi", out)
}

func TestSchemaCacheDedupesConcurrentLookups(t *testing.T) {
	schema, err := avro.ReadSchema(`"int"`)
	require.NoError(t, err)

	client := newFakeClient()
	_, err = client.Register(context.Background(), "n-value", schema)
	require.NoError(t, err)

	cache := newSchemaCache()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.bySchemaID(context.Background(), client, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.calls))
}

func TestAdapterBuildSerializerForID(t *testing.T) {
	schema, err := avro.ReadSchema(`"long"`)
	require.NoError(t, err)
	client := newFakeClient()
	client.byID[5] = schema

	adapter := NewAdapter(client)
	ser, err := adapter.BuildSerializerForID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, ser.ID())
}

func TestDeserializerForIDRejectsMismatchedSchemaID(t *testing.T) {
	schema, err := avro.ReadSchema(`"string"`)
	require.NoError(t, err)

	client := newFakeClient()
	client.byID[11] = schema
	client.byID[12] = schema

	adapter := NewAdapter(client)
	ser, err := adapter.BuildSerializerForID(context.Background(), 11)
	require.NoError(t, err)
	wire, err := ser.Serialize("hi")
	require.NoError(t, err)

	pinned := adapter.BuildDeserializerForID(12)
	var out string
	err = pinned.Deserialize(context.Background(), wire, &out)
	require.Error(t, err)
	assert.True(t, avro.IsInvalidData(err), "expected InvalidData, got %v", err)

	matching := adapter.BuildDeserializerForID(11)
	require.NoError(t, matching.Deserialize(context.Background(), wire, &out))
	assert.Equal(t, "hi", out)
}
