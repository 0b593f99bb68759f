package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := New(config, logger)
	require.NoError(t, err)
	return store
}

func capturedQuery(t *testing.T, r *http.Request) string {
	t.Helper()
	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body.Query
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[0.5,-0.25,1]", formatVector([]float32{0.5, -0.25, 1.0}))
	assert.Equal(t, "[]", formatVector(nil))
}

func TestSearch(t *testing.T) {
	var query string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		query = capturedQuery(t, r)
		fmt.Fprint(w, `{"data":{"Get":{"DocumentChunk":[
			{"text":"quarterly revenue grew","sourceTitle":"Q3 Report","chunkIndex":2,
			 "createdAt":"2025-06-01T12:00:00Z",
			 "_additional":{"id":"chunk-1","distance":0.2}}
		]}}}`)
	})

	results, err := store.Search(context.Background(), "acme", []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "chunk-1", results[0].ChunkID)
	assert.Equal(t, "quarterly revenue grew", results[0].Text)
	assert.Equal(t, "Q3 Report", results[0].SourceTitle)
	assert.Equal(t, 2, results[0].ChunkIndex)
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	assert.Equal(t, "vector", string(results[0].Origin))

	assert.Contains(t, query, `path: ["tenantId"]`)
	assert.Contains(t, query, `valueText: "acme"`)
	assert.Contains(t, query, "limit: 5")
	assert.Contains(t, query, "nearVector: {vector: [0.1,0.2]}")
}

func TestSearch_GraphQLError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"class not found"}]}`)
	})

	_, err := store.Search(context.Background(), "acme", []float32{0.1}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class not found")
}

func TestSearch_NonPositiveK(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for k <= 0")
	})

	results, err := store.Search(context.Background(), "acme", []float32{0.1}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearch(t *testing.T) {
	var query string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		query = capturedQuery(t, r)
		fmt.Fprint(w, `{"data":{"Get":{"DocumentChunk":[
			{"text":"revenue","sourceTitle":"Q3 Report","chunkIndex":0,
			 "createdAt":"2025-06-01T12:00:00Z",
			 "_additional":{"id":"chunk-1","score":"0.85"}}
		]}}}`)
	})

	results, err := store.HybridSearch(context.Background(), "acme", "quarterly revenue", []float32{0.1}, 3, 0.75)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "chunk-1", results[0].ChunkID)
	assert.InDelta(t, 0.85, results[0].Score, 1e-9)

	assert.Contains(t, query, `query: "quarterly revenue"`)
	assert.Contains(t, query, "alpha: 0.75")
	assert.Contains(t, query, `valueText: "acme"`)
}

func TestUpsertChunks(t *testing.T) {
	var batch struct {
		Objects []struct {
			Class      string                 `json:"class"`
			ID         string                 `json:"id"`
			Vector     []float32              `json:"vector"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"objects"`
	}
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		fmt.Fprint(w, `[]`)
	})

	sourceID, err := store.UpsertChunks(context.Background(), "acme", "Q3 Report",
		[]string{"alpha", "beta"}, [][]float32{{0.1}, {0.2}})
	require.NoError(t, err)
	require.NotEmpty(t, sourceID)

	require.Len(t, batch.Objects, 2)
	for i, obj := range batch.Objects {
		assert.Equal(t, "DocumentChunk", obj.Class)
		assert.NotEmpty(t, obj.ID)
		assert.NotEmpty(t, obj.Vector)
		assert.Equal(t, sourceID, obj.Properties["sourceId"])
		assert.Equal(t, "acme", obj.Properties["tenantId"])
		assert.Equal(t, "Q3 Report", obj.Properties["sourceTitle"])
		assert.Equal(t, float64(i), obj.Properties["chunkIndex"])
	}
	assert.Equal(t, batch.Objects[0].Properties["createdAt"], batch.Objects[1].Properties["createdAt"])
}

func TestUpsertChunks_LengthMismatch(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected on length mismatch")
	})

	_, err := store.UpsertChunks(context.Background(), "acme", "Q3 Report",
		[]string{"alpha", "beta"}, [][]float32{{0.1}})
	assert.Error(t, err)
}

func TestGetRecentSources(t *testing.T) {
	var query string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		query = capturedQuery(t, r)
		fmt.Fprint(w, `{"data":{"Get":{"DocumentChunk":[
			{"sourceId":"s2","sourceTitle":"Newer","createdAt":"2025-06-02T00:00:00Z"},
			{"sourceId":"s2","sourceTitle":"Newer","createdAt":"2025-06-02T00:00:00Z"},
			{"sourceId":"s1","sourceTitle":"Older","createdAt":"2025-06-01T00:00:00Z"}
		]}}}`)
	})

	sources, err := store.GetRecentSources(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "s2", sources[0].ID)
	assert.Equal(t, "Newer", sources[0].Title)
	assert.Equal(t, 2, sources[0].ChunkCount)
	assert.Equal(t, "acme", sources[0].TenantID)
	assert.Equal(t, "s1", sources[1].ID)
	assert.Equal(t, 1, sources[1].ChunkCount)

	assert.Contains(t, query, `valueText: "acme"`)
	assert.Contains(t, query, `sort: [{path: ["createdAt"], order: desc}]`)
}

func TestGetRecentSources_LimitTruncates(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"Get":{"DocumentChunk":[
			{"sourceId":"s3","sourceTitle":"C","createdAt":"2025-06-03T00:00:00Z"},
			{"sourceId":"s2","sourceTitle":"B","createdAt":"2025-06-02T00:00:00Z"},
			{"sourceId":"s1","sourceTitle":"A","createdAt":"2025-06-01T00:00:00Z"}
		]}}}`)
	})

	sources, err := store.GetRecentSources(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "s3", sources[0].ID)
	assert.Equal(t, "s2", sources[1].ID)
}

func TestEnsureSchema_CreatesMissingClass(t *testing.T) {
	var created map[string]interface{}
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/schema/DocumentChunk":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.Equal(t, "DocumentChunk", created["class"])
	assert.Equal(t, "none", created["vectorizer"])
}

func TestEnsureSchema_ExistingClass(t *testing.T) {
	var posted bool
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
		}
		fmt.Fprint(w, `{}`)
	})

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.False(t, posted)
}
