package neo4j

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("missing uri", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.URI = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing index name", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.VectorIndex = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive dimension", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Dimension = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestRelatedDocumentsQuery(t *testing.T) {
	t.Run("interpolates hop bound", func(t *testing.T) {
		query := relatedDocumentsQuery(3)
		assert.Contains(t, query, "*1..3")
		assert.Contains(t, query, "$tenantId")
		assert.Contains(t, query, "$author")
	})

	t.Run("clamps low hop counts", func(t *testing.T) {
		assert.Contains(t, relatedDocumentsQuery(0), "*1..1")
		assert.Contains(t, relatedDocumentsQuery(-5), "*1..1")
	})

	t.Run("clamps high hop counts", func(t *testing.T) {
		assert.Contains(t, relatedDocumentsQuery(50), "*1..4")
	})

	t.Run("always filters by tenant on both endpoints", func(t *testing.T) {
		query := relatedDocumentsQuery(2)
		assert.Equal(t, 2, strings.Count(query, "tenantId: $tenantId"))
	})
}

func TestRecordToSearchResult(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	row := map[string]any{
		"id":          "chunk-1",
		"text":        "quarterly revenue grew",
		"sourceTitle": "Q3 Report",
		"chunkIndex":  int64(2),
		"createdAt":   createdAt.UnixMilli(),
		"score":       0.87,
	}

	result := recordToSearchResult(row)

	assert.Equal(t, "chunk-1", result.ChunkID)
	assert.Equal(t, "quarterly revenue grew", result.Text)
	assert.Equal(t, "Q3 Report", result.SourceTitle)
	assert.Equal(t, 2, result.ChunkIndex)
	assert.Equal(t, 0.87, result.Score)
	assert.True(t, result.CreatedAt.Equal(createdAt))
}

func TestRecordToSearchResult_MissingFields(t *testing.T) {
	result := recordToSearchResult(map[string]any{})

	assert.Empty(t, result.ChunkID)
	assert.Zero(t, result.Score)
	assert.True(t, result.CreatedAt.IsZero())
}

func TestRecordToSourceSummary(t *testing.T) {
	row := map[string]any{
		"id":         "source-1",
		"title":      "Q3 Report",
		"createdAt":  int64(1748779200000),
		"chunkCount": int64(3),
	}

	summary := recordToSourceSummary(row, "acme")

	assert.Equal(t, "source-1", summary.ID)
	assert.Equal(t, "Q3 Report", summary.Title)
	assert.Equal(t, "acme", summary.TenantID)
	assert.Equal(t, 3, summary.ChunkCount)
	assert.False(t, summary.CreatedAt.IsZero())
}

func TestToFloat64Slice(t *testing.T) {
	out := toFloat64Slice([]float32{0.5, 1.0, -0.25})
	require.Len(t, out, 3)
	assert.Equal(t, 0.5, out[0])
	assert.Equal(t, 1.0, out[1])
	assert.Equal(t, -0.25, out[2])
}
