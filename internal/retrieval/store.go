package retrieval

import (
	"context"
)

// StoreAdapter is the uniform operation set every backing store exposes.
// Implementations are long-lived, goroutine-safe handles that own their
// connection pool; tenant isolation is enforced inside each backend query,
// never as a post-filter.
type StoreAdapter interface {
	// Search returns up to k results ordered by the backend's own notion of
	// relevance, best first, filtered to the given tenant. An empty result
	// set is an empty non-nil slice, not an error.
	Search(ctx context.Context, tenantID string, queryVector []float32, k int) ([]SearchResult, error)

	// UpsertChunks persists one new Source with its chunks. chunks and
	// embeddings are paired by index and must have equal length. Returns the
	// generated source id.
	UpsertChunks(ctx context.Context, tenantID, title string, chunks []string, embeddings [][]float32) (string, error)

	// GetRecentSources returns up to limit sources for the tenant, newest
	// first, each with its aggregated chunk count.
	GetRecentSources(ctx context.Context, tenantID string, limit int) ([]SourceSummary, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// HybridSearcher is the optional capability of backends with native
// keyword+vector scoring. alpha blends keyword weight (0.0) against vector
// similarity weight (1.0). The Engine asserts this interface explicitly
// instead of probing adapters at runtime.
type HybridSearcher interface {
	HybridSearch(ctx context.Context, tenantID, queryText string, queryVector []float32, k int, alpha float32) ([]SearchResult, error)
}
