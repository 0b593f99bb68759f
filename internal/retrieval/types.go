// Package retrieval implements a multi-backend retrieval engine that fans a
// semantic query out to heterogeneous stores (a graph store and a vector
// store), then fuses, deduplicates and ranks their results under a
// selectable strategy.
package retrieval

import (
	"time"
)

// Origin indicates which backend produced a search result.
type Origin string

const (
	// OriginGraph marks results produced by the graph store.
	OriginGraph Origin = "graph"
	// OriginVector marks results produced by the vector store.
	OriginVector Origin = "vector"
	// OriginGraphFallback marks graph results served because the primary
	// adapter for the selected strategy was unavailable.
	OriginGraphFallback Origin = "graph_fallback"
	// OriginVectorFallback marks vector results served because the primary
	// adapter for the selected strategy was unavailable.
	OriginVectorFallback Origin = "vector_fallback"
	// OriginFused marks results produced by rank fusion.
	OriginFused Origin = "fused"
)

// Strategy selects which adapters are queried and how their results are
// combined for a single call.
type Strategy string

const (
	// StrategyGraphOnly queries the graph adapter only.
	StrategyGraphOnly Strategy = "graph_only"
	// StrategyVectorOnly queries the vector adapter only.
	StrategyVectorOnly Strategy = "vector_only"
	// StrategySemanticFirst queries the vector adapter first and fills any
	// shortfall from the graph adapter.
	StrategySemanticFirst Strategy = "semantic_first"
	// StrategyGraphFirst queries the graph adapter first and fills any
	// shortfall from the vector adapter.
	StrategyGraphFirst Strategy = "graph_first"
	// StrategyParallelFusion queries both adapters concurrently, over-fetching
	// 2k per backend, then fuses with weighted reciprocal rank fusion.
	StrategyParallelFusion Strategy = "parallel_fusion"
	// StrategyAdaptive routes to SemanticFirst for long free-text queries and
	// to ParallelFusion otherwise.
	StrategyAdaptive Strategy = "adaptive"
)

// ValidStrategy reports whether s is a member of the closed strategy set.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyGraphOnly, StrategyVectorOnly, StrategySemanticFirst,
		StrategyGraphFirst, StrategyParallelFusion, StrategyAdaptive:
		return true
	}
	return false
}

// SearchResult is one ranked chunk returned by a search. Score carries the
// originating backend's native relevance value; scales differ between
// backends (cosine distance for the vector store, index score for the graph
// store) and are not comparable across origins. FusionScore is populated
// only on results produced by the fusion path.
type SearchResult struct {
	ChunkID     string    `json:"chunk_id"`
	Text        string    `json:"text"`
	SourceTitle string    `json:"source_title"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	ChunkIndex  int       `json:"chunk_index"`
	Origin      Origin    `json:"origin"`
	FusionScore float64   `json:"fusion_score,omitempty"`
}

// SourceSummary describes one ingested document with its aggregated chunk
// count. Sources are immutable after ingestion.
type SourceSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TenantID   string    `json:"tenant_id"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
}
