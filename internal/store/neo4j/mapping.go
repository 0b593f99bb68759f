package neo4j

import (
	"fmt"
	"time"

	"digital.vasic.retrieval/internal/retrieval"
)

const maxTraversalHops = 4

// relatedDocumentsQuery builds the author/organization traversal. Cypher
// cannot parameterize variable-length bounds, so the clamped hop count is
// interpolated into the pattern.
func relatedDocumentsQuery(maxHops int) string {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > maxTraversalHops {
		maxHops = maxTraversalHops
	}
	return fmt.Sprintf(`MATCH (a:Author {name: $author, tenantId: $tenantId})
		MATCH (a)-[:WROTE|MEMBER_OF*1..%d]-(src:Source {tenantId: $tenantId})
		OPTIONAL MATCH (src)-[:HAS_CHUNK]->(c:Chunk)
		RETURN DISTINCT src.id AS id, src.title AS title, src.createdAt AS createdAt, count(c) AS chunkCount
		ORDER BY createdAt DESC`, maxHops)
}

// recordToSearchResult maps one vector query row. Timestamps are stored as
// epoch milliseconds.
func recordToSearchResult(row map[string]any) retrieval.SearchResult {
	return retrieval.SearchResult{
		ChunkID:     asString(row["id"]),
		Text:        asString(row["text"]),
		SourceTitle: asString(row["sourceTitle"]),
		Score:       asFloat(row["score"]),
		CreatedAt:   asTime(row["createdAt"]),
		ChunkIndex:  int(asInt(row["chunkIndex"])),
		Origin:      retrieval.OriginGraph,
	}
}

// recordToSourceSummary maps one source aggregation row.
func recordToSourceSummary(row map[string]any, tenantID string) retrieval.SourceSummary {
	return retrieval.SourceSummary{
		ID:         asString(row["id"]),
		Title:      asString(row["title"]),
		TenantID:   tenantID,
		CreatedAt:  asTime(row["createdAt"]),
		ChunkCount: int(asInt(row["chunkCount"])),
	}
}

func toFloat64Slice(vector []float32) []float64 {
	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = float64(v)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func asTime(v any) time.Time {
	millis := asInt(v)
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
