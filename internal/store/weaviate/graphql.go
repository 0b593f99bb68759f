package weaviate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"digital.vasic.retrieval/internal/retrieval"
)

// recentSourcesScanLimit caps the chunk scan behind GetRecentSources.
// Weaviate has no server-side group-by over Get queries, so sources are
// aggregated client-side from the newest chunks.
const recentSourcesScanLimit = 1000

// formatVector renders a GraphQL float list. %v on a slice produces
// space-separated values, which Weaviate rejects, so elements are joined
// explicitly.
func formatVector(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func tenantWhere(tenantID string) string {
	return fmt.Sprintf(`where: {path: ["tenantId"], operator: Equal, valueText: %q}`, tenantID)
}

func nearVectorQuery(class, tenantID string, vector []float32, k int) string {
	return fmt.Sprintf(`{
		Get {
			%s(
				nearVector: {vector: %s}
				%s
				limit: %d
			) {
				text
				sourceTitle
				chunkIndex
				createdAt
				_additional { id distance }
			}
		}
	}`, class, formatVector(vector), tenantWhere(tenantID), k)
}

func hybridQuery(class, tenantID, queryText string, vector []float32, alpha float32, k int) string {
	return fmt.Sprintf(`{
		Get {
			%s(
				hybrid: {query: %s, vector: %s, alpha: %s}
				%s
				limit: %d
			) {
				text
				sourceTitle
				chunkIndex
				createdAt
				_additional { id score }
			}
		}
	}`, class, strconv.Quote(queryText), formatVector(vector),
		strconv.FormatFloat(float64(alpha), 'g', -1, 32), tenantWhere(tenantID), k)
}

func recentChunksQuery(class, tenantID string, scanLimit int) string {
	return fmt.Sprintf(`{
		Get {
			%s(
				%s
				sort: [{path: ["createdAt"], order: desc}]
				limit: %d
			) {
				sourceId
				sourceTitle
				createdAt
			}
		}
	}`, class, tenantWhere(tenantID), scanLimit)
}

// parseGetRows extracts the object list under data.Get.<class>, surfacing
// GraphQL-level errors the 200 response body may carry.
func parseGetRows(body []byte, class string) ([]map[string]any, error) {
	var parsed struct {
		Data   map[string]map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse graphql response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", parsed.Errors[0].Message)
	}

	raw, ok := parsed.Data["Get"][class]
	if !ok {
		return []map[string]any{}, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse result rows: %w", err)
	}
	return rows, nil
}

// rowToSearchResult maps one Get row. Near-vector rows carry a cosine
// distance, which is converted to a similarity so larger is better; hybrid
// rows carry a native score, which Weaviate serializes as a string.
func rowToSearchResult(row map[string]any, hybrid bool) retrieval.SearchResult {
	result := retrieval.SearchResult{
		Text:        asString(row["text"]),
		SourceTitle: asString(row["sourceTitle"]),
		ChunkIndex:  int(asFloat(row["chunkIndex"])),
		CreatedAt:   asTime(row["createdAt"]),
		Origin:      retrieval.OriginVector,
	}

	additional, _ := row["_additional"].(map[string]any)
	if additional == nil {
		return result
	}
	result.ChunkID = asString(additional["id"])
	if hybrid {
		result.Score = asFloat(additional["score"])
	} else {
		result.Score = 1 - asFloat(additional["distance"])
	}
	return result
}

// aggregateSources folds newest-first chunk rows into per-source summaries,
// preserving first-appearance order and counting every scanned chunk.
func aggregateSources(rows []map[string]any, tenantID string, limit int) []retrieval.SourceSummary {
	byID := make(map[string]*retrieval.SourceSummary)
	order := make([]string, 0, limit)

	for _, row := range rows {
		id := asString(row["sourceId"])
		if id == "" {
			continue
		}
		if summary, seen := byID[id]; seen {
			summary.ChunkCount++
			continue
		}
		byID[id] = &retrieval.SourceSummary{
			ID:         id,
			Title:      asString(row["sourceTitle"]),
			TenantID:   tenantID,
			CreatedAt:  asTime(row["createdAt"]),
			ChunkCount: 1,
		}
		order = append(order, id)
	}

	if len(order) > limit {
		order = order[:limit]
	}
	sources := make([]retrieval.SourceSummary, 0, len(order))
	for _, id := range order {
		sources = append(sources, *byID[id])
	}
	return sources
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
