package qdrant

import (
	"sort"
	"time"

	"digital.vasic.retrieval/internal/retrieval"
)

// scoredPoint is the shared shape of search hits and scroll rows.
type scoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func tenantFilter(tenantID string) map[string]interface{} {
	return map[string]interface{}{
		"must": []map[string]interface{}{
			{"key": "tenantId", "match": map[string]interface{}{"value": tenantID}},
		},
	}
}

func (p scoredPoint) toSearchResult() retrieval.SearchResult {
	return retrieval.SearchResult{
		ChunkID:     p.ID,
		Text:        asString(p.Payload["text"]),
		SourceTitle: asString(p.Payload["sourceTitle"]),
		Score:       p.Score,
		CreatedAt:   asTime(p.Payload["createdAt"]),
		ChunkIndex:  int(asFloat(p.Payload["chunkIndex"])),
		Origin:      retrieval.OriginVector,
	}
}

// aggregateSources folds scrolled points into per-source summaries sorted
// newest first. Scroll order is insertion order, not time order, so the
// sort happens here.
func aggregateSources(points []scoredPoint, tenantID string, limit int) []retrieval.SourceSummary {
	byID := make(map[string]*retrieval.SourceSummary)

	for _, point := range points {
		id := asString(point.Payload["sourceId"])
		if id == "" {
			continue
		}
		if summary, seen := byID[id]; seen {
			summary.ChunkCount++
			continue
		}
		byID[id] = &retrieval.SourceSummary{
			ID:         id,
			Title:      asString(point.Payload["sourceTitle"]),
			TenantID:   tenantID,
			CreatedAt:  asTime(point.Payload["createdAt"]),
			ChunkCount: 1,
		}
	}

	sources := make([]retrieval.SourceSummary, 0, len(byID))
	for _, summary := range byID {
		sources = append(sources, *summary)
	}
	sort.Slice(sources, func(i, j int) bool {
		if !sources[i].CreatedAt.Equal(sources[j].CreatedAt) {
			return sources[i].CreatedAt.After(sources[j].CreatedAt)
		}
		return sources[i].ID < sources[j].ID
	})

	if len(sources) > limit {
		sources = sources[:limit]
	}
	return sources
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asTime(v any) time.Time {
	millis := int64(asFloat(v))
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
