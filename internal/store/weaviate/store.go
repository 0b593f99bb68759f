package weaviate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"digital.vasic.retrieval/internal/retrieval"
)

// Store is a long-lived, goroutine-safe vector store handle backed by a
// single HTTP client.
type Store struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// New builds a store handle. The connection is lazy; call Health or
// EnsureSchema to verify the instance is reachable.
func New(config *Config, logger *logrus.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Name identifies the backend in logs and metrics.
func (s *Store) Name() string { return "weaviate" }

// Search runs a nearVector query filtered to the tenant inside Weaviate.
// Scores are cosine similarities, larger is better.
func (s *Store) Search(ctx context.Context, tenantID string, queryVector []float32, k int) ([]retrieval.SearchResult, error) {
	if k <= 0 {
		return []retrieval.SearchResult{}, nil
	}

	body, err := s.graphql(ctx, nearVectorQuery(s.config.ClassName, tenantID, queryVector, k))
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	rows, err := parseGetRows(body, s.config.ClassName)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	results := make([]retrieval.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, rowToSearchResult(row, false))
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":  tenantID,
		"results": len(results),
	}).Debug("Weaviate vector search completed")
	return results, nil
}

// HybridSearch runs Weaviate's native keyword+vector query. alpha 0.0 is
// pure keyword scoring, 1.0 pure vector similarity.
func (s *Store) HybridSearch(ctx context.Context, tenantID, queryText string, queryVector []float32, k int, alpha float32) ([]retrieval.SearchResult, error) {
	if k <= 0 {
		return []retrieval.SearchResult{}, nil
	}

	body, err := s.graphql(ctx, hybridQuery(s.config.ClassName, tenantID, queryText, queryVector, alpha, k))
	if err != nil {
		return nil, fmt.Errorf("hybrid query failed: %w", err)
	}
	rows, err := parseGetRows(body, s.config.ClassName)
	if err != nil {
		return nil, fmt.Errorf("hybrid query failed: %w", err)
	}

	results := make([]retrieval.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, rowToSearchResult(row, true))
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":  tenantID,
		"alpha":   alpha,
		"results": len(results),
	}).Debug("Weaviate hybrid search completed")
	return results, nil
}

// UpsertChunks writes one source's chunks through the batch endpoint.
// Every object in the call shares the generated source id and one
// ingestion timestamp. Re-ingesting a title creates a new source, the
// store never deduplicates by title.
func (s *Store) UpsertChunks(ctx context.Context, tenantID, title string, chunks []string, embeddings [][]float32) (string, error) {
	if len(chunks) != len(embeddings) {
		return "", fmt.Errorf("weaviate: chunks and embeddings must have equal length")
	}

	sourceID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	objects := make([]map[string]interface{}, len(chunks))
	for i, text := range chunks {
		objects[i] = map[string]interface{}{
			"class":  s.config.ClassName,
			"id":     uuid.New().String(),
			"vector": embeddings[i],
			"properties": map[string]interface{}{
				"text":        text,
				"tenantId":    tenantID,
				"sourceId":    sourceID,
				"sourceTitle": title,
				"chunkIndex":  i,
				"createdAt":   createdAt,
			},
		}
	}

	respBody, status, err := s.doRequest(ctx, http.MethodPost, "/v1/batch/objects", map[string]interface{}{
		"objects": objects,
	})
	if err != nil {
		return "", fmt.Errorf("chunk upsert failed: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("chunk upsert failed: status %d, body: %s", status, string(respBody))
	}

	s.logger.WithFields(logrus.Fields{
		"tenant": tenantID,
		"source": sourceID,
		"chunks": len(chunks),
	}).Debug("Source ingested into Weaviate")
	return sourceID, nil
}

// GetRecentSources scans the tenant's newest chunks and folds them into
// per-source summaries. Counts are exact only while the tenant holds fewer
// chunks than the scan limit; the graph store stays authoritative when both
// backends are configured.
func (s *Store) GetRecentSources(ctx context.Context, tenantID string, limit int) ([]retrieval.SourceSummary, error) {
	if limit <= 0 {
		return []retrieval.SourceSummary{}, nil
	}

	body, err := s.graphql(ctx, recentChunksQuery(s.config.ClassName, tenantID, recentSourcesScanLimit))
	if err != nil {
		return nil, fmt.Errorf("recent sources query failed: %w", err)
	}
	rows, err := parseGetRows(body, s.config.ClassName)
	if err != nil {
		return nil, fmt.Errorf("recent sources query failed: %w", err)
	}
	return aggregateSources(rows, tenantID, limit), nil
}
