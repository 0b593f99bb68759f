// Package qdrant implements an alternate vector store adapter over Qdrant's
// REST API. Qdrant has no native keyword+vector scoring, so this adapter
// deliberately does not implement the engine's HybridSearcher capability and
// hybrid calls degrade to plain vector search.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"digital.vasic.retrieval/internal/retrieval"
)

// recentSourcesScanLimit caps the scroll behind GetRecentSources. Qdrant has
// no server-side group-by, so sources are aggregated client-side.
const recentSourcesScanLimit = 1000

// Config holds connection and collection settings for the vector store.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultConfig returns defaults for a local Qdrant instance.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:6333",
		Collection: "document_chunks",
		Dimension:  1536,
		Timeout:    30 * time.Second,
	}
}

// Validate checks construction-time invariants.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("qdrant: base url is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("qdrant: collection name is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("qdrant: embedding dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// Store is a long-lived, goroutine-safe vector store handle backed by a
// single HTTP client.
type Store struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// New builds a store handle. The connection is lazy; call Health or
// EnsureCollection to verify the instance is reachable.
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
func (s *Store) Name() string { return "qdrant" }

func (s *Store) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("api-key", s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// Health checks the root endpoint. Newer Qdrant versions dropped /health, the
// root works across all of them.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodGet, "/", nil)
	return err
}

// EnsureCollection creates the chunk collection with cosine distance if it
// does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	path := "/collections/" + s.config.Collection
	if _, err := s.doRequest(ctx, http.MethodGet, path, nil); err == nil {
		return nil
	}

	_, err := s.doRequest(ctx, http.MethodPut, path, map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.config.Dimension,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.logger.WithField("collection", s.config.Collection).Info("Qdrant collection created")
	return nil
}

// Search runs a vector search with the tenant payload filter applied inside
// Qdrant. Scores are cosine similarities, larger is better.
func (s *Store) Search(ctx context.Context, tenantID string, queryVector []float32, k int) ([]retrieval.SearchResult, error) {
	if k <= 0 {
		return []retrieval.SearchResult{}, nil
	}

	path := fmt.Sprintf("/collections/%s/points/search", s.config.Collection)
	respBody, err := s.doRequest(ctx, http.MethodPost, path, map[string]interface{}{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
		"filter":       tenantFilter(tenantID),
	})
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	var response struct {
		Result []scoredPoint `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]retrieval.SearchResult, 0, len(response.Result))
	for _, point := range response.Result {
		results = append(results, point.toSearchResult())
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":  tenantID,
		"results": len(results),
	}).Debug("Qdrant vector search completed")
	return results, nil
}

// UpsertChunks writes one source's chunks as points in a single upsert.
// Every point in the call shares the generated source id and one ingestion
// timestamp. Re-ingesting a title creates a new source, the store never
// deduplicates by title.
func (s *Store) UpsertChunks(ctx context.Context, tenantID, title string, chunks []string, embeddings [][]float32) (string, error) {
	if len(chunks) != len(embeddings) {
		return "", fmt.Errorf("qdrant: chunks and embeddings must have equal length")
	}

	sourceID := uuid.New().String()
	createdAt := time.Now().UnixMilli()

	points := make([]map[string]interface{}, len(chunks))
	for i, text := range chunks {
		points[i] = map[string]interface{}{
			"id":     uuid.New().String(),
			"vector": embeddings[i],
			"payload": map[string]interface{}{
				"text":        text,
				"tenantId":    tenantID,
				"sourceId":    sourceID,
				"sourceTitle": title,
				"chunkIndex":  i,
				"createdAt":   createdAt,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", s.config.Collection)
	if _, err := s.doRequest(ctx, http.MethodPut, path, map[string]interface{}{
		"points": points,
	}); err != nil {
		return "", fmt.Errorf("chunk upsert failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant": tenantID,
		"source": sourceID,
		"chunks": len(chunks),
	}).Debug("Source ingested into Qdrant")
	return sourceID, nil
}

// GetRecentSources scrolls the tenant's points and folds them into
// per-source summaries, newest first. Counts are exact only while the
// tenant holds fewer chunks than the scan limit; the graph store stays
// authoritative when both backends are configured.
func (s *Store) GetRecentSources(ctx context.Context, tenantID string, limit int) ([]retrieval.SourceSummary, error) {
	if limit <= 0 {
		return []retrieval.SourceSummary{}, nil
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", s.config.Collection)
	respBody, err := s.doRequest(ctx, http.MethodPost, path, map[string]interface{}{
		"filter":       tenantFilter(tenantID),
		"limit":        recentSourcesScanLimit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("recent sources query failed: %w", err)
	}

	var response struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return aggregateSources(response.Result.Points, tenantID, limit), nil
}
