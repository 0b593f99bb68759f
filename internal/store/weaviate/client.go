// Package weaviate implements the vector store adapter over Weaviate's REST
// and GraphQL APIs. It is the only backend with native keyword+vector hybrid
// scoring, so it alone implements the engine's HybridSearcher capability.
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds connection and schema settings for the vector store.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	ClassName string        `yaml:"class_name"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultConfig returns defaults for a local Weaviate instance.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8080",
		ClassName: "DocumentChunk",
		Dimension: 1536,
		Timeout:   30 * time.Second,
	}
}

// Validate checks construction-time invariants.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("weaviate: base url is required")
	}
	if c.ClassName == "" {
		return fmt.Errorf("weaviate: class name is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("weaviate: embedding dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

func (s *Store) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// Health checks the readiness endpoint.
func (s *Store) Health(ctx context.Context) error {
	_, status, err := s.doRequest(ctx, http.MethodGet, "/v1/.well-known/ready", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("weaviate not ready: status %d", status)
	}
	return nil
}

// EnsureSchema creates the chunk class if it does not exist. Vectors are
// supplied externally, so the class carries no vectorizer module.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, status, err := s.doRequest(ctx, http.MethodGet, "/v1/schema/"+s.config.ClassName, nil)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("unexpected schema status: %d", status)
	}

	class := map[string]interface{}{
		"class":      s.config.ClassName,
		"vectorizer": "none",
		"vectorIndexConfig": map[string]interface{}{
			"distance": "cosine",
		},
		"properties": []map[string]interface{}{
			{"name": "text", "dataType": []string{"text"}},
			{"name": "tenantId", "dataType": []string{"text"}},
			{"name": "sourceId", "dataType": []string{"text"}},
			{"name": "sourceTitle", "dataType": []string{"text"}},
			{"name": "chunkIndex", "dataType": []string{"int"}},
			{"name": "createdAt", "dataType": []string{"date"}},
		},
	}

	respBody, status, err := s.doRequest(ctx, http.MethodPost, "/v1/schema", class)
	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("failed to create class: status %d, body: %s", status, string(respBody))
	}

	s.logger.WithField("class", s.config.ClassName).Info("Weaviate class created")
	return nil
}

func (s *Store) graphql(ctx context.Context, query string) ([]byte, error) {
	respBody, status, err := s.doRequest(ctx, http.MethodPost, "/v1/graphql", map[string]interface{}{
		"query": query,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("graphql query failed: status %d, body: %s", status, string(respBody))
	}
	return respBody, nil
}
