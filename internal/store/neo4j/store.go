// Package neo4j implements the graph store adapter. Sources and chunks live
// as nodes joined by HAS_CHUNK edges, so the store can answer both vector
// similarity queries (via the chunk vector index) and relationship
// traversals the flat vector stores cannot express.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"digital.vasic.retrieval/internal/retrieval"
)

// Config holds connection and index settings for the graph store.
type Config struct {
	URI         string `yaml:"uri"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	VectorIndex string `yaml:"vector_index"`
	Dimension   int    `yaml:"dimension"`
}

// DefaultConfig returns defaults for a local Neo4j instance.
func DefaultConfig() *Config {
	return &Config{
		URI:         "bolt://localhost:7687",
		Username:    "neo4j",
		Database:    "neo4j",
		VectorIndex: "chunk_embeddings",
		Dimension:   1536,
	}
}

// Validate checks construction-time invariants.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("neo4j: uri is required")
	}
	if c.VectorIndex == "" {
		return fmt.Errorf("neo4j: vector index name is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("neo4j: embedding dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// Store is a long-lived, goroutine-safe graph store handle. The driver owns
// the connection pool; one Store serves many concurrent queries across
// tenants.
type Store struct {
	driver neo4j.DriverWithContext
	config *Config
	logger *logrus.Logger
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, config *Config, logger *logrus.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.WithField("uri", config.URI).Info("Connected to Neo4j")
	return &Store{driver: driver, config: config, logger: logger}, nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Name identifies the backend in logs and metrics.
func (s *Store) Name() string { return "neo4j" }

// EnsureSchema creates the chunk vector index and tenant lookup indexes if
// they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
			FOR (c:Chunk) ON (c.embedding)
			OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`,
			s.config.VectorIndex, s.config.Dimension),
		`CREATE INDEX chunk_tenant IF NOT EXISTS FOR (c:Chunk) ON (c.tenantId)`,
		`CREATE INDEX source_tenant IF NOT EXISTS FOR (src:Source) ON (src.tenantId)`,
	}
	for _, stmt := range statements {
		if _, err := s.run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Search runs a vector index query filtered to the tenant inside the
// database. Results carry the index's native similarity score.
func (s *Store) Search(ctx context.Context, tenantID string, queryVector []float32, k int) ([]retrieval.SearchResult, error) {
	if k <= 0 {
		return []retrieval.SearchResult{}, nil
	}

	// Over-fetch before the tenant predicate so a multi-tenant index can
	// still fill k rows for one tenant.
	query := `CALL db.index.vector.queryNodes($index, $fetch, $vector)
		YIELD node, score
		WHERE node.tenantId = $tenantId
		RETURN node.id AS id, node.text AS text, node.sourceTitle AS sourceTitle,
		       node.chunkIndex AS chunkIndex, node.createdAt AS createdAt, score
		LIMIT $k`

	result, err := s.run(ctx, query, map[string]any{
		"index":    s.config.VectorIndex,
		"fetch":    4 * k,
		"k":        k,
		"vector":   toFloat64Slice(queryVector),
		"tenantId": tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	results := make([]retrieval.SearchResult, 0, len(result.Records))
	for _, record := range result.Records {
		results = append(results, recordToSearchResult(record.AsMap()))
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":  tenantID,
		"results": len(results),
	}).Debug("Neo4j vector search completed")
	return results, nil
}

// UpsertChunks creates one Source node and its Chunk nodes in a single
// write query; everything in the call shares one ingestion timestamp.
// Re-ingesting a title creates a new Source, the store never deduplicates
// by title.
func (s *Store) UpsertChunks(ctx context.Context, tenantID, title string, chunks []string, embeddings [][]float32) (string, error) {
	if len(chunks) != len(embeddings) {
		return "", fmt.Errorf("neo4j: chunks and embeddings must have equal length")
	}

	sourceID := uuid.New().String()
	createdAt := time.Now().UnixMilli()

	rows := make([]map[string]any, len(chunks))
	for i, text := range chunks {
		rows[i] = map[string]any{
			"id":        uuid.New().String(),
			"text":      text,
			"index":     i,
			"embedding": toFloat64Slice(embeddings[i]),
		}
	}

	query := `CREATE (src:Source {id: $sourceId, title: $title, tenantId: $tenantId,
			createdAt: $createdAt, chunkCount: $chunkCount})
		WITH src
		UNWIND $rows AS row
		CREATE (c:Chunk {id: row.id, text: row.text, embedding: row.embedding,
			tenantId: $tenantId, sourceTitle: $title, chunkIndex: row.index,
			createdAt: $createdAt})
		CREATE (src)-[:HAS_CHUNK]->(c)`

	_, err := s.run(ctx, query, map[string]any{
		"sourceId":   sourceID,
		"title":      title,
		"tenantId":   tenantID,
		"createdAt":  createdAt,
		"chunkCount": len(chunks),
		"rows":       rows,
	})
	if err != nil {
		return "", fmt.Errorf("chunk upsert failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant": tenantID,
		"source": sourceID,
		"chunks": len(chunks),
	}).Debug("Source ingested into Neo4j")
	return sourceID, nil
}

// GetRecentSources lists the tenant's sources newest first with their
// aggregated chunk counts.
func (s *Store) GetRecentSources(ctx context.Context, tenantID string, limit int) ([]retrieval.SourceSummary, error) {
	if limit <= 0 {
		return []retrieval.SourceSummary{}, nil
	}

	query := `MATCH (src:Source {tenantId: $tenantId})
		OPTIONAL MATCH (src)-[:HAS_CHUNK]->(c:Chunk)
		RETURN src.id AS id, src.title AS title, src.createdAt AS createdAt, count(c) AS chunkCount
		ORDER BY createdAt DESC
		LIMIT $limit`

	result, err := s.run(ctx, query, map[string]any{
		"tenantId": tenantID,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("recent sources query failed: %w", err)
	}

	sources := make([]retrieval.SourceSummary, 0, len(result.Records))
	for _, record := range result.Records {
		sources = append(sources, recordToSourceSummary(record.AsMap(), tenantID))
	}
	return sources, nil
}

// RelatedDocuments walks author and organization edges to surface sources
// connected to the given author through up to maxHops relationship steps.
// This is a graph-specific capability outside the common adapter contract;
// the orchestrator never calls it on its own.
func (s *Store) RelatedDocuments(ctx context.Context, tenantID, authorName string, maxHops int) ([]retrieval.SourceSummary, error) {
	result, err := s.run(ctx, relatedDocumentsQuery(maxHops), map[string]any{
		"tenantId": tenantID,
		"author":   authorName,
	})
	if err != nil {
		return nil, fmt.Errorf("related documents query failed: %w", err)
	}

	sources := make([]retrieval.SourceSummary, 0, len(result.Records))
	for _, record := range result.Records {
		sources = append(sources, recordToSourceSummary(record.AsMap(), tenantID))
	}
	return sources, nil
}

func (s *Store) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.config.Database))
}
