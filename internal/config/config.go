// Package config holds construction-time configuration for the retrieval
// engine. Values come from defaults, an optional YAML file, and environment
// variable overrides, applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration. At least one store must be
// enabled; construction fails fast otherwise.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Weaviate WeaviateConfig `yaml:"weaviate"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
}

// EngineConfig configures strategy dispatch and fusion.
type EngineConfig struct {
	DefaultStrategy       string        `yaml:"default_strategy"`
	GraphWeight           float64       `yaml:"graph_weight"`
	VectorWeight          float64       `yaml:"vector_weight"`
	RRFConstant           int           `yaml:"rrf_constant"`
	CallTimeout           time.Duration `yaml:"call_timeout"`
	AdaptiveWordThreshold int           `yaml:"adaptive_word_threshold"`
}

// Neo4jConfig configures the graph store adapter.
type Neo4jConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URI         string `yaml:"uri"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	VectorIndex string `yaml:"vector_index"`
	Dimension   int    `yaml:"dimension"`
}

// WeaviateConfig configures the hybrid-capable vector store adapter.
type WeaviateConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	ClassName string        `yaml:"class_name"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// QdrantConfig configures the alternate vector store adapter.
type QdrantConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Default returns the default configuration: no stores enabled, parallel
// fusion with the standard graph-biased weights.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			DefaultStrategy:       "parallel_fusion",
			GraphWeight:           0.6,
			VectorWeight:          0.4,
			RRFConstant:           60,
			CallTimeout:           10 * time.Second,
			AdaptiveWordThreshold: 5,
		},
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			Username:    "neo4j",
			Database:    "neo4j",
			VectorIndex: "chunk_embeddings",
			Dimension:   1536,
		},
		Weaviate: WeaviateConfig{
			BaseURL:   "http://localhost:8080",
			ClassName: "DocumentChunk",
			Dimension: 1536,
			Timeout:   30 * time.Second,
		},
		Qdrant: QdrantConfig{
			BaseURL:    "http://localhost:6333",
			Collection: "document_chunks",
			Dimension:  1536,
			Timeout:    30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults plus environment overrides.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from defaults, a YAML file, and
// environment overrides, in that order.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the engine relies on at construction time.
func (c *Config) Validate() error {
	if !c.Neo4j.Enabled && !c.Weaviate.Enabled && !c.Qdrant.Enabled {
		return fmt.Errorf("config: at least one store must be enabled")
	}
	if c.Weaviate.Enabled && c.Qdrant.Enabled {
		return fmt.Errorf("config: weaviate and qdrant are alternate vector stores, enable only one")
	}
	if c.Neo4j.Enabled && c.Neo4j.Dimension <= 0 {
		return fmt.Errorf("config: neo4j embedding dimension must be positive, got %d", c.Neo4j.Dimension)
	}
	if c.Weaviate.Enabled && c.Weaviate.Dimension <= 0 {
		return fmt.Errorf("config: weaviate embedding dimension must be positive, got %d", c.Weaviate.Dimension)
	}
	if c.Qdrant.Enabled && c.Qdrant.Dimension <= 0 {
		return fmt.Errorf("config: qdrant embedding dimension must be positive, got %d", c.Qdrant.Dimension)
	}
	if c.Engine.GraphWeight < 0 || c.Engine.VectorWeight < 0 {
		return fmt.Errorf("config: fusion weights must be non-negative")
	}
	return nil
}

// applyEnv overlays RETRIEVAL_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Engine.DefaultStrategy, "RETRIEVAL_DEFAULT_STRATEGY")
	setFloat(&c.Engine.GraphWeight, "RETRIEVAL_GRAPH_WEIGHT")
	setFloat(&c.Engine.VectorWeight, "RETRIEVAL_VECTOR_WEIGHT")
	setInt(&c.Engine.RRFConstant, "RETRIEVAL_RRF_CONSTANT")
	setDuration(&c.Engine.CallTimeout, "RETRIEVAL_CALL_TIMEOUT")
	setInt(&c.Engine.AdaptiveWordThreshold, "RETRIEVAL_ADAPTIVE_WORD_THRESHOLD")

	setBool(&c.Neo4j.Enabled, "RETRIEVAL_NEO4J_ENABLED")
	setString(&c.Neo4j.URI, "RETRIEVAL_NEO4J_URI")
	setString(&c.Neo4j.Username, "RETRIEVAL_NEO4J_USERNAME")
	setString(&c.Neo4j.Password, "RETRIEVAL_NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "RETRIEVAL_NEO4J_DATABASE")
	setString(&c.Neo4j.VectorIndex, "RETRIEVAL_NEO4J_VECTOR_INDEX")
	setInt(&c.Neo4j.Dimension, "RETRIEVAL_NEO4J_DIMENSION")

	setBool(&c.Weaviate.Enabled, "RETRIEVAL_WEAVIATE_ENABLED")
	setString(&c.Weaviate.BaseURL, "RETRIEVAL_WEAVIATE_URL")
	setString(&c.Weaviate.APIKey, "RETRIEVAL_WEAVIATE_API_KEY")
	setString(&c.Weaviate.ClassName, "RETRIEVAL_WEAVIATE_CLASS")
	setInt(&c.Weaviate.Dimension, "RETRIEVAL_WEAVIATE_DIMENSION")
	setDuration(&c.Weaviate.Timeout, "RETRIEVAL_WEAVIATE_TIMEOUT")

	setBool(&c.Qdrant.Enabled, "RETRIEVAL_QDRANT_ENABLED")
	setString(&c.Qdrant.BaseURL, "RETRIEVAL_QDRANT_URL")
	setString(&c.Qdrant.APIKey, "RETRIEVAL_QDRANT_API_KEY")
	setString(&c.Qdrant.Collection, "RETRIEVAL_QDRANT_COLLECTION")
	setInt(&c.Qdrant.Dimension, "RETRIEVAL_QDRANT_DIMENSION")
	setDuration(&c.Qdrant.Timeout, "RETRIEVAL_QDRANT_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
