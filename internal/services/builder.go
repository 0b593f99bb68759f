// Package services wires configuration into a ready retrieval engine.
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"digital.vasic.retrieval/internal/config"
	"digital.vasic.retrieval/internal/retrieval"
	"digital.vasic.retrieval/internal/store/neo4j"
	"digital.vasic.retrieval/internal/store/qdrant"
	"digital.vasic.retrieval/internal/store/weaviate"
)

// CloseFunc releases the backend connections behind a built engine.
type CloseFunc func(ctx context.Context) error

// BuildEngine constructs the adapters enabled in cfg and the engine over
// them. The Neo4j connection is verified eagerly; the HTTP stores connect
// lazily. The returned CloseFunc must be called on shutdown.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*retrieval.Engine, CloseFunc, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("services: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	var graph retrieval.StoreAdapter
	var graphStore *neo4j.Store
	if cfg.Neo4j.Enabled {
		store, err := neo4j.New(ctx, &neo4j.Config{
			URI:         cfg.Neo4j.URI,
			Username:    cfg.Neo4j.Username,
			Password:    cfg.Neo4j.Password,
			Database:    cfg.Neo4j.Database,
			VectorIndex: cfg.Neo4j.VectorIndex,
			Dimension:   cfg.Neo4j.Dimension,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("services: graph store: %w", err)
		}
		graph = store
		graphStore = store
	}

	closeFunc := func(ctx context.Context) error {
		if graphStore != nil {
			return graphStore.Close(ctx)
		}
		return nil
	}

	var vector retrieval.StoreAdapter
	switch {
	case cfg.Weaviate.Enabled:
		store, err := weaviate.New(&weaviate.Config{
			BaseURL:   cfg.Weaviate.BaseURL,
			APIKey:    cfg.Weaviate.APIKey,
			ClassName: cfg.Weaviate.ClassName,
			Dimension: cfg.Weaviate.Dimension,
			Timeout:   cfg.Weaviate.Timeout,
		}, logger)
		if err != nil {
			_ = closeFunc(ctx)
			return nil, nil, fmt.Errorf("services: vector store: %w", err)
		}
		vector = store
	case cfg.Qdrant.Enabled:
		store, err := qdrant.New(&qdrant.Config{
			BaseURL:    cfg.Qdrant.BaseURL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Dimension:  cfg.Qdrant.Dimension,
			Timeout:    cfg.Qdrant.Timeout,
		}, logger)
		if err != nil {
			_ = closeFunc(ctx)
			return nil, nil, fmt.Errorf("services: vector store: %w", err)
		}
		vector = store
	}

	engine, err := retrieval.NewEngine(graph, vector, &retrieval.EngineConfig{
		DefaultStrategy: retrieval.Strategy(cfg.Engine.DefaultStrategy),
		Weights: retrieval.FusionWeights{
			Graph:  cfg.Engine.GraphWeight,
			Vector: cfg.Engine.VectorWeight,
		},
		RRFConstant:           cfg.Engine.RRFConstant,
		CallTimeout:           cfg.Engine.CallTimeout,
		AdaptiveWordThreshold: cfg.Engine.AdaptiveWordThreshold,
	}, logger)
	if err != nil {
		_ = closeFunc(ctx)
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{
		"graph":    cfg.Neo4j.Enabled,
		"weaviate": cfg.Weaviate.Enabled,
		"qdrant":   cfg.Qdrant.Enabled,
		"strategy": cfg.Engine.DefaultStrategy,
	}).Info("Retrieval engine ready")
	return engine, closeFunc, nil
}
