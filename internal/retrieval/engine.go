package retrieval

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoAdapters is returned at construction when neither a graph nor a
	// vector adapter is configured. The engine has no useful behavior then.
	ErrNoAdapters = errors.New("retrieval: no store adapters configured")

	// ErrChunkEmbeddingMismatch rejects an upsert whose chunks and embeddings
	// are not paired by index.
	ErrChunkEmbeddingMismatch = errors.New("retrieval: chunks and embeddings must have equal length")
)

// EngineConfig holds construction-time settings for the Engine.
type EngineConfig struct {
	// DefaultStrategy applies when a call carries no strategy override.
	DefaultStrategy Strategy `json:"default_strategy"`
	// Weights scale each backend's contribution during fusion.
	Weights FusionWeights `json:"weights"`
	// RRFConstant is the reciprocal-rank-fusion constant.
	RRFConstant int `json:"rrf_constant"`
	// CallTimeout bounds every backend round-trip.
	CallTimeout time.Duration `json:"call_timeout"`
	// AdaptiveWordThreshold is the free-text word count above which the
	// adaptive strategy routes to SemanticFirst. A coarse proxy for "longer
	// queries benefit more from vector recall"; there is no learned model
	// behind it.
	AdaptiveWordThreshold int `json:"adaptive_word_threshold"`
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		DefaultStrategy:       StrategyParallelFusion,
		Weights:               DefaultFusionWeights(),
		RRFConstant:           DefaultRRFConstant,
		CallTimeout:           10 * time.Second,
		AdaptiveWordThreshold: 5,
	}
}

// Engine orchestrates retrieval across a graph store and a vector store.
// It holds no per-query state and is safe for concurrent use; adapters are
// shared, long-lived handles. Either adapter may be nil, but not both.
type Engine struct {
	graph  StoreAdapter
	vector StoreAdapter
	config *EngineConfig
	logger *logrus.Logger
}

// NewEngine creates a retrieval engine over the given adapters. It fails
// fast when zero adapters are configured.
func NewEngine(graph, vector StoreAdapter, config *EngineConfig, logger *logrus.Logger) (*Engine, error) {
	if graph == nil && vector == nil {
		return nil, ErrNoAdapters
	}
	if config == nil {
		config = DefaultEngineConfig()
	}
	if !ValidStrategy(config.DefaultStrategy) {
		config.DefaultStrategy = StrategyParallelFusion
	}
	if config.RRFConstant <= 0 {
		config.RRFConstant = DefaultRRFConstant
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 10 * time.Second
	}
	if config.AdaptiveWordThreshold <= 0 {
		config.AdaptiveWordThreshold = 5
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		graph:  graph,
		vector: vector,
		config: config,
		logger: logger,
	}, nil
}

// Search returns up to k ranked results for the tenant's query vector.
// Backend degradation never surfaces as an error: a failing or missing
// backend contributes an empty list and the call degrades per the selected
// strategy's fallback rules.
func (e *Engine) Search(ctx context.Context, tenantID string, queryVector []float32, k int, opts ...SearchOption) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}

	options := searchOptions{strategy: e.config.DefaultStrategy}
	for _, opt := range opts {
		opt(&options)
	}
	if !ValidStrategy(options.strategy) {
		options.strategy = e.config.DefaultStrategy
	}

	strategy := options.strategy
	if strategy == StrategyAdaptive {
		strategy = e.resolveAdaptive(options.queryText)
	}

	weights := e.config.Weights
	if options.weights != nil {
		weights = *options.weights
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	searchesTotal.WithLabelValues(string(strategy)).Inc()

	var results []SearchResult
	switch strategy {
	case StrategyGraphOnly:
		results = e.searchSingle(ctx, tenantID, queryVector, k, e.graph, e.vector, OriginGraph, OriginVectorFallback)
	case StrategyVectorOnly:
		results = e.searchSingle(ctx, tenantID, queryVector, k, e.vector, e.graph, OriginVector, OriginGraphFallback)
	case StrategySemanticFirst:
		results = e.searchSupplemented(ctx, tenantID, queryVector, k, supplementPlan{
			primary: e.vector, secondary: e.graph,
			origin: OriginVector, secondaryOrigin: OriginGraph,
			primaryFallback: OriginVectorFallback, secondaryFallback: OriginGraphFallback,
		})
	case StrategyGraphFirst:
		results = e.searchSupplemented(ctx, tenantID, queryVector, k, supplementPlan{
			primary: e.graph, secondary: e.vector,
			origin: OriginGraph, secondaryOrigin: OriginVector,
			primaryFallback: OriginGraphFallback, secondaryFallback: OriginVectorFallback,
		})
	default:
		results = e.searchParallelFusion(ctx, tenantID, queryVector, k, weights)
	}

	e.logger.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"strategy": strategy,
		"k":        k,
		"results":  len(results),
	}).Debug("Search completed")

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// HybridSearch blends keyword and vector relevance on a backend with native
// hybrid scoring. When the vector adapter lacks the capability or fails, the
// call degrades to a plain Search under the default strategy.
func (e *Engine) HybridSearch(ctx context.Context, tenantID, queryText string, queryVector []float32, k int, alpha float32) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}

	hybrid, ok := e.vector.(HybridSearcher)
	if !ok {
		e.logger.WithField("tenant", tenantID).Debug("Vector adapter has no native hybrid search, degrading to Search")
		return e.Search(ctx, tenantID, queryVector, k, WithQueryText(queryText))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	results, err := hybrid.HybridSearch(callCtx, tenantID, queryText, queryVector, k, alpha)
	if err != nil {
		backendErrors.WithLabelValues(e.vector.Name(), "hybrid_search").Inc()
		e.logger.WithError(err).WithField("backend", e.vector.Name()).Warn("Hybrid search failed, degrading to Search")
		return e.Search(ctx, tenantID, queryVector, k, WithQueryText(queryText))
	}

	tagged := tagOrigin(results, OriginVector)
	if len(tagged) > k {
		tagged = tagged[:k]
	}
	return tagged, nil
}

// UpsertChunks writes one Source and its chunks to every configured adapter,
// graph first, with no cross-backend transaction. A failure in the second
// write leaves the backends inconsistent; it is logged and counted, not
// raised. The returned id is the first adapter's generated source id, or
// empty when every write failed.
func (e *Engine) UpsertChunks(ctx context.Context, tenantID, title string, chunks []string, embeddings [][]float32) (string, error) {
	if len(chunks) != len(embeddings) {
		return "", ErrChunkEmbeddingMismatch
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	var sourceID string
	var failedBackends []string
	for _, adapter := range []StoreAdapter{e.graph, e.vector} {
		if adapter == nil {
			continue
		}
		id, err := adapter.UpsertChunks(ctx, tenantID, title, chunks, embeddings)
		if err != nil {
			failedBackends = append(failedBackends, adapter.Name())
			backendErrors.WithLabelValues(adapter.Name(), "upsert_chunks").Inc()
			e.logger.WithError(err).WithFields(logrus.Fields{
				"backend": adapter.Name(),
				"tenant":  tenantID,
				"title":   title,
			}).Warn("Chunk upsert failed")
			continue
		}
		if sourceID == "" {
			sourceID = id
		}
	}

	if len(failedBackends) > 0 && sourceID != "" {
		// One side took the write and the other did not.
		for _, name := range failedBackends {
			upsertPartialFailures.WithLabelValues(name).Inc()
		}
		e.logger.WithFields(logrus.Fields{
			"tenant": tenantID,
			"title":  title,
		}).Warn("Upsert left backends inconsistent")
	}

	return sourceID, nil
}

// GetRecentSources lists the tenant's sources, newest first. The graph store
// is authoritative when configured; otherwise the vector store serves the
// listing. Backend failure yields an empty list.
func (e *Engine) GetRecentSources(ctx context.Context, tenantID string, limit int) ([]SourceSummary, error) {
	adapter := e.graph
	if adapter == nil {
		adapter = e.vector
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	defer cancel()

	sources, err := adapter.GetRecentSources(ctx, tenantID, limit)
	if err != nil {
		backendErrors.WithLabelValues(adapter.Name(), "get_recent_sources").Inc()
		e.logger.WithError(err).WithField("backend", adapter.Name()).Warn("Recent sources lookup failed")
		return []SourceSummary{}, nil
	}
	if sources == nil {
		sources = []SourceSummary{}
	}
	return sources, nil
}

// resolveAdaptive picks the concrete strategy for an adaptive call.
func (e *Engine) resolveAdaptive(queryText string) Strategy {
	if len(strings.Fields(queryText)) > e.config.AdaptiveWordThreshold {
		return StrategySemanticFirst
	}
	return StrategyParallelFusion
}

// query runs one adapter search and applies the swallow-and-log failure
// policy: backend errors become an empty list plus a warning and a metric.
// The adapter's ordering is preserved.
func (e *Engine) query(ctx context.Context, adapter StoreAdapter, tenantID string, queryVector []float32, k int, origin Origin) []SearchResult {
	results, err := adapter.Search(ctx, tenantID, queryVector, k)
	if err != nil {
		backendErrors.WithLabelValues(adapter.Name(), "search").Inc()
		e.logger.WithError(err).WithFields(logrus.Fields{
			"backend": adapter.Name(),
			"tenant":  tenantID,
		}).Warn("Backend search failed")
		return []SearchResult{}
	}
	return tagOrigin(results, origin)
}

// searchSingle serves single-backend strategies: the primary adapter when
// present, otherwise the other adapter tagged as fallback, otherwise empty.
func (e *Engine) searchSingle(ctx context.Context, tenantID string, queryVector []float32, k int, primary, fallback StoreAdapter, origin, fallbackOrigin Origin) []SearchResult {
	if primary != nil {
		return e.query(ctx, primary, tenantID, queryVector, k, origin)
	}
	if fallback != nil {
		return e.query(ctx, fallback, tenantID, queryVector, k, fallbackOrigin)
	}
	return []SearchResult{}
}

// supplementPlan names the adapters and origin tags of one sequential
// first/supplement strategy.
type supplementPlan struct {
	primary, secondary                 StoreAdapter
	origin, secondaryOrigin            Origin
	primaryFallback, secondaryFallback Origin
}

// searchSupplemented serves the sequential first/supplement strategies:
// query the primary for k, then fill any shortfall from the secondary. With
// only one adapter configured the results carry that adapter's fallback tag
// to signal the degraded mode.
func (e *Engine) searchSupplemented(ctx context.Context, tenantID string, queryVector []float32, k int, plan supplementPlan) []SearchResult {
	if plan.primary == nil {
		if plan.secondary != nil {
			return e.query(ctx, plan.secondary, tenantID, queryVector, k, plan.secondaryFallback)
		}
		return []SearchResult{}
	}
	if plan.secondary == nil {
		return e.query(ctx, plan.primary, tenantID, queryVector, k, plan.primaryFallback)
	}

	results := e.query(ctx, plan.primary, tenantID, queryVector, k, plan.origin)
	if len(results) < k {
		shortfall := k - len(results)
		results = append(results, e.query(ctx, plan.secondary, tenantID, queryVector, shortfall, plan.secondaryOrigin)...)
	}
	return results
}

// searchParallelFusion queries both adapters concurrently for 2k candidates
// each and fuses the lists. The over-fetch widens the candidate pool for the
// fusion step. With only one adapter configured the call degrades to that
// adapter tagged as fallback.
func (e *Engine) searchParallelFusion(ctx context.Context, tenantID string, queryVector []float32, k int, weights FusionWeights) []SearchResult {
	if e.graph == nil || e.vector == nil {
		if e.graph != nil {
			return e.query(ctx, e.graph, tenantID, queryVector, k, OriginGraphFallback)
		}
		if e.vector != nil {
			return e.query(ctx, e.vector, tenantID, queryVector, k, OriginVectorFallback)
		}
		return []SearchResult{}
	}

	var graphResults, vectorResults []SearchResult
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graphResults = e.query(groupCtx, e.graph, tenantID, queryVector, 2*k, OriginGraph)
		return nil
	})
	g.Go(func() error {
		vectorResults = e.query(groupCtx, e.vector, tenantID, queryVector, 2*k, OriginVector)
		return nil
	})
	// query never propagates errors; the group is a wait-for-both barrier
	// bounded by the call timeout on ctx.
	_ = g.Wait()

	return FuseRanked(graphResults, vectorResults, weights, e.config.RRFConstant, k)
}

func tagOrigin(results []SearchResult, origin Origin) []SearchResult {
	if results == nil {
		return []SearchResult{}
	}
	tagged := make([]SearchResult, len(results))
	for i, r := range results {
		r.Origin = origin
		tagged[i] = r
	}
	return tagged
}
