package retrieval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResult(id, text string, origin Origin) SearchResult {
	return SearchResult{
		ChunkID:     id,
		Text:        text,
		SourceTitle: "Source of " + id,
		Score:       0.5,
		Origin:      origin,
	}
}

func TestFuseRanked_Disjoint(t *testing.T) {
	graph := []SearchResult{
		makeResult("g1", "graph one", OriginGraph),
		makeResult("g2", "graph two", OriginGraph),
		makeResult("g3", "graph three", OriginGraph),
	}
	vector := []SearchResult{
		makeResult("v1", "vector one", OriginVector),
		makeResult("v2", "vector two", OriginVector),
		makeResult("v3", "vector three", OriginVector),
	}

	fused := FuseRanked(graph, vector, FusionWeights{Graph: 0.6, Vector: 0.4}, 60, 10)

	require.Len(t, fused, 6)
	for i, r := range fused {
		assert.Equal(t, OriginFused, r.Origin)
		assert.Greater(t, r.FusionScore, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, fused[i-1].FusionScore, r.FusionScore)
		}
	}

	// With graph weighted 0.6 over vector's 0.4, every graph contribution
	// (0.6/63 at worst) outscores every vector contribution (0.4/61 at best).
	order := make([]string, len(fused))
	for i, r := range fused {
		order[i] = r.ChunkID
	}
	assert.Equal(t, []string{"g1", "g2", "g3", "v1", "v2", "v3"}, order)
	assert.InDelta(t, 0.6/61.0, fused[0].FusionScore, 1e-12)
	assert.InDelta(t, 0.4/61.0, fused[3].FusionScore, 1e-12)
}

func TestFuseRanked_Deterministic(t *testing.T) {
	graph := []SearchResult{
		makeResult("a", "alpha", OriginGraph),
		makeResult("b", "beta", OriginGraph),
	}
	vector := []SearchResult{
		makeResult("b", "beta", OriginVector),
		makeResult("c", "gamma", OriginVector),
	}
	weights := DefaultFusionWeights()

	first := FuseRanked(graph, vector, weights, 60, 10)
	for i := 0; i < 50; i++ {
		again := FuseRanked(graph, vector, weights, 60, 10)
		require.Equal(t, first, again, "fusion must be deterministic")
	}
}

func TestFuseRanked_SharedItemsAccumulate(t *testing.T) {
	graph := []SearchResult{
		makeResult("both", "shared text", OriginGraph),
		makeResult("g2", "graph only", OriginGraph),
	}
	vector := []SearchResult{
		makeResult("v1", "vector only", OriginVector),
		makeResult("both", "shared text", OriginVector),
	}

	fused := FuseRanked(graph, vector, FusionWeights{Graph: 0.6, Vector: 0.4}, 60, 10)

	require.Len(t, fused, 3)
	assert.Equal(t, "both", fused[0].ChunkID)
	assert.InDelta(t, 0.6/61.0+0.4/62.0, fused[0].FusionScore, 1e-12)
}

func TestFuseRanked_Monotonicity(t *testing.T) {
	// An item ranked higher in either list never scores below an otherwise
	// identical item ranked lower in both lists.
	graph := make([]SearchResult, 10)
	vector := make([]SearchResult, 10)
	for i := range graph {
		graph[i] = makeResult(fmt.Sprintf("item-%02d", i), fmt.Sprintf("text %d", i), OriginGraph)
		vector[i] = makeResult(fmt.Sprintf("item-%02d", i), fmt.Sprintf("text %d", i), OriginVector)
	}

	fused := FuseRanked(graph, vector, DefaultFusionWeights(), 60, 10)

	require.Len(t, fused, 10)
	for i := range fused {
		assert.Equal(t, fmt.Sprintf("item-%02d", i), fused[i].ChunkID)
		if i > 0 {
			assert.Greater(t, fused[i-1].FusionScore, fused[i].FusionScore)
		}
	}
}

func TestFuseRanked_TruncatesToK(t *testing.T) {
	graph := make([]SearchResult, 8)
	for i := range graph {
		graph[i] = makeResult(fmt.Sprintf("g%d", i), fmt.Sprintf("graph %d", i), OriginGraph)
	}

	fused := FuseRanked(graph, nil, DefaultFusionWeights(), 60, 3)

	assert.Len(t, fused, 3)
}

func TestFuseRanked_TextFallbackIdentity(t *testing.T) {
	// Results without a chunk id dedupe on a hash of the leading text prefix.
	graph := []SearchResult{makeResult("", "identical content", OriginGraph)}
	vector := []SearchResult{makeResult("", "identical content", OriginVector)}

	fused := FuseRanked(graph, vector, FusionWeights{Graph: 0.6, Vector: 0.4}, 60, 10)

	require.Len(t, fused, 1)
	assert.InDelta(t, 0.6/61.0+0.4/61.0, fused[0].FusionScore, 1e-12)
}

func TestFuseRanked_DistinctIDsSharedPrefixDoNotMerge(t *testing.T) {
	// Two different chunks that happen to share a long text prefix must stay
	// separate as long as their ids differ.
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	graph := []SearchResult{makeResult("chunk-1", string(long), OriginGraph)}
	vector := []SearchResult{makeResult("chunk-2", string(long), OriginVector)}

	fused := FuseRanked(graph, vector, DefaultFusionWeights(), 60, 10)

	assert.Len(t, fused, 2)
}

func TestFuseRanked_ZeroConstantUsesDefault(t *testing.T) {
	graph := []SearchResult{makeResult("a", "alpha", OriginGraph)}

	fused := FuseRanked(graph, nil, FusionWeights{Graph: 1.0}, 0, 10)

	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61.0, fused[0].FusionScore, 1e-12)
}

func TestFuseRanked_EmptyInputs(t *testing.T) {
	fused := FuseRanked(nil, nil, DefaultFusionWeights(), 60, 5)
	assert.Empty(t, fused)
}
