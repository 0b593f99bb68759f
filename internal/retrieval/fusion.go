package retrieval

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// DefaultRRFConstant is the standard reciprocal-rank-fusion constant. Large
// enough that rank position dominates over list length.
const DefaultRRFConstant = 60

// dedupPrefixLen bounds the text prefix hashed when a result carries no
// stable chunk id.
const dedupPrefixLen = 100

// FusionWeights scales each backend's rank contribution before summing.
type FusionWeights struct {
	Graph  float64 `json:"graph" yaml:"graph"`
	Vector float64 `json:"vector" yaml:"vector"`
}

// DefaultFusionWeights biases toward relationship context.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Graph: 0.6, Vector: 0.4}
}

// FuseRanked combines two ranked lists with weighted reciprocal rank fusion
// and returns the top k. Each item at zero-based rank i contributes
// weight * 1/(c + i + 1) to its accumulated score. Items appearing in both
// lists are merged: the first encounter keeps the result's properties and
// the contributions sum. Identity is the chunk id when present, otherwise a
// hash of the leading text prefix. The function is pure and deterministic:
// equal inputs always yield the same ordering and scores.
func FuseRanked(graphResults, vectorResults []SearchResult, weights FusionWeights, c, k int) []SearchResult {
	if c <= 0 {
		c = DefaultRRFConstant
	}

	scores := make(map[string]float64)
	first := make(map[string]SearchResult)

	accumulate := func(results []SearchResult, weight float64) {
		for i, r := range results {
			key := fuseKey(r)
			scores[key] += weight * (1.0 / float64(c+i+1))
			if _, seen := first[key]; !seen {
				first[key] = r
			}
		}
	}

	accumulate(graphResults, weights.Graph)
	accumulate(vectorResults, weights.Vector)

	fused := make([]SearchResult, 0, len(scores))
	for key, score := range scores {
		r := first[key]
		r.Origin = OriginFused
		r.FusionScore = score
		fused = append(fused, r)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusionScore != fused[j].FusionScore {
			return fused[i].FusionScore > fused[j].FusionScore
		}
		// Tie-break on identity so equal inputs always produce one ordering.
		return fuseKey(fused[i]) < fuseKey(fused[j])
	})

	if k > 0 && len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

// fuseKey returns the cross-list identity of a result. Backends assign their
// own ids, so the chunk id is preferred; results without one fall back to a
// content hash of the leading prefix.
func fuseKey(r SearchResult) string {
	if r.ChunkID != "" {
		return r.ChunkID
	}
	prefix := r.Text
	if len(prefix) > dedupPrefixLen {
		prefix = prefix[:dedupPrefixLen]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(prefix))
	return fmt.Sprintf("text:%x", h.Sum64())
}
