package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityFromDistance(t *testing.T) {
	// Identical unit vectors: distance 0, similarity 1.
	assert.InDelta(t, 1.0, similarityFromDistance(0), 1e-9)

	// Antipodal unit vectors: distance 2, similarity 0.
	assert.InDelta(t, 0.0, similarityFromDistance(2), 1e-9)

	// Orthogonal unit vectors: distance sqrt(2), similarity 0.5.
	assert.InDelta(t, 0.5, similarityFromDistance(math.Sqrt2), 1e-9)

	// Beyond the unit-vector range the linear fallback applies.
	assert.InDelta(t, 0.25, similarityFromDistance(3), 1e-9)
	assert.Equal(t, 0.0, similarityFromDistance(10))
}

func TestSimilarityMonotonicDecreasing(t *testing.T) {
	prev := similarityFromDistance(0)

	for d := 0.1; d <= 5.0; d += 0.1 {
		cur := similarityFromDistance(d)
		require.LessOrEqual(t, cur, prev, "similarity must not increase with distance (d=%v)", d)
		prev = cur
	}
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 0.0, euclideanDistance([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 2.0, euclideanDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, math.Sqrt2, euclideanDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func makeScored(scores ...float64) []scoredCandidate {
	scored := make([]scoredCandidate, len(scores))
	for i, s := range scores {
		scored[i] = scoredCandidate{
			candidate: Candidate{ID: string(rune('a' + i))},
			score:     s,
		}
	}

	return scored
}

func TestRankCandidatesOrdersByScore(t *testing.T) {
	results := rankCandidates(makeScored(0.2, 0.9, 0.5), 10, 0)

	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "a", results[2].ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
}

func TestRankCandidatesThreshold(t *testing.T) {
	results := rankCandidates(makeScored(0.2, 0.9, 0.5), 10, 0.5)

	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
}

func TestRankCandidatesTopK(t *testing.T) {
	results := rankCandidates(makeScored(0.9, 0.8, 0.7, 0.6), 2, 0)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRankCandidatesHighThresholdEmpty(t *testing.T) {
	assert.Empty(t, rankCandidates(makeScored(0.2, 0.3), 10, 0.99))
}

func TestRankCandidatesOverFetchPool(t *testing.T) {
	// With topK=1 the pool is capped at 3 candidates; a threshold-passing
	// score outside the pool is not considered.
	scored := makeScored(0.9, 0.8, 0.7, 0.6)
	results := rankCandidates(scored, 1, 0)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}
