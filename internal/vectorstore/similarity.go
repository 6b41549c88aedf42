package vectorstore

import (
	"math"
	"sort"
)

// overFetchFactor widens the candidate pool before threshold filtering so a
// tight threshold does not starve the result set of its best matches.
const overFetchFactor = 3

// euclideanDistance returns the L2 distance between two vectors. Vectors of
// different lengths compare over the shorter prefix.
func euclideanDistance(a, b []float32) float64 {
	n := min(len(a), len(b))

	var sum float64

	for i := range n {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}

// similarityFromDistance converts an L2 distance between unit vectors into a
// similarity in [0, 1]. For unit vectors the distance is at most 2 and
// s = 1 - d^2/2 recovers the cosine similarity itself, clamped at 0; larger
// distances mean the inputs were not normalized, so fall back to a linear
// decay rather than going negative.
func similarityFromDistance(distance float64) float64 {
	var similarity float64

	if distance <= 2 {
		similarity = 1 - distance*distance/2
	} else {
		similarity = 1 - distance/4
	}

	return math.Max(0, math.Min(1, similarity))
}

// scoredCandidate pairs a candidate with its similarity before ranking.
type scoredCandidate struct {
	candidate Candidate
	score     float64
}

// rankCandidates sorts by similarity, truncates to the over-fetched pool,
// applies the threshold, and returns the final top K. Pure so ranking law
// tests run without a database.
func rankCandidates(scored []scoredCandidate, topK int, threshold float64) []Candidate {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	pool := scored
	if limit := topK * overFetchFactor; limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	results := make([]Candidate, 0, min(topK, len(pool)))

	for _, sc := range pool {
		if sc.score < threshold {
			continue
		}

		candidate := sc.candidate
		candidate.Score = sc.score
		results = append(results, candidate)

		if len(results) >= topK {
			break
		}
	}

	return results
}
