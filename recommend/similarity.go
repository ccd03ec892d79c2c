package recommend

import (
	"math"
	"sort"
)

// Candidate pairs a place with its stored embedding vector.
type Candidate struct {
	PlaceID int32
	Vector  []float32
}

// Scored is a ranked similarity result.
type Scored struct {
	PlaceID int32
	Score   float32
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|).
//
// Mismatched lengths, empty vectors and zero-magnitude vectors all yield
// exactly 0 rather than an error, so one malformed embedding cannot abort a
// whole ranking pass.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// RankBySimilarity scores every candidate against the query vector in a
// single pass and returns them in descending score order. Only strictly
// positive scores are eligible; anti-correlated and degenerate matches are
// dropped. Ties keep first-seen input order so identical inputs always
// produce identical rankings.
func RankBySimilarity(query []float32, candidates []Candidate) []Scored {
	var queryNorm float32
	for _, v := range query {
		queryNorm += v * v
	}
	if len(query) == 0 || queryNorm == 0 {
		return nil
	}
	queryMag := float32(math.Sqrt(float64(queryNorm)))

	scored := make([]Scored, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Vector) != len(query) {
			continue
		}
		var dot, norm float32
		for i, v := range cand.Vector {
			dot += query[i] * v
			norm += v * v
		}
		if norm == 0 {
			continue
		}
		score := dot / (queryMag * float32(math.Sqrt(float64(norm))))
		if score > 0 {
			scored = append(scored, Scored{PlaceID: cand.PlaceID, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
