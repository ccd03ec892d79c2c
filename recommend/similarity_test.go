package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1,
		},
		{
			name: "scaled vectors keep direction",
			a:    []float32{1, 1},
			b:    []float32{10, 10},
			want: 1,
		},
		{
			name: "mismatched lengths",
			a:    []float32{1, 2},
			b:    []float32{1, 2, 3},
			want: 0,
		},
		{
			name: "empty vectors",
			a:    nil,
			b:    nil,
			want: 0,
		},
		{
			name: "zero magnitude",
			a:    []float32{0, 0},
			b:    []float32{1, 1},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, 0.5, 0.1}
	b := []float32{0.9, 0.2, 0.4}
	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-6)
}

func TestRankBySimilarity(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := []Candidate{
		{PlaceID: 1, Vector: []float32{0.5, 0.5, 0}},
		{PlaceID: 2, Vector: []float32{1, 0, 0}},
		{PlaceID: 3, Vector: []float32{-1, 0, 0}},
		{PlaceID: 4, Vector: []float32{0, 0, 0}},
		{PlaceID: 5, Vector: []float32{1, 0}},
	}

	ranked := RankBySimilarity(query, candidates)
	require.Len(t, ranked, 2)

	// Exact match first; anti-correlated, zero and mismatched-length
	// candidates are dropped.
	assert.Equal(t, int32(2), ranked[0].PlaceID)
	assert.InDelta(t, 1, ranked[0].Score, 1e-6)
	assert.Equal(t, int32(1), ranked[1].PlaceID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRankBySimilarityEmptyQuery(t *testing.T) {
	candidates := []Candidate{{PlaceID: 1, Vector: []float32{1, 0}}}
	assert.Nil(t, RankBySimilarity(nil, candidates))
	assert.Nil(t, RankBySimilarity([]float32{0, 0}, candidates))
}

func TestRankBySimilarityStableTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{PlaceID: 7, Vector: []float32{2, 0}},
		{PlaceID: 3, Vector: []float32{5, 0}},
		{PlaceID: 9, Vector: []float32{1, 0}},
	}

	ranked := RankBySimilarity(query, candidates)
	require.Len(t, ranked, 3)

	// All scores tie at 1; input order is preserved.
	assert.Equal(t, int32(7), ranked[0].PlaceID)
	assert.Equal(t, int32(3), ranked[1].PlaceID)
	assert.Equal(t, int32(9), ranked[2].PlaceID)
}

func TestRankBySimilarityDeterministic(t *testing.T) {
	query := []float32{0.2, 0.8, 0.1}
	candidates := []Candidate{
		{PlaceID: 1, Vector: []float32{0.1, 0.9, 0.2}},
		{PlaceID: 2, Vector: []float32{0.7, 0.1, 0.3}},
		{PlaceID: 3, Vector: []float32{0.4, 0.4, 0.4}},
	}

	first := RankBySimilarity(query, candidates)
	second := RankBySimilarity(query, candidates)
	assert.Equal(t, first, second)
}
