package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodplace/moodplace/store"
)

func validRequest() *Request {
	return &Request{
		Name:        "국수집",
		Address:     "서울 마포구 연남동",
		EmotionTags: []string{"cozy"},
	}
}

func TestRecommendValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{
			name:   "missing name",
			mutate: func(r *Request) { r.Name = " " },
			field:  "name",
		},
		{
			name:   "missing address",
			mutate: func(r *Request) { r.Address = "" },
			field:  "address",
		},
		{
			name:   "missing emotion tags",
			mutate: func(r *Request) { r.EmotionTags = nil },
			field:  "emotion_tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			_, err := env.ranker.Recommend(ctx, req)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRecommendExternalPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.searcher.stubs = []CandidateStub{
		{ID: "ext-1", Name: "First", Address: "서울 연남동 1"},
		{ID: "ext-2", Name: "Second", Address: "서울 연남동 2"},
		{ID: "ext-3", Name: "Third", Address: "서울 연남동 3"},
		{ID: "ext-4", Name: "Fourth", Address: "서울 연남동 4"},
	}

	results, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	require.Len(t, results, 4)

	// The enrichment budget covers the top three; the rest are basic.
	for i := 0; i < 3; i++ {
		assert.Equal(t, SourceExternalDetailed, results[i].Source)
	}
	assert.Equal(t, SourceExternalBasic, results[3].Source)
	assert.Equal(t, []string{"tasty", "friendly"}, results[3].Place.Emotions)
	assert.Equal(t, "Fourth is located in 연남동", results[3].Summary)

	// Every candidate was persisted.
	stored, err := env.store.ListPlaces(ctx, &store.FindPlace{})
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// Enriched candidates got an embedding.
	count, err := env.store.CountPlaceEmbeddings(ctx, "fake-embedding")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRecommendExternalProviderFailure(t *testing.T) {
	env := newTestEnv()
	env.searcher.err = errors.New("upstream down")

	_, err := env.ranker.Recommend(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestRecommendInternalPathByEmbeddingCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p := env.seedPlace(&store.Place{Name: fmt.Sprintf("Place %d", i), Emotions: []string{"cozy"}})
		env.seedEmbedding(p.ID, []float32{1, 0, 0})
	}

	results, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	require.Len(t, results, 10)

	for _, rec := range results {
		assert.Equal(t, SourceHybrid, rec.Source)
	}
	assert.Equal(t, 0, env.searcher.callCount())
}

func TestRecommendInternalPathBySavedCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	fresh := env.seedPlace(&store.Place{Name: "Fresh", Emotions: []string{"cozy"}})
	env.seedEmbedding(fresh.ID, []float32{1, 0, 0})

	userID := int32(42)
	for i := 0; i < 3; i++ {
		saved := env.seedPlace(&store.Place{Name: fmt.Sprintf("Saved %d", i), Emotions: []string{"cozy"}})
		env.seedEmbedding(saved.ID, []float32{1, 0, 0})
		env.seedSaved(userID, saved.ID, store.RecChannelHybrid)
	}

	req := validRequest()
	req.UserID = &userID
	req.TopK = 4

	results, err := env.ranker.Recommend(ctx, req)
	require.NoError(t, err)

	// Hybrid-channel saved places are excluded from repeat recommendations.
	require.Len(t, results, 1)
	assert.Equal(t, fresh.ID, results[0].Place.ID)
	assert.Equal(t, SourceHybrid, results[0].Source)
	assert.Equal(t, 0, env.searcher.callCount())
}

func TestRecommendInternalPathBySimilarCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p := env.seedPlace(&store.Place{
			Name:     fmt.Sprintf("연남 국수집 %d", i),
			Address:  "서울 마포구 연남동",
			Emotions: []string{"cozy"},
		})
		env.seedEmbedding(p.ID, []float32{1, 0, 0})
	}

	req := validRequest()
	req.TopK = 2

	results, err := env.ranker.Recommend(ctx, req)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, env.searcher.callCount())
}

func TestRecommendDeduplicatesByExternalID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.searcher.stubs = []CandidateStub{
		{ID: "ext-1", Name: "Dup", Address: "서울 연남동"},
		{ID: "ext-1", Name: "Dup", Address: "서울 연남동"},
	}

	results, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRecommendResultCache(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.searcher.stubs = []CandidateStub{
		{ID: "ext-1", Name: "Only", Address: "서울 연남동"},
	}

	first, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	second, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.searcher.callCount())
}

func TestRecommendCacheKeyNormalizesTags(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.searcher.stubs = []CandidateStub{
		{ID: "ext-1", Name: "Only", Address: "서울 연남동"},
	}

	req := validRequest()
	req.EmotionTags = []string{"Cozy", "quiet"}
	_, err := env.ranker.Recommend(ctx, req)
	require.NoError(t, err)

	req2 := validRequest()
	req2.EmotionTags = []string{"quiet", "cozy"}
	_, err = env.ranker.Recommend(ctx, req2)
	require.NoError(t, err)

	assert.Equal(t, 1, env.searcher.callCount())
}

func TestRecommendEmotionExpansion(t *testing.T) {
	env := newTestEnv(func(deps *Deps, _ *Options) {
		deps.Text = &fakeTextService{expanded: []string{"cozy", "quiet"}}
	})
	ctx := context.Background()

	// Ten embedded places force the internal path; they only match the
	// expanded tag, not the requested one.
	for i := 0; i < 10; i++ {
		p := env.seedPlace(&store.Place{Name: fmt.Sprintf("Quiet %d", i), Emotions: []string{"quiet"}})
		env.seedEmbedding(p.ID, []float32{1, 0, 0})
	}

	results, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestRecommendEmotionExpansionFailureDegrades(t *testing.T) {
	env := newTestEnv(func(deps *Deps, _ *Options) {
		deps.Text = &fakeTextService{expandErr: errors.New("chat down")}
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p := env.seedPlace(&store.Place{Name: fmt.Sprintf("Quiet %d", i), Emotions: []string{"quiet"}})
		env.seedEmbedding(p.ID, []float32{1, 0, 0})
	}

	// Expansion failed, so only the raw tag filters; nothing matches and
	// the request still succeeds.
	results, err := env.ranker.Recommend(ctx, validRequest())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecommendKeywordSupplement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Stored place matches the request by substring but the store is too
	// sparse for the internal path.
	env.seedPlace(&store.Place{Name: "연남동 국수집", Address: "서울 마포구 연남동 1"})

	env.searcher.stubs = []CandidateStub{
		{ID: "ext-1", Name: "External", Address: "부산 해운대"},
	}

	req := validRequest()
	req.TopK = 5

	results, err := env.ranker.Recommend(ctx, req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, SourceExternalDetailed, results[0].Source)
	assert.Equal(t, SourceHybrid, results[1].Source)
}
