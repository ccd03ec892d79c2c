package recommend

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/moodplace/moodplace/ai/cache"
	"github.com/moodplace/moodplace/store"
)

// Metrics is the slice of the metrics exporter the ranker records to.
// Implemented by ai/metrics.Exporter.
type Metrics interface {
	CacheHit(tier string)
	CacheMiss(tier string)
	ProviderCall(provider string)
	ProviderError(provider string)
	PathSelected(path string)
	RankingObserved(seconds float64)
	ResultTruncated()
}

type nopMetrics struct{}

func (nopMetrics) CacheHit(string)         {}
func (nopMetrics) CacheMiss(string)        {}
func (nopMetrics) ProviderCall(string)     {}
func (nopMetrics) ProviderError(string)    {}
func (nopMetrics) PathSelected(string)     {}
func (nopMetrics) RankingObserved(float64) {}
func (nopMetrics) ResultTruncated()        {}

// Options are the ranker's tuning knobs. One configured ranker replaces the
// fast/ultra-fast/smart/optimized service variants of earlier designs; they
// differed only in these values.
type Options struct {
	// TopK is the default result count when a request leaves it unset.
	TopK int
	// MaxExternalEnrichment bounds how many external candidates receive
	// full detail/summary/tag enrichment per request. The remainder get
	// category-default tags and a templated summary.
	MaxExternalEnrichment int
	// Personalize enables user-context query rewriting and preference
	// weighting when a user is supplied.
	Personalize bool
	// CacheTTL bounds how long composed recommendation results live.
	CacheTTL time.Duration
	// EmbeddingTTL bounds the embedding cache. Embeddings for identical
	// text never change meaningfully, so this runs much longer.
	EmbeddingTTL time.Duration
	// ProfileTTL bounds expanded emotion sets and user contexts.
	ProfileTTL time.Duration
	// ExternalRate limits place-search provider calls per second.
	ExternalRate rate.Limit
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TopK:                  10,
		MaxExternalEnrichment: 3,
		Personalize:           true,
		CacheTTL:              30 * time.Minute,
		EmbeddingTTL:          24 * time.Hour,
		ProfileTTL:            time.Hour,
		ExternalRate:          rate.Limit(5),
	}
}

func (o *Options) normalize() {
	defaults := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = defaults.TopK
	}
	if o.MaxExternalEnrichment <= 0 {
		o.MaxExternalEnrichment = defaults.MaxExternalEnrichment
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaults.CacheTTL
	}
	if o.EmbeddingTTL <= 0 {
		o.EmbeddingTTL = defaults.EmbeddingTTL
	}
	if o.ProfileTTL <= 0 {
		o.ProfileTTL = defaults.ProfileTTL
	}
	if o.ExternalRate <= 0 {
		o.ExternalRate = defaults.ExternalRate
	}
}

// Ranker is the hybrid ranking core. It blends vector similarity over
// stored place embeddings with keyword and metadata filters, personalizes
// with user history, and falls back to the external place-search provider
// when internal data cannot satisfy a request.
type Ranker struct {
	store    *store.Store
	embedder Embedder
	text     TextService
	places   PlaceSearcher
	details  DetailFetcher
	limiter  *rate.Limiter
	metrics  Metrics
	logger   *slog.Logger
	opts     Options

	resultCache    *cache.LRUCache[string, []Recommendation]
	embeddingCache *cache.LRUCache[string, []float32]
	emotionCache   *cache.LRUCache[string, []string]
	contextCache   *cache.LRUCache[string, *UserContext]
}

// Deps bundles the ranker's injected collaborators. Store and Embedder are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Store    *store.Store
	Embedder Embedder
	Text     TextService
	Places   PlaceSearcher
	Details  DetailFetcher
	Metrics  Metrics
	Logger   *slog.Logger
}

// NewRanker creates a ranker with injected collaborators. No ambient global
// client exists; everything the ranker touches arrives here.
func NewRanker(deps Deps, opts Options) *Ranker {
	opts.normalize()

	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Ranker{
		store:          deps.Store,
		embedder:       deps.Embedder,
		text:           deps.Text,
		places:         deps.Places,
		details:        deps.Details,
		limiter:        rate.NewLimiter(opts.ExternalRate, 1),
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		opts:           opts,
		resultCache:    cache.NewLRUCache[string, []Recommendation](1024, opts.CacheTTL),
		embeddingCache: cache.NewLRUCache[string, []float32](4096, opts.EmbeddingTTL),
		emotionCache:   cache.NewLRUCache[string, []string](1024, opts.ProfileTTL),
		contextCache:   cache.NewLRUCache[string, *UserContext](1024, opts.ProfileTTL),
	}
}

// ScoredPlace is a ranked internal search hit.
type ScoredPlace struct {
	Place *store.Place
	Score float32
}

// HybridQuery is one internal hybrid search invocation.
type HybridQuery struct {
	Query           string
	UserID          *int32
	EmotionFilters  []string
	LocationFilters []string
	TopK            int
}

// HybridSearch runs the central ranking algorithm: embed the query, filter
// the candidate set, rank by cosine similarity, apply preference weighting,
// truncate to K.
//
// An embedding provider failure surfaces as a ProviderError so callers can
// distinguish it from a legitimately empty result. A candidate without an
// embedding is excluded, never fatal.
func (r *Ranker) HybridSearch(ctx context.Context, q *HybridQuery) ([]ScoredPlace, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = r.opts.TopK
	}

	queryText := q.Query
	var uc *UserContext
	if q.UserID != nil && r.opts.Personalize {
		var err error
		uc, err = r.BuildUserContext(ctx, *q.UserID)
		if err != nil {
			return nil, err
		}
		queryText = enhanceQuery(queryText, uc)
	}

	queryVector, err := r.embedCached(ctx, queryText)
	if err != nil {
		return nil, err
	}

	// Filters are OR within a field and ANDed across fields.
	places, err := r.store.ListPlaces(ctx, &store.FindPlace{
		EmotionNames:  q.EmotionFilters,
		LocationNames: q.LocationFilters,
	})
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}

	byID := make(map[int32]*store.Place, len(places))
	ids := make([]int32, 0, len(places))
	for _, place := range places {
		byID[place.ID] = place
		ids = append(ids, place.ID)
	}

	model := r.modelName()
	embeddings, err := r.store.ListPlaceEmbeddings(ctx, &store.FindPlaceEmbedding{
		PlaceIDs: ids,
		Model:    &model,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(embeddings))
	for _, embedding := range embeddings {
		candidates = append(candidates, Candidate{
			PlaceID: embedding.PlaceID,
			Vector:  embedding.Vector,
		})
	}

	ranked := RankBySimilarity(queryVector, candidates)

	results := make([]ScoredPlace, 0, len(ranked))
	for _, item := range ranked {
		if place, ok := byID[item.PlaceID]; ok {
			results = append(results, ScoredPlace{Place: place, Score: item.Score})
		}
	}

	if uc != nil {
		applyPreferenceWeights(results, uc)
	}

	if len(results) > topK {
		r.metrics.ResultTruncated()
		results = results[:topK]
	}
	return results, nil
}

// embedCached resolves a query text to a vector through the embedding
// cache. Identical text always maps to the same cache entry.
func (r *Ranker) embedCached(ctx context.Context, text string) ([]float32, error) {
	if r.embedder == nil {
		return nil, NewProviderError("embedding", errors.New("embedding service is not configured"))
	}

	key := embeddingFingerprint(r.embedder.Model(), text)
	if vec, ok := r.embeddingCache.Get(key); ok {
		r.metrics.CacheHit("embedding")
		return vec, nil
	}
	r.metrics.CacheMiss("embedding")

	r.metrics.ProviderCall("embedding")
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.metrics.ProviderError("embedding")
		return nil, NewProviderError("embedding", err)
	}

	r.embeddingCache.Set(key, vec, r.opts.EmbeddingTTL)
	return vec, nil
}

// UpsertPlaceEmbedding rebuilds the corpus for a place and stores a fresh
// embedding, overwriting any previous one for the model.
func (r *Ranker) UpsertPlaceEmbedding(ctx context.Context, place *store.Place) (*store.PlaceEmbedding, error) {
	summary := ""
	if latest, err := r.store.GetLatestSummary(ctx, place.ID); err == nil && latest != nil {
		summary = latest.Summary
	}

	corpus := BuildCorpus(place.Name, place.Address, place.Emotions, summary, place.Reviews)
	vector, err := r.embedCached(ctx, corpus)
	if err != nil {
		return nil, err
	}

	return r.store.UpsertPlaceEmbedding(ctx, &store.PlaceEmbedding{
		PlaceID:    place.ID,
		Vector:     vector,
		SourceText: corpus,
		Model:      r.modelName(),
	})
}

func (r *Ranker) modelName() string {
	if r.embedder == nil {
		return ""
	}
	return r.embedder.Model()
}

// SimilarPlaces recommends places similar to an existing one, seeding the
// query from its name and address. The place's own embedding is created on
// demand when missing.
func (r *Ranker) SimilarPlaces(ctx context.Context, placeID int32, userID *int32, topK int) ([]ScoredPlace, error) {
	place, err := r.store.GetPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, &NotFoundError{Resource: "place", ID: placeID}
	}

	model := r.modelName()
	embeddings, err := r.store.ListPlaceEmbeddings(ctx, &store.FindPlaceEmbedding{
		PlaceID: &place.ID,
		Model:   &model,
	})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		if _, err := r.UpsertPlaceEmbedding(ctx, place); err != nil {
			return nil, err
		}
	}

	if topK <= 0 {
		topK = 5
	}
	results, err := r.HybridSearch(ctx, &HybridQuery{
		Query:  "name: " + place.Name + " address: " + place.Address,
		UserID: userID,
		TopK:   topK + 1,
	})
	if err != nil {
		return nil, err
	}

	// The seed ranks itself first; drop it.
	filtered := results[:0]
	for _, item := range results {
		if item.Place.ID == placeID {
			continue
		}
		filtered = append(filtered, item)
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

// Trending ranks places by how often they were saved; the score is the save
// count normalized by 10. It is the fallback for users with no history.
func (r *Ranker) Trending(ctx context.Context, topK int) ([]ScoredPlace, error) {
	if topK <= 0 {
		topK = r.opts.TopK
	}

	counts, err := r.store.ListTrendingPlaces(ctx, topK)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredPlace, 0, len(counts))
	for _, item := range counts {
		place, err := r.store.GetPlace(ctx, item.PlaceID)
		if err != nil {
			return nil, err
		}
		if place == nil {
			continue
		}
		results = append(results, ScoredPlace{
			Place: place,
			Score: float32(item.Count) / 10.0,
		})
	}
	return results, nil
}

// PersonalizedFeed blends preferred-emotion and preferred-location searches
// for a user, deduplicated by place with the first occurrence keeping its
// rank. Users without history get the trending list.
func (r *Ranker) PersonalizedFeed(ctx context.Context, userID int32, topK int) ([]ScoredPlace, error) {
	if topK <= 0 {
		topK = 20
	}

	uc, err := r.BuildUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uc.Empty() {
		return r.Trending(ctx, topK)
	}

	var merged []ScoredPlace
	if len(uc.PreferredEmotions) > 0 {
		names := tagNames(uc.PreferredEmotions, 3)
		results, err := r.HybridSearch(ctx, &HybridQuery{
			Query:          "emotions: " + strings.Join(names, ", "),
			UserID:         &userID,
			EmotionFilters: names,
			TopK:           topK / 2,
		})
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}
	if len(uc.PreferredLocations) > 0 {
		names := tagNames(uc.PreferredLocations, 2)
		results, err := r.HybridSearch(ctx, &HybridQuery{
			Query:           "area: " + strings.Join(names, ", "),
			UserID:          &userID,
			LocationFilters: names,
			TopK:            topK / 2,
		})
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}

	seen := make(map[int32]bool, len(merged))
	unique := make([]ScoredPlace, 0, len(merged))
	for _, item := range merged {
		if seen[item.Place.ID] {
			continue
		}
		seen[item.Place.ID] = true
		unique = append(unique, item)
	}

	if len(unique) > topK {
		unique = unique[:topK]
	}
	return unique, nil
}
