package recommend

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moodplace/moodplace/store"
)

// Source-selection thresholds. Internal data wins whenever any of these
// hold; otherwise the external provider is consulted.
const (
	minSavedForInternal      = 3
	minSimilarForInternal    = 2
	minEmbeddingsForInternal = 10
)

// Result sources.
const (
	SourceHybrid           = "hybrid"
	SourceExternalDetailed = "external_detailed"
	SourceExternalBasic    = "external_basic"
)

// Request describes one recommendation query.
type Request struct {
	Name        string
	Address     string
	EmotionTags []string
	UserID      *int32
	Category    string
	TopK        int
}

// Recommendation is one ranked result.
type Recommendation struct {
	Place   *store.Place
	Score   float32
	Summary string
	Source  string
}

// Recommend is the top-level entry point. It validates the request, decides
// between the internal hybrid pipeline and the external provider pipeline,
// supplements from the other path when the primary comes up short, and
// deduplicates and truncates the combined set.
//
// Results are cached per normalized request fingerprint; repeated identical
// requests within the TTL hit no provider at all.
func (r *Ranker) Recommend(ctx context.Context, req *Request) ([]Recommendation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = r.opts.TopK
	}

	key := recommendFingerprint(req.Name, req.Address, req.EmotionTags, req.UserID, req.Category, topK)
	if cached, ok := r.resultCache.Get(key); ok {
		r.metrics.CacheHit("result")
		return cached, nil
	}
	r.metrics.CacheMiss("result")

	start := time.Now()
	defer func() {
		r.metrics.RankingObserved(time.Since(start).Seconds())
	}()

	emotions := r.expandEmotions(ctx, req.EmotionTags)

	useInternal, err := r.selectInternal(ctx, req)
	if err != nil {
		return nil, err
	}

	var results []Recommendation
	if useInternal {
		r.metrics.PathSelected("internal")
		results, err = r.internalPath(ctx, req, emotions, topK)
		if err != nil {
			return nil, err
		}
		if len(results) < topK && r.places != nil {
			supplement, err := r.externalPath(ctx, req, emotions, topK-len(results))
			if err != nil {
				r.logger.Warn("external supplement failed", "error", err)
			} else {
				results = append(results, supplement...)
			}
		}
	} else {
		r.metrics.PathSelected("external")
		results, err = r.externalPath(ctx, req, emotions, topK)
		if err != nil {
			return nil, err
		}
		if len(results) < topK {
			supplement, err := r.keywordSupplement(ctx, req, topK-len(results))
			if err != nil {
				r.logger.Warn("keyword supplement failed", "error", err)
			} else {
				results = append(results, supplement...)
			}
		}
	}

	results = dedupeResults(results)

	if req.UserID != nil {
		results, err = r.excludeSaved(ctx, *req.UserID, results)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > topK {
		r.metrics.ResultTruncated()
		results = results[:topK]
	}

	r.resultCache.Set(key, results, r.opts.CacheTTL)
	return results, nil
}

func validateRequest(req *Request) error {
	if strings.TrimSpace(req.Name) == "" {
		return &ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if strings.TrimSpace(req.Address) == "" {
		return &ValidationError{Field: "address", Msg: "must not be empty"}
	}
	if len(req.EmotionTags) == 0 {
		return &ValidationError{Field: "emotion_tags", Msg: "at least one tag required"}
	}
	return nil
}

// expandEmotions widens the requested tag set with related emotions. The
// expansion is advisory: a chat-provider failure degrades to the raw tags.
func (r *Ranker) expandEmotions(ctx context.Context, tags []string) []string {
	if r.text == nil {
		return tags
	}

	key := emotionFingerprint(tags)
	if cached, ok := r.emotionCache.Get(key); ok {
		r.metrics.CacheHit("emotion")
		return cached
	}
	r.metrics.CacheMiss("emotion")

	r.metrics.ProviderCall("chat")
	expanded, err := r.text.ExpandEmotions(ctx, tags)
	if err != nil {
		r.metrics.ProviderError("chat")
		r.logger.Warn("emotion expansion failed, using raw tags", "error", err)
		return tags
	}

	r.emotionCache.Set(key, expanded, r.opts.ProfileTTL)
	return expanded
}

// selectInternal decides which pipeline serves the request. Any of: the
// user has enough saved places, the store already covers the area, or the
// embedding corpus is big enough to rank against.
func (r *Ranker) selectInternal(ctx context.Context, req *Request) (bool, error) {
	if req.UserID != nil {
		saved, err := r.store.CountSavedPlaces(ctx, *req.UserID)
		if err != nil {
			return false, err
		}
		if saved >= minSavedForInternal {
			return true, nil
		}
	}

	similar, err := r.store.CountSimilarPlaces(ctx, req.Name, req.Address)
	if err != nil {
		return false, err
	}
	if similar >= minSimilarForInternal {
		return true, nil
	}

	embeddings, err := r.store.CountPlaceEmbeddings(ctx, r.modelName())
	if err != nil {
		return false, err
	}
	if embeddings >= minEmbeddingsForInternal {
		return true, nil
	}

	if r.places == nil {
		// Provider unconfigured; internal is all there is.
		return true, nil
	}
	return false, nil
}

func (r *Ranker) internalPath(ctx context.Context, req *Request, emotions []string, topK int) ([]Recommendation, error) {
	query := buildQueryText(req.Name, req.Address, emotions)
	scored, err := r.HybridSearch(ctx, &HybridQuery{
		Query:          query,
		UserID:         req.UserID,
		EmotionFilters: emotions,
		TopK:           topK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Recommendation, 0, len(scored))
	for _, item := range scored {
		results = append(results, Recommendation{
			Place:   item.Place,
			Score:   item.Score,
			Summary: r.summaryFor(ctx, item.Place),
			Source:  SourceHybrid,
		})
	}
	return results, nil
}

// externalPath searches the place provider and persists every candidate.
// Only the top few get full enrichment (details, translation, summary,
// extracted emotion tags, an embedding); the rest get category defaults and
// a templated summary. An enrichment failure degrades that candidate to
// basic, never the whole request.
func (r *Ranker) externalPath(ctx context.Context, req *Request, emotions []string, want int) ([]Recommendation, error) {
	if r.places == nil {
		return nil, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r.metrics.ProviderCall("places")
	stubs, err := r.places.Search(ctx, req.Address, emotions, allowedTypesForCategory(req.Category))
	if err != nil {
		r.metrics.ProviderError("places")
		return nil, NewProviderError("places", err)
	}
	if len(stubs) > want {
		stubs = stubs[:want]
	}

	detailed := r.opts.MaxExternalEnrichment
	if detailed > len(stubs) {
		detailed = len(stubs)
	}

	results := make([]Recommendation, len(stubs))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < detailed; i++ {
		i := i
		g.Go(func() error {
			results[i] = r.enrichCandidate(gctx, req, stubs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := detailed; i < len(stubs); i++ {
		rec, err := r.basicCandidate(ctx, req, stubs[i])
		if err != nil {
			r.logger.Warn("failed to store external candidate", "place", stubs[i].Name, "error", err)
			continue
		}
		results[i] = rec
	}

	out := make([]Recommendation, 0, len(results))
	for _, rec := range results {
		if rec.Place != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// enrichCandidate runs the full enrichment chain for one external hit. Each
// step degrades independently.
func (r *Ranker) enrichCandidate(ctx context.Context, req *Request, stub CandidateStub) Recommendation {
	name, address := stub.Name, stub.Address
	var rating float64
	var placeTypes, reviews []string

	if r.details != nil {
		r.metrics.ProviderCall("places")
		details, err := r.details.Fetch(ctx, stub.ID, stub.Name)
		if err != nil {
			r.metrics.ProviderError("places")
			r.logger.Warn("detail fetch failed", "place", stub.Name, "error", err)
		} else {
			if details.Name != "" {
				name = details.Name
			}
			if details.Address != "" {
				address = details.Address
			}
			rating = details.Rating
			placeTypes = details.Types
			reviews = details.Reviews
		}
	}

	summary := ""
	emotions := defaultEmotionsForCategory(req.Category)
	if r.text != nil && len(reviews) > 0 {
		translated := make([]string, 0, len(reviews))
		for _, review := range reviews {
			out, err := r.text.Translate(ctx, review)
			if err != nil {
				out = review
			}
			translated = append(translated, out)
		}
		reviews = translated

		if s, err := r.text.Summarize(ctx, name, address, reviews, placeTypes); err != nil {
			r.logger.Warn("summarization failed", "place", name, "error", err)
		} else {
			summary = s
		}
		if tags, err := r.text.ExtractEmotionTags(ctx, name, reviews, placeTypes); err != nil {
			r.logger.Warn("emotion extraction failed", "place", name, "error", err)
		} else if len(tags) > 0 {
			emotions = tags
		}
	}
	if summary == "" {
		summary = FallbackSummary(name, address)
	}

	place, err := r.store.UpsertPlace(ctx, &store.UpsertPlace{
		ExternalID:   stub.ID,
		Name:         name,
		Address:      address,
		LocationName: ExtractNeighborhood(address),
		PhotoRef:     stub.PhotoRef,
		Rating:       rating,
		PlaceTypes:   placeTypes,
		Reviews:      reviews,
		Emotions:     emotions,
	})
	if err != nil {
		r.logger.Warn("failed to store external candidate", "place", name, "error", err)
		return Recommendation{}
	}

	if _, err := r.store.CreatePlaceSummary(ctx, &store.PlaceSummary{
		PlaceID: place.ID,
		Summary: summary,
	}); err != nil {
		r.logger.Warn("failed to store summary", "place", name, "error", err)
	}
	if _, err := r.UpsertPlaceEmbedding(ctx, place); err != nil {
		r.logger.Warn("failed to embed external candidate", "place", name, "error", err)
	}

	return Recommendation{
		Place:   place,
		Summary: summary,
		Source:  SourceExternalDetailed,
	}
}

// basicCandidate persists a candidate beyond the enrichment budget with
// category-default tags and a templated summary.
func (r *Ranker) basicCandidate(ctx context.Context, req *Request, stub CandidateStub) (Recommendation, error) {
	place, err := r.store.UpsertPlace(ctx, &store.UpsertPlace{
		ExternalID:   stub.ID,
		Name:         stub.Name,
		Address:      stub.Address,
		LocationName: ExtractNeighborhood(stub.Address),
		PhotoRef:     stub.PhotoRef,
		Emotions:     defaultEmotionsForCategory(req.Category),
	})
	if err != nil {
		return Recommendation{}, err
	}

	return Recommendation{
		Place:   place,
		Summary: FallbackSummary(stub.Name, stub.Address),
		Source:  SourceExternalBasic,
	}, nil
}

// keywordSupplement backfills an external result set from stored places by
// substring match when vector data is too sparse to rank.
func (r *Ranker) keywordSupplement(ctx context.Context, req *Request, want int) ([]Recommendation, error) {
	places, err := r.store.ListSimilarPlaces(ctx, req.Name, req.Address, want)
	if err != nil {
		return nil, err
	}

	results := make([]Recommendation, 0, len(places))
	for _, place := range places {
		results = append(results, Recommendation{
			Place:   place,
			Summary: r.summaryFor(ctx, place),
			Source:  SourceHybrid,
		})
	}
	return results, nil
}

func (r *Ranker) summaryFor(ctx context.Context, place *store.Place) string {
	if latest, err := r.store.GetLatestSummary(ctx, place.ID); err == nil && latest != nil {
		return latest.Summary
	}
	return FallbackSummary(place.Name, place.Address)
}

// dedupeResults drops repeated places, keyed by external ID when present
// and by internal ID otherwise. The first occurrence keeps its rank.
func dedupeResults(results []Recommendation) []Recommendation {
	seen := make(map[string]bool, len(results))
	out := make([]Recommendation, 0, len(results))
	for _, rec := range results {
		key := rec.Place.ExternalID
		if key == "" {
			key = "id:" + strconv.FormatInt(int64(rec.Place.ID), 10)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

// excludeSaved filters out places the user already saved from a hybrid
// recommendation, so repeat requests surface new options.
func (r *Ranker) excludeSaved(ctx context.Context, userID int32, results []Recommendation) ([]Recommendation, error) {
	channel := store.RecChannelHybrid
	saved, err := r.store.ListSavedPlaces(ctx, &store.FindSavedPlace{
		UserID:     &userID,
		RecChannel: &channel,
	})
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return results, nil
	}

	savedIDs := make(map[int32]bool, len(saved))
	for _, sp := range saved {
		savedIDs[sp.PlaceID] = true
	}

	out := make([]Recommendation, 0, len(results))
	for _, rec := range results {
		if savedIDs[rec.Place.ID] {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func buildQueryText(name, address string, emotions []string) string {
	parts := []string{}
	if name != "" {
		parts = append(parts, "name: "+name)
	}
	if address != "" {
		parts = append(parts, "address: "+address)
	}
	if len(emotions) > 0 {
		parts = append(parts, "emotions: "+strings.Join(emotions, ", "))
	}
	return strings.Join(parts, " ")
}
