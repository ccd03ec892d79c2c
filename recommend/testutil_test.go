package recommend

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moodplace/moodplace/store"
)

// fakeDriver is an in-memory store.Driver for exercising the ranking core
// without a database.
type fakeDriver struct {
	mu sync.Mutex

	places     map[int32]*store.Place
	embeddings map[string]*store.PlaceEmbedding
	saved      []*store.SavedPlace
	summaries  []*store.PlaceSummary

	nextPlaceID   int32
	nextSavedID   int32
	nextSummaryID int32
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		places:     map[int32]*store.Place{},
		embeddings: map[string]*store.PlaceEmbedding{},
	}
}

func (d *fakeDriver) GetDB() any                    { return nil }
func (d *fakeDriver) Close() error                  { return nil }
func (d *fakeDriver) Migrate(context.Context) error { return nil }

func embeddingKey(placeID int32, model string) string {
	return strconv.FormatInt(int64(placeID), 10) + ":" + model
}

func (d *fakeDriver) GetPlace(_ context.Context, id int32) (*store.Place, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.places[id], nil
}

func (d *fakeDriver) ListPlaces(_ context.Context, find *store.FindPlace) ([]*store.Place, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.Place{}
	for _, p := range d.places {
		if find.ID != nil && p.ID != *find.ID {
			continue
		}
		if find.ExternalID != nil && p.ExternalID != *find.ExternalID {
			continue
		}
		if len(find.EmotionNames) > 0 && !anyOverlap(p.Emotions, find.EmotionNames) {
			continue
		}
		if len(find.LocationNames) > 0 && !contains(find.LocationNames, p.LocationName) {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *fakeDriver) UpsertPlace(_ context.Context, upsert *store.UpsertPlace) (*store.Place, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var place *store.Place
	if upsert.ExternalID != "" {
		for _, p := range d.places {
			if p.ExternalID == upsert.ExternalID {
				place = p
				break
			}
		}
	}
	if place == nil {
		d.nextPlaceID++
		place = &store.Place{ID: d.nextPlaceID, CreatedTs: time.Now().Unix()}
		d.places[place.ID] = place
	}

	place.ExternalID = upsert.ExternalID
	place.Name = upsert.Name
	place.Address = upsert.Address
	place.LocationName = upsert.LocationName
	place.PhotoRef = upsert.PhotoRef
	place.Status = upsert.Status
	place.Rating = upsert.Rating
	place.PlaceTypes = upsert.PlaceTypes
	place.Reviews = upsert.Reviews
	if upsert.Emotions != nil {
		place.Emotions = upsert.Emotions
	}
	place.UpdatedTs = time.Now().Unix()
	return place, nil
}

func (d *fakeDriver) CountSimilarPlaces(_ context.Context, name, address string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, p := range d.places {
		if matchesSubstring(p, name, address) {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) ListSimilarPlaces(_ context.Context, name, address string, limit int) ([]*store.Place, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.Place{}
	for _, p := range d.places {
		if matchesSubstring(p, name, address) {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func matchesSubstring(p *store.Place, name, address string) bool {
	if name != "" && strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
		return true
	}
	if address != "" && strings.Contains(strings.ToLower(p.Address), strings.ToLower(address)) {
		return true
	}
	return false
}

func (d *fakeDriver) UpsertPlaceEmbedding(_ context.Context, upsert *store.PlaceEmbedding) (*store.PlaceEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := &store.PlaceEmbedding{
		PlaceID:    upsert.PlaceID,
		Vector:     upsert.Vector,
		SourceText: upsert.SourceText,
		Model:      upsert.Model,
		UpdatedTs:  time.Now().Unix(),
	}
	d.embeddings[embeddingKey(upsert.PlaceID, upsert.Model)] = record
	return record, nil
}

func (d *fakeDriver) ListPlaceEmbeddings(_ context.Context, find *store.FindPlaceEmbedding) ([]*store.PlaceEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.PlaceEmbedding{}
	for _, e := range d.embeddings {
		if find.PlaceID != nil && e.PlaceID != *find.PlaceID {
			continue
		}
		if len(find.PlaceIDs) > 0 && !containsID(find.PlaceIDs, e.PlaceID) {
			continue
		}
		if find.Model != nil && e.Model != *find.Model {
			continue
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PlaceID < list[j].PlaceID })
	return list, nil
}

func (d *fakeDriver) CountPlaceEmbeddings(_ context.Context, model string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, e := range d.embeddings {
		if e.Model == model {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) CreateSavedPlace(_ context.Context, create *store.SavedPlace) (*store.SavedPlace, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSavedID++
	record := &store.SavedPlace{
		ID:              d.nextSavedID,
		UserID:          create.UserID,
		PlaceID:         create.PlaceID,
		RecChannel:      create.RecChannel,
		SummarySnapshot: create.SummarySnapshot,
		CreatedTs:       time.Now().Unix(),
	}
	d.saved = append(d.saved, record)
	return record, nil
}

func (d *fakeDriver) ListSavedPlaces(_ context.Context, find *store.FindSavedPlace) ([]*store.SavedPlace, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.SavedPlace{}
	for _, sp := range d.saved {
		if find.UserID != nil && sp.UserID != *find.UserID {
			continue
		}
		if find.RecChannel != nil && sp.RecChannel != *find.RecChannel {
			continue
		}
		list = append(list, sp)
	}
	return list, nil
}

func (d *fakeDriver) CountSavedPlaces(_ context.Context, userID int32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, sp := range d.saved {
		if sp.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) ListTrendingPlaces(_ context.Context, limit int) ([]*store.PlaceSaveCount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	counts := map[int32]int{}
	for _, sp := range d.saved {
		counts[sp.PlaceID]++
	}

	list := make([]*store.PlaceSaveCount, 0, len(counts))
	for placeID, count := range counts {
		list = append(list, &store.PlaceSaveCount{PlaceID: placeID, Count: count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].PlaceID < list[j].PlaceID
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (d *fakeDriver) CreatePlaceSummary(_ context.Context, create *store.PlaceSummary) (*store.PlaceSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSummaryID++
	record := &store.PlaceSummary{
		ID:        d.nextSummaryID,
		PlaceID:   create.PlaceID,
		Summary:   create.Summary,
		CreatedTs: time.Now().Unix(),
	}
	d.summaries = append(d.summaries, record)
	return record, nil
}

func (d *fakeDriver) GetLatestSummary(_ context.Context, placeID int32) (*store.PlaceSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var latest *store.PlaceSummary
	for _, s := range d.summaries {
		if s.PlaceID == placeID {
			latest = s
		}
	}
	return latest, nil
}

func anyOverlap(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func containsID(list []int32, want int32) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

// fakeEmbedder returns preset vectors per text and counts calls so cache
// behavior can be asserted.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	base    []float32
	err     error
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: map[string][]float32{},
		base:    []float32{1, 0, 0},
	}
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return e.base, nil
}

func (e *fakeEmbedder) Model() string { return "fake-embedding" }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeTextService implements the chat-backed text operations with canned
// answers.
type fakeTextService struct {
	expanded  []string
	expandErr error
	summary   string
	tags      []string
}

func (t *fakeTextService) Summarize(_ context.Context, _, _ string, _, _ []string) (string, error) {
	return t.summary, nil
}

func (t *fakeTextService) ExtractEmotionTags(_ context.Context, _ string, _, _ []string) ([]string, error) {
	return t.tags, nil
}

func (t *fakeTextService) ExpandEmotions(_ context.Context, tags []string) ([]string, error) {
	if t.expandErr != nil {
		return nil, t.expandErr
	}
	if t.expanded != nil {
		return t.expanded, nil
	}
	return tags, nil
}

func (t *fakeTextService) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}

type fakePlaceSearcher struct {
	mu    sync.Mutex
	stubs []CandidateStub
	err   error
	calls int
}

func (s *fakePlaceSearcher) Search(_ context.Context, _ string, _, _ []string) ([]CandidateStub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.stubs, nil
}

func (s *fakePlaceSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeDetailFetcher struct {
	details map[string]*PlaceDetails
	err     error
}

func (f *fakeDetailFetcher) Fetch(_ context.Context, id, _ string) (*PlaceDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	if details, ok := f.details[id]; ok {
		return details, nil
	}
	return &PlaceDetails{}, nil
}

type testEnv struct {
	ranker   *Ranker
	driver   *fakeDriver
	store    *store.Store
	embedder *fakeEmbedder
	searcher *fakePlaceSearcher
}

func newTestEnv(mutate ...func(*Deps, *Options)) *testEnv {
	driver := newFakeDriver()
	st := store.New(driver, nil)
	embedder := newFakeEmbedder()
	searcher := &fakePlaceSearcher{}

	deps := Deps{
		Store:    st,
		Embedder: embedder,
		Places:   searcher,
		Details:  &fakeDetailFetcher{},
	}
	opts := DefaultOptions()
	opts.ExternalRate = rate.Inf
	for _, fn := range mutate {
		fn(&deps, &opts)
	}

	return &testEnv{
		ranker:   NewRanker(deps, opts),
		driver:   driver,
		store:    st,
		embedder: embedder,
		searcher: searcher,
	}
}

// seedPlace inserts a place directly into the fake driver.
func (env *testEnv) seedPlace(p *store.Place) *store.Place {
	env.driver.mu.Lock()
	defer env.driver.mu.Unlock()

	if p.ID == 0 {
		env.driver.nextPlaceID++
		p.ID = env.driver.nextPlaceID
	} else if p.ID > env.driver.nextPlaceID {
		env.driver.nextPlaceID = p.ID
	}
	env.driver.places[p.ID] = p
	return p
}

func (env *testEnv) seedEmbedding(placeID int32, vector []float32) {
	env.driver.mu.Lock()
	defer env.driver.mu.Unlock()

	env.driver.embeddings[embeddingKey(placeID, "fake-embedding")] = &store.PlaceEmbedding{
		PlaceID: placeID,
		Vector:  vector,
		Model:   "fake-embedding",
	}
}

func (env *testEnv) seedSaved(userID, placeID, channel int32) {
	env.driver.mu.Lock()
	defer env.driver.mu.Unlock()

	env.driver.nextSavedID++
	env.driver.saved = append(env.driver.saved, &store.SavedPlace{
		ID:         env.driver.nextSavedID,
		UserID:     userID,
		PlaceID:    placeID,
		RecChannel: channel,
	})
}
