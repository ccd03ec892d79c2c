package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/moodplace/moodplace/store"
)

// Preference weighting bounds. Weighting is strictly additive and bounded so
// it perturbs but never dominates base similarity rank.
const (
	emotionWeight   = 0.1
	locationWeight  = 0.05
	weightCountNorm = 10.0

	topPreferredEmotions  = 5
	topPreferredLocations = 3
)

// TagCount is a (name, occurrence count) preference pair.
type TagCount struct {
	Name  string
	Count int
}

// UserContext aggregates a user's saved places into preference weights over
// emotion tags and locations. A user with zero saved places gets an empty
// context, not an error; callers fall back to non-personalized ranking.
type UserContext struct {
	UserID             int32
	SavedPlaces        []*store.Place
	PreferredEmotions  []TagCount // ordered by count descending, top 5
	PreferredLocations []TagCount // ordered by count descending, top 3
}

// Empty reports whether the user has no saved places to personalize from.
func (uc *UserContext) Empty() bool {
	return uc == nil || len(uc.SavedPlaces) == 0
}

// BuildUserContext scans the user's saved places and tallies emotion and
// location occurrences across the linked places.
func (r *Ranker) BuildUserContext(ctx context.Context, userID int32) (*UserContext, error) {
	key := userContextFingerprint(userID)
	if cached, ok := r.contextCache.Get(key); ok {
		r.metrics.CacheHit("user_context")
		return cached, nil
	}
	r.metrics.CacheMiss("user_context")

	saved, err := r.store.ListSavedPlaces(ctx, &store.FindSavedPlace{UserID: &userID})
	if err != nil {
		return nil, err
	}

	uc := &UserContext{UserID: userID}
	emotionCounts := map[string]int{}
	locationCounts := map[string]int{}

	for _, sp := range saved {
		place, err := r.store.GetPlace(ctx, sp.PlaceID)
		if err != nil {
			return nil, err
		}
		if place == nil {
			continue
		}
		uc.SavedPlaces = append(uc.SavedPlaces, place)
		for _, emotion := range place.Emotions {
			emotionCounts[emotion]++
		}
		if place.LocationName != "" {
			locationCounts[place.LocationName]++
		}
	}

	uc.PreferredEmotions = topCounts(emotionCounts, topPreferredEmotions)
	uc.PreferredLocations = topCounts(locationCounts, topPreferredLocations)

	r.contextCache.Set(key, uc, r.opts.ProfileTTL)
	return uc, nil
}

// topCounts orders tallies by count descending, name ascending for
// determinism, truncated to limit.
func topCounts(counts map[string]int, limit int) []TagCount {
	list := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		list = append(list, TagCount{Name: name, Count: count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Name < list[j].Name
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

// enhanceQuery appends the user's top preferred emotions and locations to
// the query text. Personalization happens at the query level as well as the
// scoring level.
func enhanceQuery(query string, uc *UserContext) string {
	if uc.Empty() {
		return query
	}

	parts := []string{query}
	if len(uc.PreferredEmotions) > 0 {
		names := tagNames(uc.PreferredEmotions, 3)
		parts = append(parts, "emotions: "+strings.Join(names, ", "))
	}
	if len(uc.PreferredLocations) > 0 {
		names := tagNames(uc.PreferredLocations, 2)
		parts = append(parts, "area: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, " ")
}

func tagNames(counts []TagCount, limit int) []string {
	if len(counts) > limit {
		counts = counts[:limit]
	}
	names := make([]string, len(counts))
	for i, tc := range counts {
		names[i] = tc.Name
	}
	return names
}

// applyPreferenceWeights adjusts similarity scores with the user's
// preferences and re-sorts. Each matching preferred emotion adds
// 0.1*(count/10); a matching preferred location adds 0.05*(count/10). The
// additions are bounded well below typical similarity gaps, so a strongly
// similar place is never outranked through weighting alone.
func applyPreferenceWeights(results []ScoredPlace, uc *UserContext) {
	if uc.Empty() {
		return
	}

	for i := range results {
		place := results[i].Place
		placeEmotions := make(map[string]bool, len(place.Emotions))
		for _, emotion := range place.Emotions {
			placeEmotions[emotion] = true
		}
		for _, pref := range uc.PreferredEmotions {
			if placeEmotions[pref.Name] {
				results[i].Score += float32(emotionWeight * float64(pref.Count) / weightCountNorm)
			}
		}
		for _, pref := range uc.PreferredLocations {
			if place.LocationName != "" && place.LocationName == pref.Name {
				results[i].Score += float32(locationWeight * float64(pref.Count) / weightCountNorm)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
