package store

import "context"

// Recommendation channels. A saved place records which pipeline produced
// the recommendation it was saved from. The core treats the value as an
// opaque discriminator; only RecChannelHybrid is filtered out of repeat
// recommendations.
const (
	RecChannelHybrid   int32 = 1
	RecChannelInferred int32 = 2
)

// SavedPlace associates a user with a place they saved. SummarySnapshot is
// captured once at save time from the place's then-current summary and is
// immutable afterwards.
type SavedPlace struct {
	ID              int32
	UserID          int32
	PlaceID         int32
	RecChannel      int32
	SummarySnapshot string
	CreatedTs       int64
}

// FindSavedPlace is the filter for listing saved places.
type FindSavedPlace struct {
	UserID     *int32
	RecChannel *int32
}

// PlaceSaveCount is a trending aggregation row.
type PlaceSaveCount struct {
	PlaceID int32
	Count   int
}

// CreateSavedPlace stores the association and captures the summary snapshot
// from the place's latest summary when the caller left it empty.
func (s *Store) CreateSavedPlace(ctx context.Context, create *SavedPlace) (*SavedPlace, error) {
	if create.SummarySnapshot == "" {
		if summary, err := s.driver.GetLatestSummary(ctx, create.PlaceID); err == nil && summary != nil {
			create.SummarySnapshot = summary.Summary
		}
	}
	return s.driver.CreateSavedPlace(ctx, create)
}

func (s *Store) ListSavedPlaces(ctx context.Context, find *FindSavedPlace) ([]*SavedPlace, error) {
	return s.driver.ListSavedPlaces(ctx, find)
}

func (s *Store) CountSavedPlaces(ctx context.Context, userID int32) (int, error) {
	return s.driver.CountSavedPlaces(ctx, userID)
}

// ListTrendingPlaces returns place IDs ordered by how often they were saved.
func (s *Store) ListTrendingPlaces(ctx context.Context, limit int) ([]*PlaceSaveCount, error) {
	return s.driver.ListTrendingPlaces(ctx, limit)
}
