package store

import "context"

// PlaceSummary is a generated description of a place. Summaries are
// append-only; readers take the latest row per place.
type PlaceSummary struct {
	ID        int32
	PlaceID   int32
	Summary   string
	CreatedTs int64
}

func (s *Store) CreatePlaceSummary(ctx context.Context, create *PlaceSummary) (*PlaceSummary, error) {
	return s.driver.CreatePlaceSummary(ctx, create)
}

// GetLatestSummary returns the most recent summary for a place, or nil when
// none exists.
func (s *Store) GetLatestSummary(ctx context.Context, placeID int32) (*PlaceSummary, error) {
	return s.driver.GetLatestSummary(ctx, placeID)
}
