package store

import "context"

// Place status values.
const (
	PlaceStatusOperating = "operating"
	PlaceStatusClosed    = "closed"
)

// Place is a cafe or restaurant known to the system. A place is created on
// first discovery (internal import or external supplementation) and mutated
// on re-discovery; it is never deleted by the recommendation core.
type Place struct {
	ID int32
	// ExternalID is the place-search provider's identifier. Empty for
	// places that were imported internally.
	ExternalID   string
	Name         string
	Address      string
	LocationName string
	PhotoRef     string
	Status       string
	Rating       float64
	PlaceTypes   []string
	Reviews      []string
	// Emotions holds the linked emotion tag names.
	Emotions  []string
	CreatedTs int64
	UpdatedTs int64
}

// FindPlace is the filter for listing places. Emotion and location name
// filters are each OR-semantics within the field; a place matches when it
// carries at least one of the listed names. Non-empty fields are ANDed.
type FindPlace struct {
	ID            *int32
	ExternalID    *string
	EmotionNames  []string
	LocationNames []string
	Limit         *int
}

// UpsertPlace inserts or updates a place keyed by external ID. The linked
// emotion set is replaced when Emotions is non-nil.
type UpsertPlace struct {
	ExternalID   string
	Name         string
	Address      string
	LocationName string
	PhotoRef     string
	Status       string
	Rating       float64
	PlaceTypes   []string
	Reviews      []string
	Emotions     []string
}

func (s *Store) GetPlace(ctx context.Context, id int32) (*Place, error) {
	return s.driver.GetPlace(ctx, id)
}

func (s *Store) ListPlaces(ctx context.Context, find *FindPlace) ([]*Place, error) {
	return s.driver.ListPlaces(ctx, find)
}

func (s *Store) UpsertPlace(ctx context.Context, upsert *UpsertPlace) (*Place, error) {
	return s.driver.UpsertPlace(ctx, upsert)
}

// CountSimilarPlaces counts stored places whose name contains the given name
// substring or whose address contains the given address substring. The
// source-selection policy uses it as its "is this area already covered"
// heuristic.
func (s *Store) CountSimilarPlaces(ctx context.Context, name, address string) (int, error) {
	return s.driver.CountSimilarPlaces(ctx, name, address)
}

// ListSimilarPlaces is the keyword counterpart to vector search: substring
// match over name and address, used to backfill result sets.
func (s *Store) ListSimilarPlaces(ctx context.Context, name, address string, limit int) ([]*Place, error) {
	return s.driver.ListSimilarPlaces(ctx, name, address, limit)
}
