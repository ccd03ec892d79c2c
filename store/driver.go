package store

import "context"

// Driver is an interface for database access. Implementations provide
// atomic single-record upserts; concurrent writers follow last-write-wins.
type Driver interface {
	GetDB() any
	Close() error
	Migrate(ctx context.Context) error

	// Place model.
	GetPlace(ctx context.Context, id int32) (*Place, error)
	ListPlaces(ctx context.Context, find *FindPlace) ([]*Place, error)
	UpsertPlace(ctx context.Context, upsert *UpsertPlace) (*Place, error)
	CountSimilarPlaces(ctx context.Context, name, address string) (int, error)
	ListSimilarPlaces(ctx context.Context, name, address string, limit int) ([]*Place, error)

	// PlaceEmbedding model.
	UpsertPlaceEmbedding(ctx context.Context, upsert *PlaceEmbedding) (*PlaceEmbedding, error)
	ListPlaceEmbeddings(ctx context.Context, find *FindPlaceEmbedding) ([]*PlaceEmbedding, error)
	CountPlaceEmbeddings(ctx context.Context, model string) (int, error)

	// SavedPlace model.
	CreateSavedPlace(ctx context.Context, create *SavedPlace) (*SavedPlace, error)
	ListSavedPlaces(ctx context.Context, find *FindSavedPlace) ([]*SavedPlace, error)
	CountSavedPlaces(ctx context.Context, userID int32) (int, error)
	ListTrendingPlaces(ctx context.Context, limit int) ([]*PlaceSaveCount, error)

	// PlaceSummary model.
	CreatePlaceSummary(ctx context.Context, create *PlaceSummary) (*PlaceSummary, error)
	GetLatestSummary(ctx context.Context, placeID int32) (*PlaceSummary, error)
}
