package store

import "context"

// PlaceEmbedding is a vector embedding owned 1:1 by a place for a given
// model. The vector is derived from SourceText, the corpus string built from
// the place's name, address, emotion tags, summary and a review sample.
// Upsert semantics: one row per (place, model), latest overwrites.
type PlaceEmbedding struct {
	PlaceID    int32
	Vector     []float32
	SourceText string
	Model      string
	UpdatedTs  int64
}

// FindPlaceEmbedding is the filter for listing embeddings.
type FindPlaceEmbedding struct {
	PlaceID  *int32
	PlaceIDs []int32
	Model    *string
}

func (s *Store) UpsertPlaceEmbedding(ctx context.Context, upsert *PlaceEmbedding) (*PlaceEmbedding, error) {
	return s.driver.UpsertPlaceEmbedding(ctx, upsert)
}

func (s *Store) ListPlaceEmbeddings(ctx context.Context, find *FindPlaceEmbedding) ([]*PlaceEmbedding, error) {
	return s.driver.ListPlaceEmbeddings(ctx, find)
}

func (s *Store) CountPlaceEmbeddings(ctx context.Context, model string) (int, error) {
	return s.driver.CountPlaceEmbeddings(ctx, model)
}
