package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/store"
)

// UpsertPlaceEmbedding inserts or updates the embedding for a place. One row
// per (place, model); the latest write wins.
func (d *DB) UpsertPlaceEmbedding(ctx context.Context, upsert *store.PlaceEmbedding) (*store.PlaceEmbedding, error) {
	upsert.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO place_embedding (place_id, model, embedding, source_text, updated_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (place_id, model) DO UPDATE SET
			embedding = excluded.embedding,
			source_text = excluded.source_text,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.PlaceID, upsert.Model, pgvector.NewVector(upsert.Vector), upsert.SourceText, upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert place embedding")
	}
	return upsert, nil
}

func (d *DB) ListPlaceEmbeddings(ctx context.Context, find *store.FindPlaceEmbedding) ([]*store.PlaceEmbedding, error) {
	where, args := []string{"TRUE"}, []any{}

	if find.PlaceID != nil {
		args = append(args, *find.PlaceID)
		where = append(where, fmt.Sprintf("place_id = $%d", len(args)))
	}
	if len(find.PlaceIDs) > 0 {
		placeholders := make([]string, 0, len(find.PlaceIDs))
		for _, id := range find.PlaceIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, "place_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if find.Model != nil {
		args = append(args, *find.Model)
		where = append(where, fmt.Sprintf("model = $%d", len(args)))
	}

	query := `SELECT place_id, model, embedding, source_text, updated_ts
		FROM place_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY place_id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list place embeddings")
	}
	defer rows.Close()

	list := []*store.PlaceEmbedding{}
	for rows.Next() {
		var embedding store.PlaceEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(
			&embedding.PlaceID,
			&embedding.Model,
			&vec,
			&embedding.SourceText,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan place embedding")
		}
		embedding.Vector = vec.Slice()
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CountPlaceEmbeddings(ctx context.Context, model string) (int, error) {
	query := `SELECT COUNT(*) FROM place_embedding`
	args := []any{}
	if model != "" {
		query += " WHERE model = $1"
		args = append(args, model)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count place embeddings")
	}
	return count, nil
}
