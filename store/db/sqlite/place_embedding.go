package sqlite

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/store"
)

// Vectors are stored as little-endian float32 BLOBs. The dimension is not
// enforced here; the similarity engine fails closed on mismatched lengths.

func vectorToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid vector BLOB length %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}

// UpsertPlaceEmbedding inserts or updates the embedding for a place. One row
// per (place, model); the latest write wins.
func (d *DB) UpsertPlaceEmbedding(ctx context.Context, upsert *store.PlaceEmbedding) (*store.PlaceEmbedding, error) {
	upsert.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO place_embedding (place_id, model, vector, source_text, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (place_id, model) DO UPDATE SET
			vector = excluded.vector,
			source_text = excluded.source_text,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.PlaceID, upsert.Model, vectorToBLOB(upsert.Vector), upsert.SourceText, upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert place embedding")
	}
	return upsert, nil
}

func (d *DB) ListPlaceEmbeddings(ctx context.Context, find *store.FindPlaceEmbedding) ([]*store.PlaceEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.PlaceID != nil {
		where, args = append(where, "place_id = ?"), append(args, *find.PlaceID)
	}
	if len(find.PlaceIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(find.PlaceIDs)), ", ")
		where = append(where, "place_id IN ("+placeholders+")")
		for _, id := range find.PlaceIDs {
			args = append(args, id)
		}
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `SELECT place_id, model, vector, source_text, updated_ts
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
		var blob []byte
		if err := rows.Scan(
			&embedding.PlaceID,
			&embedding.Model,
			&blob,
			&embedding.SourceText,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan place embedding")
		}
		vec, err := blobToVector(blob)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode embedding vector")
		}
		embedding.Vector = vec
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
		query += " WHERE model = ?"
		args = append(args, model)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count place embeddings")
	}
	return count, nil
}
