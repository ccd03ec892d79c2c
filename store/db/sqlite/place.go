package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/store"
)

const placeFields = `p.id, p.external_id, p.name, p.address, COALESCE(l.name, ''), p.photo_ref, p.status, p.rating, p.place_types, p.reviews, p.created_ts, p.updated_ts`

func (d *DB) GetPlace(ctx context.Context, id int32) (*store.Place, error) {
	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE p.id = ?`

	place, err := scanPlace(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get place")
	}

	if err := d.loadEmotions(ctx, []*store.Place{place}); err != nil {
		return nil, err
	}
	return place, nil
}

func (d *DB) ListPlaces(ctx context.Context, find *store.FindPlace) ([]*store.Place, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "p.id = ?"), append(args, *find.ID)
	}
	if find.ExternalID != nil {
		where, args = append(where, "p.external_id = ?"), append(args, *find.ExternalID)
	}
	// Emotion and location filters are OR within the field: one matching
	// name qualifies the place. Both filters present means both must hold.
	if len(find.EmotionNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(find.EmotionNames)), ", ")
		where = append(where, `p.id IN (
			SELECT pe.place_id FROM place_emotion pe
			JOIN emotion e ON e.id = pe.emotion_id
			WHERE e.name IN (`+placeholders+`))`)
		for _, name := range find.EmotionNames {
			args = append(args, name)
		}
	}
	if len(find.LocationNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(find.LocationNames)), ", ")
		where = append(where, `l.name IN (`+placeholders+`)`)
		for _, name := range find.LocationNames {
			args = append(args, name)
		}
	}

	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.id`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list places")
	}
	defer rows.Close()

	list := []*store.Place{}
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan place")
		}
		list = append(list, place)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.loadEmotions(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpsertPlace(ctx context.Context, upsert *store.UpsertPlace) (*store.Place, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback()

	var locationID *int64
	if upsert.LocationName != "" {
		id, err := getOrCreateByName(ctx, tx, "location", upsert.LocationName)
		if err != nil {
			return nil, err
		}
		locationID = &id
	}

	placeTypes, err := json.Marshal(emptyIfNil(upsert.PlaceTypes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal place types")
	}
	reviews, err := json.Marshal(emptyIfNil(upsert.Reviews))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal reviews")
	}

	now := time.Now().Unix()
	var placeID int64
	if upsert.ExternalID != "" {
		stmt := `INSERT INTO place (external_id, name, address, location_id, photo_ref, status, rating, place_types, reviews, created_ts, updated_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (external_id) WHERE external_id != '' DO UPDATE SET
				name = excluded.name,
				address = excluded.address,
				location_id = excluded.location_id,
				photo_ref = excluded.photo_ref,
				status = excluded.status,
				rating = excluded.rating,
				place_types = excluded.place_types,
				reviews = excluded.reviews,
				updated_ts = excluded.updated_ts
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt,
			upsert.ExternalID, upsert.Name, upsert.Address, locationID, upsert.PhotoRef,
			defaultStatus(upsert.Status), upsert.Rating, string(placeTypes), string(reviews), now, now,
		).Scan(&placeID); err != nil {
			return nil, errors.Wrap(err, "failed to upsert place")
		}
	} else {
		stmt := `INSERT INTO place (external_id, name, address, location_id, photo_ref, status, rating, place_types, reviews, created_ts, updated_ts)
			VALUES ('', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt,
			upsert.Name, upsert.Address, locationID, upsert.PhotoRef,
			defaultStatus(upsert.Status), upsert.Rating, string(placeTypes), string(reviews), now, now,
		).Scan(&placeID); err != nil {
			return nil, errors.Wrap(err, "failed to insert place")
		}
	}

	if upsert.Emotions != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM place_emotion WHERE place_id = ?`, placeID); err != nil {
			return nil, errors.Wrap(err, "failed to clear place emotions")
		}
		for _, name := range upsert.Emotions {
			emotionID, err := getOrCreateByName(ctx, tx, "emotion", name)
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO place_emotion (place_id, emotion_id) VALUES (?, ?)`,
				placeID, emotionID); err != nil {
				return nil, errors.Wrap(err, "failed to link emotion")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit")
	}
	return d.GetPlace(ctx, int32(placeID))
}

func (d *DB) CountSimilarPlaces(ctx context.Context, name, address string) (int, error) {
	query := `SELECT COUNT(*) FROM place WHERE (? != '' AND name LIKE ? ESCAPE '\') OR (? != '' AND address LIKE ? ESCAPE '\')`
	var count int
	err := d.db.QueryRowContext(ctx, query,
		name, "%"+escapeLike(name)+"%",
		address, "%"+escapeLike(address)+"%",
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count similar places")
	}
	return count, nil
}

func (d *DB) ListSimilarPlaces(ctx context.Context, name, address string, limit int) ([]*store.Place, error) {
	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE (? != '' AND p.name LIKE ? ESCAPE '\') OR (? != '' AND p.address LIKE ? ESCAPE '\')
		ORDER BY p.id
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query,
		name, "%"+escapeLike(name)+"%",
		address, "%"+escapeLike(address)+"%",
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list similar places")
	}
	defer rows.Close()

	list := []*store.Place{}
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan place")
		}
		list = append(list, place)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.loadEmotions(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// getOrCreateByName returns the row ID for a named lookup table entry,
// creating it when missing. Names are globally deduplicated.
func getOrCreateByName(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	var id int64
	stmt := `INSERT INTO ` + table + ` (name) VALUES (?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`
	if err := tx.QueryRowContext(ctx, stmt, name).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "failed to get or create %s %q", table, name)
	}
	return id, nil
}

func (d *DB) loadEmotions(ctx context.Context, places []*store.Place) error {
	if len(places) == 0 {
		return nil
	}

	byID := make(map[int32]*store.Place, len(places))
	placeholders := make([]string, 0, len(places))
	args := make([]any, 0, len(places))
	for _, p := range places {
		byID[p.ID] = p
		placeholders = append(placeholders, "?")
		args = append(args, p.ID)
	}

	query := `SELECT pe.place_id, e.name
		FROM place_emotion pe
		JOIN emotion e ON e.id = pe.emotion_id
		WHERE pe.place_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY e.name`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to load place emotions")
	}
	defer rows.Close()

	for rows.Next() {
		var placeID int32
		var name string
		if err := rows.Scan(&placeID, &name); err != nil {
			return errors.Wrap(err, "failed to scan place emotion")
		}
		if p, ok := byID[placeID]; ok {
			p.Emotions = append(p.Emotions, name)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*store.Place, error) {
	var place store.Place
	var placeTypes, reviews string
	if err := row.Scan(
		&place.ID,
		&place.ExternalID,
		&place.Name,
		&place.Address,
		&place.LocationName,
		&place.PhotoRef,
		&place.Status,
		&place.Rating,
		&placeTypes,
		&reviews,
		&place.CreatedTs,
		&place.UpdatedTs,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(placeTypes), &place.PlaceTypes); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal place types")
	}
	if err := json.Unmarshal([]byte(reviews), &place.Reviews); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal reviews")
	}
	return &place, nil
}

func defaultStatus(status string) string {
	if status == "" {
		return store.PlaceStatusOperating
	}
	return status
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
