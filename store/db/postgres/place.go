package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/store"
)

const placeFields = `p.id, p.external_id, p.name, p.address, COALESCE(l.name, ''), p.photo_ref, p.status, p.rating, p.place_types, p.reviews, p.created_ts, p.updated_ts`

func (d *DB) GetPlace(ctx context.Context, id int32) (*store.Place, error) {
	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE p.id = $1`

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
	where, args := []string{"TRUE"}, []any{}

	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, fmt.Sprintf("p.id = $%d", len(args)))
	}
	if find.ExternalID != nil {
		args = append(args, *find.ExternalID)
		where = append(where, fmt.Sprintf("p.external_id = $%d", len(args)))
	}
	// OR within a filter field, AND across fields.
	if len(find.EmotionNames) > 0 {
		args = append(args, pq.Array(find.EmotionNames))
		where = append(where, fmt.Sprintf(`p.id IN (
			SELECT pe.place_id FROM place_emotion pe
			JOIN emotion e ON e.id = pe.emotion_id
			WHERE e.name = ANY($%d))`, len(args)))
	}
	if len(find.LocationNames) > 0 {
		args = append(args, pq.Array(find.LocationNames))
		where = append(where, fmt.Sprintf("l.name = ANY($%d)", len(args)))
	}

	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.id`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
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

	status := upsert.Status
	if status == "" {
		status = store.PlaceStatusOperating
	}

	now := time.Now().Unix()
	var placeID int64
	if upsert.ExternalID != "" {
		stmt := `INSERT INTO place (external_id, name, address, location_id, photo_ref, status, rating, place_types, reviews, created_ts, updated_ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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
			status, upsert.Rating, pq.Array(upsert.PlaceTypes), pq.Array(upsert.Reviews), now, now,
		).Scan(&placeID); err != nil {
			return nil, errors.Wrap(err, "failed to upsert place")
		}
	} else {
		stmt := `INSERT INTO place (external_id, name, address, location_id, photo_ref, status, rating, place_types, reviews, created_ts, updated_ts)
			VALUES ('', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, stmt,
			upsert.Name, upsert.Address, locationID, upsert.PhotoRef,
			status, upsert.Rating, pq.Array(upsert.PlaceTypes), pq.Array(upsert.Reviews), now, now,
		).Scan(&placeID); err != nil {
			return nil, errors.Wrap(err, "failed to insert place")
		}
	}

	if upsert.Emotions != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM place_emotion WHERE place_id = $1`, placeID); err != nil {
			return nil, errors.Wrap(err, "failed to clear place emotions")
		}
		for _, name := range upsert.Emotions {
			emotionID, err := getOrCreateByName(ctx, tx, "emotion", name)
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO place_emotion (place_id, emotion_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
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
	query := `SELECT COUNT(*) FROM place
		WHERE ($1 != '' AND name ILIKE '%' || $1 || '%')
			OR ($2 != '' AND address ILIKE '%' || $2 || '%')`
	var count int
	if err := d.db.QueryRowContext(ctx, query, name, address).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count similar places")
	}
	return count, nil
}

func (d *DB) ListSimilarPlaces(ctx context.Context, name, address string, limit int) ([]*store.Place, error) {
	query := `SELECT ` + placeFields + `
		FROM place p
		LEFT JOIN location l ON l.id = p.location_id
		WHERE ($1 != '' AND p.name ILIKE '%' || $1 || '%')
			OR ($2 != '' AND p.address ILIKE '%' || $2 || '%')
		ORDER BY p.id
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, name, address, limit)
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

func getOrCreateByName(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	var id int64
	stmt := `INSERT INTO ` + table + ` (name) VALUES ($1)
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
	ids := make([]int32, 0, len(places))
	for _, p := range places {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `SELECT pe.place_id, e.name
		FROM place_emotion pe
		JOIN emotion e ON e.id = pe.emotion_id
		WHERE pe.place_id = ANY($1)
		ORDER BY e.name`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(ids))
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
	if err := row.Scan(
		&place.ID,
		&place.ExternalID,
		&place.Name,
		&place.Address,
		&place.LocationName,
		&place.PhotoRef,
		&place.Status,
		&place.Rating,
		pq.Array(&place.PlaceTypes),
		pq.Array(&place.Reviews),
		&place.CreatedTs,
		&place.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return &place, nil
}
