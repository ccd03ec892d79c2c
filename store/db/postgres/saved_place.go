package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/store"
)

func (d *DB) CreateSavedPlace(ctx context.Context, create *store.SavedPlace) (*store.SavedPlace, error) {
	create.CreatedTs = time.Now().Unix()

	stmt := `INSERT INTO saved_place (user_id, place_id, rec_channel, summary_snapshot, created_ts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID, create.PlaceID, create.RecChannel, create.SummarySnapshot, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create saved place")
	}
	return create, nil
}

func (d *DB) ListSavedPlaces(ctx context.Context, find *store.FindSavedPlace) ([]*store.SavedPlace, error) {
	where, args := []string{"TRUE"}, []any{}

	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if find.RecChannel != nil {
		args = append(args, *find.RecChannel)
		where = append(where, fmt.Sprintf("rec_channel = $%d", len(args)))
	}

	query := `SELECT id, user_id, place_id, rec_channel, summary_snapshot, created_ts
		FROM saved_place
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list saved places")
	}
	defer rows.Close()

	list := []*store.SavedPlace{}
	for rows.Next() {
		var saved store.SavedPlace
		if err := rows.Scan(
			&saved.ID,
			&saved.UserID,
			&saved.PlaceID,
			&saved.RecChannel,
			&saved.SummarySnapshot,
			&saved.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan saved place")
		}
		list = append(list, &saved)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CountSavedPlaces(ctx context.Context, userID int32) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_place WHERE user_id = $1`, userID,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count saved places")
	}
	return count, nil
}

func (d *DB) ListTrendingPlaces(ctx context.Context, limit int) ([]*store.PlaceSaveCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT place_id, COUNT(*) AS save_count
		FROM saved_place
		GROUP BY place_id
		ORDER BY save_count DESC, place_id
		LIMIT $1`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trending places")
	}
	defer rows.Close()

	list := []*store.PlaceSaveCount{}
	for rows.Next() {
		var item store.PlaceSaveCount
		if err := rows.Scan(&item.PlaceID, &item.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan trending place")
		}
		list = append(list, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CreatePlaceSummary(ctx context.Context, create *store.PlaceSummary) (*store.PlaceSummary, error) {
	create.CreatedTs = time.Now().Unix()

	stmt := `INSERT INTO place_summary (place_id, summary, created_ts) VALUES ($1, $2, $3) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.PlaceID, create.Summary, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create place summary")
	}
	return create, nil
}

func (d *DB) GetLatestSummary(ctx context.Context, placeID int32) (*store.PlaceSummary, error) {
	query := `SELECT id, place_id, summary, created_ts
		FROM place_summary
		WHERE place_id = $1
		ORDER BY created_ts DESC, id DESC
		LIMIT 1`

	var summary store.PlaceSummary
	if err := d.db.QueryRowContext(ctx, query, placeID).Scan(
		&summary.ID,
		&summary.PlaceID,
		&summary.Summary,
		&summary.CreatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get latest summary")
	}
	return &summary, nil
}
