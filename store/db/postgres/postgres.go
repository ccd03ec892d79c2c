package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/moodplace/moodplace/internal/profile"
	"github.com/moodplace/moodplace/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database specified by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: pgDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS location (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS emotion (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS place (
	id SERIAL PRIMARY KEY,
	external_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	location_id INTEGER,
	photo_ref TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'operating',
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	place_types TEXT[] NOT NULL DEFAULT '{}',
	reviews TEXT[] NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_place_external_id ON place (external_id) WHERE external_id != '';

CREATE TABLE IF NOT EXISTS place_emotion (
	place_id INTEGER NOT NULL,
	emotion_id INTEGER NOT NULL,
	PRIMARY KEY (place_id, emotion_id)
);

CREATE TABLE IF NOT EXISTS place_embedding (
	place_id INTEGER NOT NULL,
	model TEXT NOT NULL,
	embedding vector NOT NULL,
	source_text TEXT NOT NULL DEFAULT '',
	updated_ts BIGINT NOT NULL,
	PRIMARY KEY (place_id, model)
);

CREATE TABLE IF NOT EXISTS saved_place (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	place_id INTEGER NOT NULL,
	rec_channel INTEGER NOT NULL DEFAULT 1,
	summary_snapshot TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_place_user ON saved_place (user_id);

CREATE TABLE IF NOT EXISTS place_summary (
	id SERIAL PRIMARY KEY,
	place_id INTEGER NOT NULL,
	summary TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_place_summary_place ON place_summary (place_id);
`

// Migrate creates the schema when missing. Requires the pgvector extension.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
