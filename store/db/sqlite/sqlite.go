package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/moodplace/moodplace/internal/profile"
	"github.com/moodplace/moodplace/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database for the given profile. WAL journal mode with
// a single pooled connection keeps concurrent readers and the occasional
// writer from tripping over file locks.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS location (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS emotion (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS place (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	location_id INTEGER,
	photo_ref TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'operating',
	rating REAL NOT NULL DEFAULT 0,
	place_types TEXT NOT NULL DEFAULT '[]',
	reviews TEXT NOT NULL DEFAULT '[]',
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
	vector BLOB NOT NULL,
	source_text TEXT NOT NULL DEFAULT '',
	updated_ts BIGINT NOT NULL,
	PRIMARY KEY (place_id, model)
);

CREATE TABLE IF NOT EXISTS saved_place (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	place_id INTEGER NOT NULL,
	rec_channel INTEGER NOT NULL DEFAULT 1,
	summary_snapshot TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_place_user ON saved_place (user_id);

CREATE TABLE IF NOT EXISTS place_summary (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	place_id INTEGER NOT NULL,
	summary TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_place_summary_place ON place_summary (place_id);
`

// Migrate creates the schema when missing. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
