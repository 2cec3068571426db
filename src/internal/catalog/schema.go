package catalog

// schema is the embedded DDL for the SQLite-backed store, modelled on
// kitsune's schemaV2 constant (internal/db/db.go): a single versioned block
// of CREATE ... IF NOT EXISTS statements that Open runs on every start; its
// version is recorded in PRAGMA user_version. There is no migration framework.
const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	parent        TEXT NOT NULL,
	track_number  INTEGER,
	disc_number   INTEGER,
	title         TEXT,
	artist        TEXT,
	album_artist  TEXT,
	year          INTEGER,
	album         TEXT,
	artwork       TEXT,
	duration      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_songs_parent ON songs(parent);
CREATE INDEX IF NOT EXISTS idx_songs_album  ON songs(album);

CREATE TABLE IF NOT EXISTS directories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL UNIQUE,
	parent      TEXT,
	artist      TEXT,
	year        INTEGER,
	album       TEXT,
	artwork     TEXT,
	date_added  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_directories_parent ON directories(parent);
CREATE INDEX IF NOT EXISTS idx_directories_album  ON directories(album);

CREATE TABLE IF NOT EXISTS misc_settings (
	id                            INTEGER PRIMARY KEY CHECK (id = 1),
	index_sleep_duration_seconds  INTEGER NOT NULL,
	index_album_art_pattern       TEXT NOT NULL
);
`

// currentSchemaVersion is stamped into PRAGMA user_version by Open, so a
// later schema change can detect an older database file and migrate it
// instead of re-running CREATE TABLE IF NOT EXISTS against stale DDL.
const currentSchemaVersion = 1
