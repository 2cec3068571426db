package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// deleteChunkSize bounds how many paths appear in a single "path IN (...)"
// delete predicate, matching the reconciler's chunked-delete contract
// (spec §4.D, INDEX_BUILDING_CLEAN_BUFFER_SIZE in the original Polaris
// source).
const deleteChunkSize = 500

// SQLiteStore is the concrete Store implementation: a database/sql handle
// onto modernc.org/sqlite (pure Go, no cgo — the same driver choice
// kitsune's internal/db package makes), guarded by a single process-wide
// mutex per spec §5.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	bldr sq.StatementBuilderType
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the catalog database at path, applies the schema,
// and seeds misc_settings with seed if the table is empty.
func Open(path string, seed MiscSettings) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, errors.Wrap(err, "opening catalog database")
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:   db,
		bldr: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "applying catalog schema")
	}

	if err := s.checkSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.seedSettings(seed); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "seeding misc_settings")
	}

	return s, nil
}

// checkSchemaVersion stamps a freshly created database with
// currentSchemaVersion and refuses to open one written by a newer binary.
// There is no migration path yet: an older, lower version number is left
// as-is, since the DDL above is itself idempotent against it.
func (s *SQLiteStore) checkSchemaVersion() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return errors.Wrap(err, "reading schema version")
	}
	if version == 0 {
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion))
		return errors.Wrap(err, "stamping schema version")
	}
	if version > currentSchemaVersion {
		return errors.Errorf("catalog database schema version %d is newer than this binary supports (%d)",
			version, currentSchemaVersion)
	}
	return nil
}

func (s *SQLiteStore) seedSettings(seed MiscSettings) error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM misc_settings`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO misc_settings (id, index_sleep_duration_seconds, index_album_art_pattern) VALUES (1, ?, ?)`,
		seed.IndexSleepDurationSeconds, seed.IndexAlbumArtPattern,
	)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertSongs implements Store.
func (s *SQLiteStore) InsertSongs(ctx context.Context, rows []NewSong) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO songs (path, parent, track_number, disc_number, title, artist,
				album_artist, year, album, artwork, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Path, r.Parent, r.TrackNumber, r.DiscNumber,
				r.Title, r.Artist, r.AlbumArtist, r.Year, r.Album, r.Artwork, r.Duration); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertDirectories implements Store.
func (s *SQLiteStore) InsertDirectories(ctx context.Context, rows []NewDirectory) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO directories (path, parent, artist, year, album, artwork, date_added)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Path, r.Parent, r.Artist, r.Year, r.Album,
				r.Artwork, r.DateAdded); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllSongPaths implements Store.
func (s *SQLiteStore) AllSongPaths(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allPaths(ctx, "songs")
}

// AllDirectoryPaths implements Store.
func (s *SQLiteStore) AllDirectoryPaths(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allPaths(ctx, "directories")
}

func (s *SQLiteStore) allPaths(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM `+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteSongsByPath implements Store.
func (s *SQLiteStore) DeleteSongsByPath(ctx context.Context, paths []string) error {
	return s.deleteByPathChunked(ctx, "songs", paths)
}

// DeleteDirectoriesByPath implements Store.
func (s *SQLiteStore) DeleteDirectoriesByPath(ctx context.Context, paths []string) error {
	return s.deleteByPathChunked(ctx, "directories", paths)
}

// deleteByPathChunked deletes rows from table in chunks of deleteChunkSize,
// one transaction per chunk, matching the reconciler's bounded-memory
// contract (spec §4.D).
func (s *SQLiteStore) deleteByPathChunked(ctx context.Context, table string, paths []string) error {
	for len(paths) > 0 {
		n := deleteChunkSize
		if n > len(paths) {
			n = len(paths)
		}
		chunk := paths[:n]
		paths = paths[n:]

		if err := s.deleteChunk(ctx, table, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) deleteChunk(ctx context.Context, table string, chunk []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		q, args, err := s.bldr.Delete(table).Where(sq.Eq{"path": chunk}).ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, q, args...)
		return err
	})
}

// MiscSettings implements Store.
func (s *SQLiteStore) MiscSettings(ctx context.Context) (MiscSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ms MiscSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT index_sleep_duration_seconds, index_album_art_pattern FROM misc_settings WHERE id = 1`,
	).Scan(&ms.IndexSleepDurationSeconds, &ms.IndexAlbumArtPattern)
	if err == sql.ErrNoRows {
		return MiscSettings{IndexSleepDurationSeconds: 1800}, nil
	}
	return ms, err
}

// DirectoriesByParent implements Store.
func (s *SQLiteStore) DirectoriesByParent(ctx context.Context, parent *string) ([]Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(directoryColumns...).From("directories").OrderBy("path COLLATE NOCASE ASC")
	if parent == nil {
		q = q.Where(sq.Eq{"parent": nil})
	} else {
		q = q.Where(sq.Eq{"parent": *parent})
	}
	return s.queryDirectories(ctx, q)
}

// SongsByParent implements Store.
func (s *SQLiteStore) SongsByParent(ctx context.Context, parent string) ([]Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(songColumns...).From("songs").
		Where(sq.Eq{"parent": parent}).
		OrderBy("path COLLATE NOCASE ASC")
	return s.querySongs(ctx, q)
}

// SongsUnderPrefix implements Store.
func (s *SQLiteStore) SongsUnderPrefix(ctx context.Context, prefix string) ([]Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(songColumns...).From("songs").
		Where(sq.Like{"path": prefix + "%"}).
		OrderBy("path ASC")
	return s.querySongs(ctx, q)
}

// AllSongs implements Store.
func (s *SQLiteStore) AllSongs(ctx context.Context) ([]Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(songColumns...).From("songs").OrderBy("path ASC")
	return s.querySongs(ctx, q)
}

// RandomAlbums implements Store.
func (s *SQLiteStore) RandomAlbums(ctx context.Context, n int) ([]Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(directoryColumns...).From("directories").
		Where(sq.NotEq{"album": nil}).
		OrderBy("RANDOM()").
		Limit(uint64(n))
	return s.queryDirectories(ctx, q)
}

// RecentAlbums implements Store.
func (s *SQLiteStore) RecentAlbums(ctx context.Context, n int) ([]Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(directoryColumns...).From("directories").
		Where(sq.NotEq{"album": nil}).
		OrderBy("date_added DESC").
		Limit(uint64(n))
	return s.queryDirectories(ctx, q)
}

// SearchDirectories implements Store.
func (s *SQLiteStore) SearchDirectories(ctx context.Context, query string) ([]Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + query + "%"
	q := s.bldr.Select(directoryColumns...).From("directories").
		Where(sq.Like{"path": like}).
		Where(sq.NotLike{"parent": like})
	return s.queryDirectories(ctx, q)
}

// SearchSongs implements Store.
func (s *SQLiteStore) SearchSongs(ctx context.Context, query string) ([]Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + query + "%"
	q := s.bldr.Select(songColumns...).From("songs").
		Where(sq.Or{
			sq.Like{"path": like},
			sq.Like{"title": like},
			sq.Like{"album": like},
			sq.Like{"artist": like},
			sq.Like{"album_artist": like},
		}).
		Where(sq.NotLike{"parent": like})
	return s.querySongs(ctx, q)
}

// GetSongByPath implements Store.
func (s *SQLiteStore) GetSongByPath(ctx context.Context, path string) (Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.bldr.Select(songColumns...).From("songs").Where(sq.Eq{"path": path})
	songs, err := s.querySongs(ctx, q)
	if err != nil {
		return Song{}, err
	}
	if len(songs) == 0 {
		return Song{}, sql.ErrNoRows
	}
	return songs[0], nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var songColumns = []string{
	"path", "parent", "track_number", "disc_number", "title", "artist",
	"album_artist", "year", "album", "artwork", "duration",
}

var directoryColumns = []string{
	"path", "parent", "artist", "year", "album", "artwork", "date_added",
}

func (s *SQLiteStore) querySongs(ctx context.Context, q sq.SelectBuilder) ([]Song, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Song
	for rows.Next() {
		var song Song
		if err := rows.Scan(&song.Path, &song.Parent, &song.TrackNumber, &song.DiscNumber,
			&song.Title, &song.Artist, &song.AlbumArtist, &song.Year, &song.Album,
			&song.Artwork, &song.Duration); err != nil {
			return nil, err
		}
		out = append(out, song)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryDirectories(ctx context.Context, q sq.SelectBuilder) ([]Directory, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Directory
	for rows.Next() {
		var d Directory
		if err := rows.Scan(&d.Path, &d.Parent, &d.Artist, &d.Year, &d.Album,
			&d.Artwork, &d.DateAdded); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
