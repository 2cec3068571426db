package catalogsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/index"
	"gitlab.com/mipimipi/muscat/src/internal/metadata"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func fakeReader(tagsByPath map[string]metadata.Tags) metadata.Reader {
	return func(path string) (metadata.Tags, error) {
		t, ok := tagsByPath[path]
		if !ok {
			return metadata.Tags{}, os.ErrNotExist
		}
		return t, nil
	}
}

// newTestService builds a fully populated Service over a small two-album
// fixture tree, mirroring the scenarios the catalog query semantics are
// exercised against.
func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()

	hunted := filepath.Join(root, "Khemmis", "Hunted")
	picnic := filepath.Join(root, "Tobokegao", "Picnic")
	if err := os.MkdirAll(hunted, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(picnic, 0o755); err != nil {
		t.Fatal(err)
	}

	song1 := filepath.Join(hunted, "01 - Above the Water.mp3")
	song2 := filepath.Join(hunted, "02 - Candlelight.mp3")
	song3 := filepath.Join(picnic, "01 - Picnic Song.mp3")
	for _, p := range []string{song1, song2, song3} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tags := map[string]metadata.Tags{
		song1: {Title: strp("Above the Water"), Album: strp("Hunted"), Artist: strp("Khemmis"),
			Year: intp(2016), TrackNumber: intp(1)},
		song2: {Title: strp("Candlelight"), Album: strp("Hunted"), Artist: strp("Khemmis"),
			Year: intp(2016), TrackNumber: intp(2)},
		song3: {Title: strp("Picnic Song"), Album: strp("Picnic"), Artist: strp("Tobokegao"),
			Year: intp(2016), TrackNumber: intp(1)},
	}

	dbDir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dbDir, "catalog.db"), catalog.MiscSettings{
		IndexSleepDurationSeconds: 1800,
		IndexAlbumArtPattern:      `(?i)^(cover|folder)\.(jpg|png)$`,
	})
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mapper := vfs.New([]vfs.MountPoint{{Name: "root", Real: root}})
	reader := fakeReader(tags)

	if err := index.Update(context.Background(), store, mapper, reader); err != nil {
		t.Fatalf("index.Update: %v", err)
	}

	return New(store, mapper, reader), root
}

func TestBrowseTopLevel(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.Browse(context.Background(), "")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 mount-root entry, got %d", len(results))
	}
	if results[0].Directory == nil || results[0].Directory.Path != "root" {
		t.Fatalf("expected virtual path %q, got %+v", "root", results[0].Directory)
	}
}

func TestBrowseSubdirectory(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.Browse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 artist directories, got %d", len(results))
	}
	for _, r := range results {
		if r.Directory == nil {
			t.Fatalf("expected only directories at artist level, got %+v", r)
		}
	}
}

func TestFlattenOrdersByPath(t *testing.T) {
	svc, _ := newTestService(t)
	songs, err := svc.Flatten(context.Background(), "root")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(songs) != 3 {
		t.Fatalf("expected 3 songs, got %d", len(songs))
	}
	if songs[0].Title == nil || *songs[0].Title != "Above the Water" {
		t.Fatalf("expected first song by path to be %q, got %v", "Above the Water", songs[0].Title)
	}
}

func TestGetSong(t *testing.T) {
	svc, _ := newTestService(t)
	song, err := svc.GetSong(context.Background(), "root/Khemmis/Hunted/02 - Candlelight.mp3")
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if song.Title == nil || *song.Title != "Candlelight" {
		t.Fatalf("unexpected title: %v", song.Title)
	}
}

func TestGetSongUnknownPath(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetSong(context.Background(), "root/does/not/exist.mp3")
	if err == nil {
		t.Fatal("expected error for unknown song path")
	}
}

func TestSearchExcludesSongsUnderMatchedDirectory(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.Search(context.Background(), "Hunted")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var dirHits, songHits int
	for _, r := range results {
		if r.Directory != nil {
			dirHits++
		}
		if r.Song != nil {
			songHits++
		}
	}
	if dirHits != 1 {
		t.Fatalf("expected 1 matched directory, got %d", dirHits)
	}
	if songHits != 0 {
		t.Fatalf("expected songs under the matched directory to be excluded, got %d", songHits)
	}
}

func TestRecentAlbumsOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	albums, err := svc.RecentAlbums(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums, got %d", len(albums))
	}
	if albums[0].DateAdded < albums[1].DateAdded {
		t.Fatalf("expected most recent first, got %d before %d", albums[0].DateAdded, albums[1].DateAdded)
	}
}
