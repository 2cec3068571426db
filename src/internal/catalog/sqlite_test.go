package catalog

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "catalog.db"), MiscSettings{
		IndexSleepDurationSeconds: 1800,
		IndexAlbumArtPattern:      `(?i)^cover\.jpg$`,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestSeedSettingsApplied(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ms, err := s.MiscSettings(ctx)
	if err != nil {
		t.Fatalf("MiscSettings: %v", err)
	}
	if ms.IndexSleepDurationSeconds != 1800 {
		t.Fatalf("expected seeded value 1800, got %d", ms.IndexSleepDurationSeconds)
	}
}

func TestInsertAndQuerySongs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	songs := []NewSong{
		{Path: "/music/collection/Khemmis/Hunted/01.mp3", Parent: "/music/collection/Khemmis/Hunted",
			Title: strp("Above the Water"), Album: strp("Hunted"), Artist: strp("Khemmis"),
			TrackNumber: intp(1)},
		{Path: "/music/collection/Khemmis/Hunted/02.mp3", Parent: "/music/collection/Khemmis/Hunted",
			Title: strp("Three Gates"), Album: strp("Hunted"), Artist: strp("Khemmis"),
			TrackNumber: intp(2)},
	}
	if err := s.InsertSongs(ctx, songs); err != nil {
		t.Fatalf("InsertSongs: %v", err)
	}

	got, err := s.SongsByParent(ctx, "/music/collection/Khemmis/Hunted")
	if err != nil {
		t.Fatalf("SongsByParent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(got))
	}
	if got[0].Path != songs[0].Path {
		t.Fatalf("expected ordered by path, got %q first", got[0].Path)
	}

	one, err := s.GetSongByPath(ctx, songs[0].Path)
	if err != nil {
		t.Fatalf("GetSongByPath: %v", err)
	}
	if one.Title == nil || *one.Title != "Above the Water" {
		t.Fatalf("unexpected title: %v", one.Title)
	}
}

func TestInsertAndQueryDirectories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	root := "/music/collection"
	dirs := []NewDirectory{
		{Path: root, Parent: nil, DateAdded: 100},
		{Path: root + "/Khemmis", Parent: strp(root), DateAdded: 100},
		{Path: root + "/Khemmis/Hunted", Parent: strp(root + "/Khemmis"),
			Artist: strp("Khemmis"), Album: strp("Hunted"), Year: intp(2016), DateAdded: 200},
	}
	if err := s.InsertDirectories(ctx, dirs); err != nil {
		t.Fatalf("InsertDirectories: %v", err)
	}

	roots, err := s.DirectoriesByParent(ctx, nil)
	if err != nil {
		t.Fatalf("DirectoriesByParent(nil): %v", err)
	}
	if len(roots) != 1 || roots[0].Path != root {
		t.Fatalf("expected single mount root, got %+v", roots)
	}

	children, err := s.DirectoriesByParent(ctx, strp(root))
	if err != nil {
		t.Fatalf("DirectoriesByParent(root): %v", err)
	}
	if len(children) != 1 || children[0].Path != root+"/Khemmis" {
		t.Fatalf("unexpected children: %+v", children)
	}

	recent, err := s.RecentAlbums(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAlbums: %v", err)
	}
	if len(recent) != 1 || recent[0].Path != root+"/Khemmis/Hunted" {
		t.Fatalf("expected single album dir, got %+v", recent)
	}
}

func TestDeleteByPathChunked(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var songs []NewSong
	var paths []string
	for i := 0; i < 1200; i++ {
		p := filepath.Join("/music/collection/bulk", strconv.Itoa(i)+".mp3")
		songs = append(songs, NewSong{Path: p, Parent: "/music/collection/bulk"})
		paths = append(paths, p)
	}
	if err := s.InsertSongs(ctx, songs); err != nil {
		t.Fatalf("InsertSongs: %v", err)
	}

	if err := s.DeleteSongsByPath(ctx, paths); err != nil {
		t.Fatalf("DeleteSongsByPath: %v", err)
	}

	remaining, err := s.AllSongPaths(ctx)
	if err != nil {
		t.Fatalf("AllSongPaths: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected all rows deleted, got %d remaining", len(remaining))
	}
}

func TestSearchExcludesMatchedParent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	root := "/music/collection"
	dirs := []NewDirectory{
		{Path: root + "/Tobokegao", Parent: strp(root), DateAdded: 1},
		{Path: root + "/Tobokegao/Picnic", Parent: strp(root + "/Tobokegao"),
			Artist: strp("Tobokegao"), Album: strp("Picnic"), DateAdded: 2},
	}
	if err := s.InsertDirectories(ctx, dirs); err != nil {
		t.Fatalf("InsertDirectories: %v", err)
	}
	songs := []NewSong{
		{Path: root + "/Tobokegao/Picnic/01.mp3", Parent: root + "/Tobokegao/Picnic",
			Title: strp("Picnic Song")},
	}
	if err := s.InsertSongs(ctx, songs); err != nil {
		t.Fatalf("InsertSongs: %v", err)
	}

	matchedDirs, err := s.SearchDirectories(ctx, "Picnic")
	if err != nil {
		t.Fatalf("SearchDirectories: %v", err)
	}
	if len(matchedDirs) != 1 || matchedDirs[0].Path != root+"/Tobokegao/Picnic" {
		t.Fatalf("unexpected dir matches: %+v", matchedDirs)
	}

	matchedSongs, err := s.SearchSongs(ctx, "Picnic")
	if err != nil {
		t.Fatalf("SearchSongs: %v", err)
	}
	if len(matchedSongs) != 0 {
		t.Fatalf("expected the song under the matched directory to be excluded, got %d", len(matchedSongs))
	}
}
