// Package index walks the virtual file system and reconciles its state
// against the catalog: Builder performs the populate half (scanning real
// directories and producing song/directory rows), Reconciler performs the
// clean half (dropping rows whose real file vanished or fell outside every
// mount).
package index

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/metadata"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

var log = logrus.WithField("component", "index")

// insertBufferSize bounds how many rows accumulate before a flush, matching
// the original INDEX_BUILDING_INSERT_BUFFER_SIZE constant.
const insertBufferSize = 1000

// Builder walks mount-point trees and pushes song/directory rows into the
// catalog, buffering inserts into bounded-size transactions.
type Builder struct {
	store   catalog.Store
	reader  metadata.Reader
	artwork *regexp.Regexp

	newSongs       []catalog.NewSong
	newDirectories []catalog.NewDirectory
}

// NewBuilder constructs a Builder. artworkPattern is compiled from the
// catalog's live misc_settings row, not from the config file seed, once the
// catalog has been opened once (SPEC_FULL §9).
func NewBuilder(store catalog.Store, reader metadata.Reader, artworkPattern string) (*Builder, error) {
	re, err := regexp.Compile(artworkPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid album art pattern %q", artworkPattern)
	}
	return &Builder{
		store:          store,
		reader:         reader,
		artwork:        re,
		newSongs:       make([]catalog.NewSong, 0, insertBufferSize),
		newDirectories: make([]catalog.NewDirectory, 0, insertBufferSize),
	}, nil
}

// Populate walks every mount point's real root and inserts the songs and
// directories found beneath it, then flushes any remaining buffered rows.
func (b *Builder) Populate(ctx context.Context, mounts []vfs.MountPoint) error {
	for _, mp := range mounts {
		if err := b.populateDirectory(ctx, nil, mp.Real); err != nil {
			return errors.Wrapf(err, "populating mount %q", mp.Name)
		}
	}
	if err := b.flushSongs(ctx); err != nil {
		return err
	}
	return b.flushDirectories(ctx)
}

func (b *Builder) populateDirectory(ctx context.Context, parent *string, path string) error {
	artwork := b.findArtwork(path)

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %q", path)
	}
	createdAt := created(info)

	var (
		directoryAlbum, directoryArtist *string
		directoryYear                   *int
		inconsistentAlbum              bool
		inconsistentYear                bool
		inconsistentArtist              bool
	)

	var subdirectories []string

	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.Wrapf(err, "reading directory %q", path)
	}

	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())

		isDir, err := entryIsDir(entry, entryPath)
		if err != nil {
			log.WithError(err).Warnf("entry read error within %q, stopping scan of this directory", path)
			break
		}
		if isDir {
			subdirectories = append(subdirectories, entryPath)
			continue
		}

		tags, err := b.reader(entryPath)
		if err != nil {
			continue
		}

		if tags.Year != nil {
			inconsistentYear = inconsistentYear || (directoryYear != nil && *directoryYear != *tags.Year)
			directoryYear = tags.Year
		}
		if tags.Album != nil {
			inconsistentAlbum = inconsistentAlbum || (directoryAlbum != nil && *directoryAlbum != *tags.Album)
			directoryAlbum = tags.Album
		}
		if effArtist := tags.EffectiveArtist(); effArtist != nil {
			inconsistentArtist = inconsistentArtist || (directoryArtist != nil && *directoryArtist != *effArtist)
			directoryArtist = effArtist
		}

		song := catalog.NewSong{
			Path:        entryPath,
			Parent:      path,
			TrackNumber: tags.TrackNumber,
			DiscNumber:  tags.DiscNumber,
			Title:       tags.Title,
			Artist:      tags.Artist,
			AlbumArtist: tags.AlbumArtist,
			Year:        tags.Year,
			Album:       tags.Album,
			Artwork:     artwork,
			Duration:    tags.Duration,
		}
		if err := b.pushSong(ctx, song); err != nil {
			return err
		}
	}

	if inconsistentYear {
		directoryYear = nil
	}
	if inconsistentAlbum {
		directoryAlbum = nil
	}
	if inconsistentArtist {
		directoryArtist = nil
	}

	dir := catalog.NewDirectory{
		Path:      path,
		Parent:    parent,
		Artist:    directoryArtist,
		Year:      directoryYear,
		Album:     directoryAlbum,
		Artwork:   artwork,
		DateAdded: createdAt,
	}
	if err := b.pushDirectory(ctx, dir); err != nil {
		return err
	}

	for _, sub := range subdirectories {
		p := path
		if err := b.populateDirectory(ctx, &p, sub); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) findArtwork(dir string) *string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if b.artwork.MatchString(entry.Name()) {
			p := filepath.Join(dir, entry.Name())
			return &p
		}
	}
	return nil
}

func (b *Builder) pushSong(ctx context.Context, song catalog.NewSong) error {
	if len(b.newSongs) >= cap(b.newSongs) {
		if err := b.flushSongs(ctx); err != nil {
			return err
		}
	}
	b.newSongs = append(b.newSongs, song)
	return nil
}

func (b *Builder) pushDirectory(ctx context.Context, dir catalog.NewDirectory) error {
	if len(b.newDirectories) >= cap(b.newDirectories) {
		if err := b.flushDirectories(ctx); err != nil {
			return err
		}
	}
	b.newDirectories = append(b.newDirectories, dir)
	return nil
}

func (b *Builder) flushSongs(ctx context.Context) error {
	if len(b.newSongs) == 0 {
		return nil
	}
	if err := b.store.InsertSongs(ctx, b.newSongs); err != nil {
		return errors.Wrap(err, "flushing song buffer")
	}
	b.newSongs = b.newSongs[:0]
	return nil
}

func (b *Builder) flushDirectories(ctx context.Context) error {
	if len(b.newDirectories) == 0 {
		return nil
	}
	if err := b.store.InsertDirectories(ctx, b.newDirectories); err != nil {
		return errors.Wrap(err, "flushing directory buffer")
	}
	b.newDirectories = b.newDirectories[:0]
	return nil
}

func entryIsDir(entry os.DirEntry, path string) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func created(info os.FileInfo) int {
	return int(info.ModTime().Unix())
}
