package catalogsvc

import (
	"context"

	"github.com/pkg/errors"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
)

// ErrNotFound is returned when a virtual path cannot be resolved to a
// catalog row, e.g. GetSong being asked for a path never indexed.
var ErrNotFound = errors.New("not found")

// virtualizeSong rewrites a real-path Song into its virtual-path form.
// A song whose real path no longer falls under any mount is dropped rather
// than surfaced half-translated, matching the reconciler's eventual
// cleanup of the same row.
func (s *Service) virtualizeSong(song catalog.Song) (catalog.Song, bool) {
	vp, err := s.Mapper.RealToVirtual(song.Path)
	if err != nil {
		return catalog.Song{}, false
	}
	song.Path = vp
	if song.Artwork != nil {
		if avp, err := s.Mapper.RealToVirtual(*song.Artwork); err == nil {
			song.Artwork = &avp
		} else {
			song.Artwork = nil
		}
	}
	return song, true
}

func (s *Service) virtualizeDirectory(dir catalog.Directory) (catalog.Directory, bool) {
	vp, err := s.Mapper.RealToVirtual(dir.Path)
	if err != nil {
		return catalog.Directory{}, false
	}
	dir.Path = vp
	if dir.Artwork != nil {
		if avp, err := s.Mapper.RealToVirtual(*dir.Artwork); err == nil {
			dir.Artwork = &avp
		} else {
			dir.Artwork = nil
		}
	}
	return dir, true
}

func (s *Service) virtualizeSongs(rows []catalog.Song) []catalog.Song {
	out := make([]catalog.Song, 0, len(rows))
	for _, r := range rows {
		if v, ok := s.virtualizeSong(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *Service) virtualizeDirectories(rows []catalog.Directory) []catalog.Directory {
	out := make([]catalog.Directory, 0, len(rows))
	for _, r := range rows {
		if v, ok := s.virtualizeDirectory(r); ok {
			out = append(out, v)
		}
	}
	return out
}

// Browse lists the immediate children of a virtual path: for the root
// ("") it returns every mount-root directory; for any other path it
// returns that directory's subdirectories followed by its songs.
func (s *Service) Browse(ctx context.Context, virtualPath string) ([]catalog.CollectionFile, error) {
	var out []catalog.CollectionFile

	if virtualPath == "" {
		dirs, err := s.Store.DirectoriesByParent(ctx, nil)
		if err != nil {
			return nil, errors.Wrap(err, "loading mount-root directories")
		}
		for _, d := range s.virtualizeDirectories(dirs) {
			d := d
			out = append(out, catalog.CollectionFile{Directory: &d})
		}
		return out, nil
	}

	realPath, err := s.Mapper.VirtualToReal(virtualPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", virtualPath)
	}

	dirs, err := s.Store.DirectoriesByParent(ctx, &realPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading subdirectories")
	}
	for _, d := range s.virtualizeDirectories(dirs) {
		d := d
		out = append(out, catalog.CollectionFile{Directory: &d})
	}

	songs, err := s.Store.SongsByParent(ctx, realPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading songs")
	}
	for _, sg := range s.virtualizeSongs(songs) {
		sg := sg
		out = append(out, catalog.CollectionFile{Song: &sg})
	}

	return out, nil
}

// Flatten returns every song beneath a virtual path (or every song in the
// catalog, for the empty path), ordered by real path.
func (s *Service) Flatten(ctx context.Context, virtualPath string) ([]catalog.Song, error) {
	if virtualPath == "" {
		songs, err := s.Store.AllSongs(ctx)
		if err != nil {
			return nil, err
		}
		return s.virtualizeSongs(songs), nil
	}

	realPath, err := s.Mapper.VirtualToReal(virtualPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", virtualPath)
	}
	songs, err := s.Store.SongsUnderPrefix(ctx, realPath)
	if err != nil {
		return nil, err
	}
	return s.virtualizeSongs(songs), nil
}

// RandomAlbums returns up to n albums (directories with a non-null album)
// in random order.
func (s *Service) RandomAlbums(ctx context.Context, n int) ([]catalog.Directory, error) {
	dirs, err := s.Store.RandomAlbums(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.virtualizeDirectories(dirs), nil
}

// RecentAlbums returns up to n albums ordered by date added, most recent
// first.
func (s *Service) RecentAlbums(ctx context.Context, n int) ([]catalog.Directory, error) {
	dirs, err := s.Store.RecentAlbums(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.virtualizeDirectories(dirs), nil
}

// Search matches query against directory/song paths and tag fields,
// excluding any row whose parent already matches (so a whole matched
// album isn't joined by its own songs a second time).
func (s *Service) Search(ctx context.Context, query string) ([]catalog.CollectionFile, error) {
	var out []catalog.CollectionFile

	dirs, err := s.Store.SearchDirectories(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "searching directories")
	}
	for _, d := range s.virtualizeDirectories(dirs) {
		d := d
		out = append(out, catalog.CollectionFile{Directory: &d})
	}

	songs, err := s.Store.SearchSongs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "searching songs")
	}
	for _, sg := range s.virtualizeSongs(songs) {
		sg := sg
		out = append(out, catalog.CollectionFile{Song: &sg})
	}

	return out, nil
}

// GetSong resolves a single virtual song path to its catalog row.
func (s *Service) GetSong(ctx context.Context, virtualPath string) (catalog.Song, error) {
	realPath, err := s.Mapper.VirtualToReal(virtualPath)
	if err != nil {
		return catalog.Song{}, errors.Wrapf(err, "resolving %q", virtualPath)
	}
	song, err := s.Store.GetSongByPath(ctx, realPath)
	if err != nil {
		return catalog.Song{}, errors.Wrapf(ErrNotFound, "song at %q: %v", virtualPath, err)
	}
	v, ok := s.virtualizeSong(song)
	if !ok {
		return catalog.Song{}, errors.Wrapf(ErrNotFound, "song at %q has no VFS mapping", virtualPath)
	}
	return v, nil
}
