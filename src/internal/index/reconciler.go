package index

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

// Reconciler drops catalog rows whose real file has disappeared, or that
// now fall outside every configured mount.
type Reconciler struct {
	store  catalog.Store
	mapper *vfs.Mapper
}

// NewReconciler constructs a Reconciler.
func NewReconciler(store catalog.Store, mapper *vfs.Mapper) *Reconciler {
	return &Reconciler{store: store, mapper: mapper}
}

// Clean performs the two-pass sweep: songs first, then directories. Each
// pass loads every path, filters to those that are gone or unmappable, and
// deletes them (the Store implementation chunks the delete internally).
func (r *Reconciler) Clean(ctx context.Context) error {
	if err := r.cleanSongs(ctx); err != nil {
		return errors.Wrap(err, "cleaning songs")
	}
	return r.cleanDirectories(ctx)
}

func (r *Reconciler) cleanSongs(ctx context.Context) error {
	paths, err := r.store.AllSongPaths(ctx)
	if err != nil {
		return err
	}
	missing := r.missingPaths(paths)
	if len(missing) == 0 {
		return nil
	}
	return r.store.DeleteSongsByPath(ctx, missing)
}

func (r *Reconciler) cleanDirectories(ctx context.Context) error {
	paths, err := r.store.AllDirectoryPaths(ctx)
	if err != nil {
		return err
	}
	missing := r.missingPaths(paths)
	if len(missing) == 0 {
		return nil
	}
	return r.store.DeleteDirectoriesByPath(ctx, missing)
}

func (r *Reconciler) missingPaths(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if !exists(p) {
			missing = append(missing, p)
			continue
		}
		if _, err := r.mapper.RealToVirtual(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
