package index

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/metadata"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

// Update runs one full index cycle: clean first, then populate, so that
// rows for files moved or deleted during the previous cycle never shadow
// freshly discovered ones.
func Update(ctx context.Context, store catalog.Store, mapper *vfs.Mapper, reader metadata.Reader) error {
	start := time.Now()
	log.Info("beginning library index update")

	if err := NewReconciler(store, mapper).Clean(ctx); err != nil {
		return errors.Wrap(err, "clean phase")
	}

	settings, err := store.MiscSettings(ctx)
	if err != nil {
		return errors.Wrap(err, "loading misc settings")
	}

	builder, err := NewBuilder(store, reader, settings.IndexAlbumArtPattern)
	if err != nil {
		return errors.Wrap(err, "constructing index builder")
	}

	if err := builder.Populate(ctx, mapper.MountPoints()); err != nil {
		return errors.Wrap(err, "populate phase")
	}

	log.WithField("elapsed", time.Since(start)).Info("library index update finished")
	return nil
}
