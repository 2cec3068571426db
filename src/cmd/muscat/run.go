package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/catalogsvc"
	"gitlab.com/mipimipi/muscat/src/internal/config"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the muscat indexing and catalog service",
	Long:  "Load the muscat configuration, open the catalog and run the index update loop",
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(); err != nil {
			fmt.Printf("muscat cannot be run: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg.LogDir, cfg.LogLevel); err != nil {
		return err
	}

	mounts := make([]vfs.MountPoint, len(cfg.Mounts))
	for i, m := range cfg.Mounts {
		mounts[i] = vfs.MountPoint{Name: m.Name, Real: m.Real}
	}
	mapper := vfs.New(mounts)

	store, err := catalog.Open(cfg.CatalogPath, catalog.MiscSettings{
		IndexSleepDurationSeconds: cfg.Seed.IndexSleepDurationSecs,
		IndexAlbumArtPattern:      cfg.Seed.AlbumArtPattern,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	svc := catalogsvc.New(store, mapper, nil)
	return svc.Run(context.Background())
}
