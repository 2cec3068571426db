// Package config loads and validates the muscat configuration file.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// UserName is the name of the muscat system user; the log file is chowned to
// it on first creation, mirroring muserv's convention.
const UserName = "muscat"

// ValueKey represents value keys for contexts.
type ValueKey string

// KeyCfg is the context key under which the loaded Cfg is stored.
const KeyCfg ValueKey = "cfg"

// CfgDir is the directory where the muscat configuration is stored.
const CfgDir = "/etc/muscat"

// cfgFilepath is the path of the muscat configuration file.
const cfgFilepath = CfgDir + "/config.json"

// Mount is one configured (virtual name, real root) pair.
type Mount struct {
	Name string `json:"name"`
	Real string `json:"real_root"`
}

// Cfg stores the data from the muscat configuration file.
type Cfg struct {
	Mounts      []Mount `json:"mounts"`
	CatalogPath string  `json:"catalog_path"`
	LogDir      string  `json:"log_dir"`
	LogLevel    string  `json:"log_level"`

	// Seed holds the initial values written into misc_settings the first
	// time the catalog is opened. After that, the catalog itself is the
	// live source of truth (SPEC_FULL §9): these fields are never re-read
	// from the config file on subsequent scans.
	Seed struct {
		AlbumArtPattern        string `json:"index_album_art_pattern"`
		IndexSleepDurationSecs int    `json:"index_sleep_duration_seconds"`
	} `json:"seed"`
}

// Load reads the configuration file and returns the muscat config.
func Load() (cfg Cfg, err error) {
	cfgFile, err := os.ReadFile(cfgFilepath)
	if err != nil {
		return Cfg{}, errors.Wrapf(err, "config file %q couldn't be read", cfgFilepath)
	}
	if err = json.Unmarshal(cfgFile, &cfg); err != nil {
		return Cfg{}, errors.Wrapf(err, "config file %q couldn't be parsed", cfgFilepath)
	}
	return
}

// Validate checks if the configuration is complete and correct.
func (cfg *Cfg) Validate() error {
	if len(cfg.Mounts) == 0 {
		return errors.New("at least one mount must be configured")
	}
	seen := make(map[string]bool, len(cfg.Mounts))
	for _, mp := range cfg.Mounts {
		if mp.Name == "" {
			return errors.New("a mount with an empty name was found")
		}
		if mp.Real == "" {
			return errors.Errorf("mount %q has no real_root", mp.Name)
		}
		if seen[mp.Name] {
			return errors.Errorf("duplicate mount name %q", mp.Name)
		}
		seen[mp.Name] = true
		exists, err := dirExists(mp.Real)
		if err != nil {
			return errors.Wrapf(err, "cannot check mount %q", mp.Name)
		}
		if !exists {
			return errors.Errorf("mount %q real_root %q does not exist", mp.Name, mp.Real)
		}
	}

	if cfg.CatalogPath == "" {
		return errors.New("catalog_path must not be empty")
	}
	if cfg.LogDir == "" {
		return errors.New("log_dir must not be empty")
	}
	exists, err := dirExists(cfg.LogDir)
	if err != nil {
		return errors.Wrap(err, "cannot check log_dir")
	}
	if !exists {
		return errors.Errorf("log_dir %q does not exist", cfg.LogDir)
	}

	if cfg.Seed.AlbumArtPattern == "" {
		cfg.Seed.AlbumArtPattern = `(?i)^(cover|folder|artwork)\.(jpg|jpeg|png)$`
	}
	if cfg.Seed.IndexSleepDurationSecs <= 0 {
		cfg.Seed.IndexSleepDurationSecs = 1800
	}

	return nil
}

// Test reads the configuration file and checks it for completeness and
// consistency; used by the "muscat test" CLI sub-command.
func Test() error {
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "the muscat configuration file couldn't be read")
	}
	return cfg.Validate()
}

func dirExists(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
