package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
)

// LayerConfig is the persisted per-layer tunables a Painter/Downloader pair
// is built from: which MapSource, where its cache lives, and its draw/
// download policy.
type LayerConfig struct {
	MapTypeID           int    `json:"mapTypeId"`
	Label               string `json:"label"`
	CacheDir            string `json:"cacheDir,omitempty"`
	Alpha               int    `json:"alpha"`
	AutodownloadEnabled bool   `json:"autodownloadEnabled"`
	OnlyMissing         bool   `json:"onlyMissing"`
	RedownloadMode      string `json:"redownloadMode"` // "none", "bad", "conditional", "all", "orRefresh"
}

// TileCoreSettings is the persisted ambient configuration for the tile
// acquisition/caching/rendering core, stored in layers.json.
type TileCoreSettings struct {
	// ScaleFallbackSmallerFirst is the "map.scale_fallback.smaller_first"
	// setting: true tries a coarser (zoomed-out) tile before a finer one
	// when the exact zoom is missing.
	ScaleFallbackSmallerFirst bool `json:"map.scale_fallback.smaller_first"`
	CacheMaxBytes             int64         `json:"cacheMaxBytes"`
	SoftTileCap               int           `json:"softTileCap"`
	GridDebug                 bool          `json:"gridDebug"`
	Layers                    []LayerConfig `json:"layers"`
}

// DefaultTileCoreSettings returns the documented defaults.
func DefaultTileCoreSettings() *TileCoreSettings {
	return &TileCoreSettings{
		ScaleFallbackSmallerFirst: true,
		CacheMaxBytes:             16 * 1024 * 1024,
		SoftTileCap:               2048,
		Layers:                    []LayerConfig{},
	}
}

// TileCoreConfigDir returns the OS-specific configuration directory for
// tile-core settings, following the same per-OS fallback GetCacheDir uses
// for the tile cache directory.
func TileCoreConfigDir() string {
	homeDir, _ := os.UserHomeDir()

	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "tilecore")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "tilecore")
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(homeDir, ".config")
		}
		return filepath.Join(configHome, "tilecore")
	}
}

// TileCoreSettingsPath returns the path layers.json is read from and
// written to.
func TileCoreSettingsPath() string {
	return filepath.Join(TileCoreConfigDir(), "layers.json")
}

// LoadTileCoreSettings reads layers.json, treating a missing file as
// defaults.
func LoadTileCoreSettings() (*TileCoreSettings, error) {
	path := TileCoreSettingsPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultTileCoreSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	settings := DefaultTileCoreSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return settings, nil
}

// SaveTileCoreSettings writes settings to layers.json via the same
// temp-file-then-rename pattern used elsewhere in this repo for tile and
// license persistence.
func SaveTileCoreSettings(settings *TileCoreSettings) error {
	path := TileCoreSettingsPath()
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal layer settings: %w", err)
	}
	return diskstore.WriteAtomic(path, data)
}

// LayerByMapTypeID returns the stored config for mapTypeID, or, if none
// exists yet, a LayerConfig with only MapTypeID and Alpha=255 set
// (AutodownloadEnabled=false).
func (s *TileCoreSettings) LayerByMapTypeID(mapTypeID int) LayerConfig {
	for _, l := range s.Layers {
		if l.MapTypeID == mapTypeID {
			return l
		}
	}
	return LayerConfig{MapTypeID: mapTypeID, Alpha: 255}
}

// UpsertLayer replaces or appends cfg by MapTypeID.
func (s *TileCoreSettings) UpsertLayer(cfg LayerConfig) {
	for i, l := range s.Layers {
		if l.MapTypeID == cfg.MapTypeID {
			s.Layers[i] = cfg
			return
		}
	}
	s.Layers = append(s.Layers, cfg)
}
