package config

import (
	"os"
	"path/filepath"
	goruntime "runtime"
)

// DefaultTileCacheDir returns the OS-specific tile cache directory, the
// tile-core counterpart to TileCoreConfigDir, following the same per-OS
// fallback the teacher's internal/cache/config.go GetCacheDir used.
func DefaultTileCacheDir() string {
	homeDir, _ := os.UserHomeDir()

	switch goruntime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "tilecore", "tiles")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "tilecore", "cache", "tiles")
	default:
		cacheHome := os.Getenv("XDG_CACHE_HOME")
		if cacheHome == "" {
			cacheHome = filepath.Join(homeDir, ".cache")
		}
		return filepath.Join(cacheHome, "tilecore", "tiles")
	}
}
