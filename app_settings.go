package main

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/config"
)

// GetSettings returns a copy of the current persisted tile-core settings.
func (a *App) GetSettings() (*config.TileCoreSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings validates and persists new tile-core settings, and updates
// every layer's scale-fallback order, soft tile cap and grid-debug flag to
// match. The running pixmap cache keeps the byte limit it was created with;
// a new CacheMaxBytes takes effect when NewApp next builds the cache.
func (a *App) SaveSettings(settings *config.TileCoreSettings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if settings.CacheMaxBytes <= 0 {
		return fmt.Errorf("cacheMaxBytes must be positive")
	}
	if settings.SoftTileCap <= 0 {
		return fmt.Errorf("softTileCap must be positive")
	}

	if err := config.SaveTileCoreSettings(settings); err != nil {
		return err
	}
	a.settings = settings

	for _, l := range a.layers {
		l.painter.Config.SmallerFirst = settings.ScaleFallbackSmallerFirst
		l.painter.Config.SoftTileCap = settings.SoftTileCap
		l.painter.Config.GridDebug = settings.GridDebug
	}
	return nil
}

// GetSettingsPath returns the on-disk path layers.json is persisted to.
func (a *App) GetSettingsPath() string {
	return config.TileCoreSettingsPath()
}

// AddLayer registers a new map layer and persists it.
func (a *App) AddLayer(cfg config.LayerConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.layers[cfg.MapTypeID]; exists {
		return fmt.Errorf("layer with map type %d already registered", cfg.MapTypeID)
	}
	a.addLayerLocked(cfg)
	a.settings.UpsertLayer(cfg)
	return config.SaveTileCoreSettings(a.settings)
}

// RemoveLayer tears down a layer's downloader/painter and forgets its
// persisted configuration. In-flight jobs have their LayerGeneration
// destroyed so late callbacks are dropped instead of racing a freed layer.
func (a *App) RemoveLayer(mapTypeID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.layers[mapTypeID]
	if !ok {
		return fmt.Errorf("no layer registered for map type %d", mapTypeID)
	}
	l.generation.Destroy()
	delete(a.layers, mapTypeID)

	remaining := make([]config.LayerConfig, 0, len(a.settings.Layers))
	for _, lc := range a.settings.Layers {
		if lc.MapTypeID != mapTypeID {
			remaining = append(remaining, lc)
		}
	}
	a.settings.Layers = remaining
	return config.SaveTileCoreSettings(a.settings)
}

// ShouldShowLicense reports whether mapTypeID's license reminder needs to
// be shown to the user this session.
func (a *App) ShouldShowLicense(mapTypeID int, fromProjectLoad bool) bool {
	return a.seenLicenses.ShouldShow(mapTypeID, fromProjectLoad)
}

// AcknowledgeLicense records mapTypeID's license as seen, persisting the
// decision so the reminder never shows again for that source.
func (a *App) AcknowledgeLicense(mapTypeID int) error {
	return a.seenLicenses.MarkSeen(mapTypeID)
}
