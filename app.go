package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"sync"

	"github.com/posthog/posthog-go"

	"github.com/walkthru-earth/tilecore/internal/config"
	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/downloader"
	"github.com/walkthru-earth/tilecore/internal/mapsource"
	"github.com/walkthru-earth/tilecore/internal/painter"
	"github.com/walkthru-earth/tilecore/internal/pixmapcache"
	"github.com/walkthru-earth/tilecore/internal/projection"
)

// Linker flags, set at build time.
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// layer bundles the draw and download machinery for one MapSource so the
// App can route a Wails call to the right Painter/Downloader pair by
// map_type_id, the same identity key the original used to look up a
// VikingMapsLayer.
type layer struct {
	source     mapsource.Source
	painter    *painter.Painter
	downloader *downloader.Downloader
	generation downloader.LayerGeneration
	jobs       map[string]*downloader.Job
}

// App is the Wails-bound application struct. Its methods are the frontend's
// entire surface onto the tile core: drawing a viewport, reporting cache
// and download state, and managing per-layer configuration.
type App struct {
	ctx context.Context

	mu       sync.Mutex
	devMode  bool
	phClient posthog.Client

	cache        *pixmapcache.Cache
	cacheDir     string
	seenLicenses *mapsource.SeenLicenses
	settings     *config.TileCoreSettings

	layers map[int]*layer
}

// NewApp creates a new App, loading persisted layer configuration and
// preparing the shared pixmap cache every layer's Painter draws through.
func NewApp() *App {
	settings, err := config.LoadTileCoreSettings()
	if err != nil {
		log.Printf("Failed to load tile-core settings, using defaults: %v", err)
		settings = config.DefaultTileCoreSettings()
	}

	cacheDir := config.DefaultTileCacheDir()
	licensePath := config.TileCoreSettingsPath() + ".licenses"
	seen, err := mapsource.LoadSeenLicenses(licensePath)
	if err != nil {
		log.Printf("Failed to load seen-license set at %s, resetting: %v", licensePath, err)
		_ = diskstore.WriteAtomic(licensePath, []byte("[]"))
		seen, err = mapsource.LoadSeenLicenses(licensePath)
		if err != nil {
			log.Printf("Still failed to load seen-license set after reset: %v", err)
		}
	}

	a := &App{
		cache:        pixmapcache.New(settings.CacheMaxBytes),
		cacheDir:     cacheDir,
		seenLicenses: seen,
		settings:     settings,
		layers:       make(map[int]*layer),
	}

	for _, lc := range settings.Layers {
		a.addLayerLocked(lc)
	}
	if len(settings.Layers) == 0 {
		a.addLayerLocked(defaultOSMLayerConfig())
	}

	return a
}

// defaultOSMLayerConfig seeds a single OpenStreetMap-style layer so the
// viewport has something to draw against on first run.
func defaultOSMLayerConfig() config.LayerConfig {
	return config.LayerConfig{
		MapTypeID:           1,
		Label:               "osm",
		Alpha:               255,
		AutodownloadEnabled: true,
		RedownloadMode:      "none",
	}
}

func (a *App) addLayerLocked(lc config.LayerConfig) {
	src := mapsource.NewSlippy(
		mapsource.Identity{MapTypeID: lc.MapTypeID, Label: lc.Label},
		mapsource.Geometry{TileSizeX: 256, TileSizeY: 256, ZMin: 0, ZMax: 19, Drawmode: projection.Mercator},
		"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		false, "png", "(c) OpenStreetMap contributors", false,
	)

	cacheDir := lc.CacheDir
	if cacheDir == "" {
		cacheDir = a.cacheDir
	}

	dl := downloader.New(cacheDir, diskstore.OSM, a.cache, 8, 2)
	p := painter.New(a.cache, cacheDir, diskstore.OSM, src)
	p.Alpha = uint8(lc.Alpha)
	p.Downloader = dl
	p.AutodownloadEnabled = lc.AutodownloadEnabled

	l := &layer{source: src, painter: p, downloader: dl, jobs: make(map[string]*downloader.Job)}
	p.LayerRef = l.generation.Ref()
	a.layers[lc.MapTypeID] = l
}

// startup is called by Wails once the frontend is ready; it is the only
// place the Wails context becomes available.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if PostHogKey != "" {
		client, err := posthog.NewWithConfig(PostHogKey, posthog.Config{Endpoint: PostHogHost})
		if err != nil {
			log.Printf("PostHog init failed, telemetry disabled: %v", err)
		} else {
			a.phClient = client
		}
	}
	log.Printf("tilecore started, version=%s cacheDir=%s", AppVersion, a.cacheDir)
}

// shutdown persists settings and flushes telemetry.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	settings := a.settings
	a.mu.Unlock()
	if err := config.SaveTileCoreSettings(settings); err != nil {
		log.Printf("Failed to save tile-core settings on shutdown: %v", err)
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
}

func (a *App) track(event string, props map[string]interface{}) {
	if a.phClient == nil {
		return
	}
	_ = a.phClient.Enqueue(posthog.Capture{DistinctId: "tilecore-desktop", Event: event, Properties: props})
}

// ViewportRequest is the frontend's description of the visible map area.
type ViewportRequest struct {
	NorthLat      float64 `json:"northLat"`
	WestLon       float64 `json:"westLon"`
	SouthLat      float64 `json:"southLat"`
	EastLon       float64 `json:"eastLon"`
	XMPP          float64 `json:"xmpp"`
	YMPP          float64 `json:"ympp"`
	WidthPx       int     `json:"widthPx"`
	HeightPx      int     `json:"heightPx"`
	PanInProgress bool    `json:"panInProgress"`
}

// DrawResult is a JSON-friendly rendering of painter.Result for the
// frontend: the composited canvas as a base64 PNG data URL.
type DrawResult struct {
	ImageDataURL  string   `json:"imageDataUrl,omitempty"`
	Mode          string   `json:"mode"`
	StatusMessage string   `json:"statusMessage,omitempty"`
	Copyright     []string `json:"copyright,omitempty"`
	TileCount     int      `json:"tileCount"`
}

// DrawViewport renders one viewport against the named layer and returns the
// composited canvas as a PNG data URL the frontend can assign directly to
// an <img>.
func (a *App) DrawViewport(mapTypeID int, req ViewportRequest) (*DrawResult, error) {
	a.mu.Lock()
	l, ok := a.layers[mapTypeID]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("app: no layer registered for map type %d", mapTypeID)
	}

	vp := painter.Viewport{
		NW:            projectionLatLon(req.NorthLat, req.WestLon),
		SE:            projectionLatLon(req.SouthLat, req.EastLon),
		XMPP:          req.XMPP,
		YMPP:          req.YMPP,
		WidthPx:       req.WidthPx,
		HeightPx:      req.HeightPx,
		PanInProgress: req.PanInProgress,
	}

	res, err := l.painter.Draw(vp)
	if err != nil {
		return nil, err
	}
	a.track("viewport_drawn", map[string]interface{}{
		"mapTypeId": mapTypeID, "mode": modeName(res.Mode), "tileCount": res.TileCount,
	})

	out := &DrawResult{
		Mode:          modeName(res.Mode),
		StatusMessage: res.StatusMessage,
		Copyright:     res.Copyright,
		TileCount:     res.TileCount,
	}
	if res.Image != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image); err != nil {
			return nil, fmt.Errorf("app: encode viewport png: %w", err)
		}
		out.ImageDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	return out, nil
}

func projectionLatLon(lat, lon float64) projection.LatLon {
	return projection.LatLon{Lat: lat, Lon: lon}
}

func modeName(m painter.Mode) string {
	switch m {
	case painter.ModeNormal:
		return "normal"
	case painter.ModeExistenceOnly:
		return "existenceOnly"
	default:
		return "skip"
	}
}
