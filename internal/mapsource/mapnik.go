package mapsource

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// RenderFunc renders tile into an image locally, at the given pixel size.
// The production composition root wires this to an external Mapnik
// process; tests supply a fake.
type RenderFunc func(tile tilecoord.Coord, widthPx, heightPx int) (image.Image, error)

// Mapnik is a locally-rendered source: instead of fetching bytes from a
// server it invokes RenderFunc and writes the result to the local disk
// cache, deduplicating concurrent renders of the same tile the way the
// original's process-wide in-flight-render set does.
type Mapnik struct {
	Ident  Identity
	Geom   Geometry
	Ext    string
	Render RenderFunc

	StyleCSSPath string // optional: a source-specific style file
	StyleXMLPath string // compiled style the renderer actually consumes
	Compiler     string // external compiler binary invoked when CSS is newer than XML

	// PlanetImportTimestamp is the freshness horizon: tiles rendered
	// before this moment are considered stale and re-rendered on next
	// draw, mirroring the original's "planet import timestamp" check.
	PlanetImportTimestamp time.Time

	mu        sync.Mutex
	inFlight  map[string]bool
}

func NewMapnik(ident Identity, geom Geometry, ext string, render RenderFunc) *Mapnik {
	return &Mapnik{Ident: ident, Geom: geom, Ext: ext, Render: render, inFlight: make(map[string]bool)}
}

func (m *Mapnik) Identity() Identity      { return m.Ident }
func (m *Mapnik) Geometry() Geometry      { return m.Geom }
func (m *Mapnik) AccessMode() AccessMode  { return AccessLocalRender }
func (m *Mapnik) FileExtension() string   { return m.Ext }
func (m *Mapnik) SupportsConditionalGet() bool { return false }

func (m *Mapnik) URLFor(tile tilecoord.Coord) (string, bool) { return "", false }

func (m *Mapnik) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%d", tile.OSMZoom()), fmt.Sprintf("%d", tile.X), fmt.Sprintf("%d.%s", tile.Y, m.Ext))
}

// EnsureStyleCompiled regenerates StyleXMLPath from StyleCSSPath when the
// CSS source is newer, by shelling out to Compiler. forceRun bypasses the
// timestamp comparison, matching the original's explicit "force run" user
// operation.
func (m *Mapnik) EnsureStyleCompiled(forceRun bool) error {
	if m.StyleCSSPath == "" || m.Compiler == "" {
		return nil
	}
	cssInfo, err := os.Stat(m.StyleCSSPath)
	if err != nil {
		return fmt.Errorf("mapnik: stat style css: %w", err)
	}
	if !forceRun {
		if xmlInfo, err := os.Stat(m.StyleXMLPath); err == nil {
			if !cssInfo.ModTime().After(xmlInfo.ModTime()) {
				return nil
			}
		}
	}
	cmd := exec.Command(m.Compiler, m.StyleCSSPath, "-o", m.StyleXMLPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mapnik: style compile failed: %w: %s", err, out)
	}
	return nil
}

// NeedsRerender reports whether a previously cached render is stale
// relative to the configured planet-import horizon.
func (m *Mapnik) NeedsRerender(renderedAt time.Time) bool {
	return renderedAt.Before(m.PlanetImportTimestamp)
}

func (m *Mapnik) dedupeKey(tile tilecoord.Coord) string {
	return fmt.Sprintf("%s-%s", tile, m.Ident.Label)
}

func (m *Mapnik) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	key := m.dedupeKey(tile)

	m.mu.Lock()
	if m.inFlight[key] {
		m.mu.Unlock()
		return DownloadContentError, fmt.Errorf("mapnik: render for %s already in flight", tile)
	}
	m.inFlight[key] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, key)
		m.mu.Unlock()
	}()

	img, err := m.Render(tile, m.Geom.TileSizeX, m.Geom.TileSizeY)
	if err != nil {
		return DownloadContentError, fmt.Errorf("mapnik: render: %w", err)
	}
	data, err := diskstore.EncodeForWrite(img, m.Ext)
	if err != nil {
		return DownloadContentError, fmt.Errorf("mapnik: encode: %w", err)
	}
	if err := diskstore.WriteAtomic(handle.DestPath, data); err != nil {
		return DownloadWriteError, err
	}
	return DownloadSuccess, nil
}

func (m *Mapnik) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {}
