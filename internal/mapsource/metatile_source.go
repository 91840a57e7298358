package mapsource

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/metatile"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// MetatileSource reads tiles from a tree of packed 8x8 metatile archives
// rather than one file per tile.
type MetatileSource struct {
	Ident     Identity
	Geom      Geometry
	ArchiveDir string
	Copyright string
}

func (m *MetatileSource) Identity() Identity      { return m.Ident }
func (m *MetatileSource) Geometry() Geometry      { return m.Geom }
func (m *MetatileSource) AccessMode() AccessMode  { return AccessMetatile }
func (m *MetatileSource) FileExtension() string   { return "png" }
func (m *MetatileSource) SupportsConditionalGet() bool { return false }

func (m *MetatileSource) URLFor(tile tilecoord.Coord) (string, bool) { return "", false }

func (m *MetatileSource) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return metatile.HashPath(m.ArchiveDir, int(tile.X), int(tile.Y), tile.OSMZoom())
}

// Download extracts the tile's bytes from its metatile archive and writes
// them atomically to handle.DestPath, matching the uniform write path the
// Downloader expects of every variant.
func (m *MetatileSource) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	data, err := metatile.Read(m.ArchiveDir, int(tile.X), int(tile.Y), tile.OSMZoom())
	if err != nil {
		return DownloadContentError, fmt.Errorf("metatile source: %w", err)
	}
	if err := diskstore.WriteAtomic(handle.DestPath, data); err != nil {
		return DownloadWriteError, err
	}
	return DownloadSuccess, nil
}

func (m *MetatileSource) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	if m.Copyright != "" {
		emit(m.Copyright)
	}
}
