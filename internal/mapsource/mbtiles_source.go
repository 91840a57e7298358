package mapsource

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/mbtiles"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// MBTilesSource reads tiles as blobs from a single-file SQLite archive.
type MBTilesSource struct {
	Ident     Identity
	Geom      Geometry
	Reader    *mbtiles.Reader
	Ext       string
	Copyright string
}

// OpenMBTilesSource opens the archive at path and wraps it as a Source.
func OpenMBTilesSource(ident Identity, geom Geometry, path, ext, copyright string) (*MBTilesSource, error) {
	r, err := mbtiles.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mbtiles source: %w", err)
	}
	return &MBTilesSource{Ident: ident, Geom: geom, Reader: r, Ext: ext, Copyright: copyright}, nil
}

func (m *MBTilesSource) Identity() Identity      { return m.Ident }
func (m *MBTilesSource) Geometry() Geometry      { return m.Geom }
func (m *MBTilesSource) AccessMode() AccessMode  { return AccessMBTiles }
func (m *MBTilesSource) FileExtension() string   { return m.Ext }
func (m *MBTilesSource) SupportsConditionalGet() bool { return false }

func (m *MBTilesSource) URLFor(tile tilecoord.Coord) (string, bool) { return "", false }

func (m *MBTilesSource) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, m.Ident.MapTypeID, tile, m.Ext, m.Ident.Label, dirIsDefault)
}

func (m *MBTilesSource) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	data, err := m.Reader.GetTile(int(tile.X), int(tile.Y), tile.OSMZoom())
	if err != nil {
		return DownloadContentError, fmt.Errorf("mbtiles source: %w", err)
	}
	if err := diskstore.WriteAtomic(handle.DestPath, data); err != nil {
		return DownloadWriteError, err
	}
	return DownloadSuccess, nil
}

func (m *MBTilesSource) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	if m.Copyright != "" {
		emit(m.Copyright)
		return
	}
	if attribution, ok := m.Reader.Metadata("attribution"); ok && attribution != "" {
		emit(attribution)
	}
}
