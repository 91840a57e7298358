package mapsource

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// DirectFile is a source whose tiles are a pre-downloaded tree of files;
// there is nothing to fetch, only to read.
type DirectFile struct {
	Ident Identity
	Geom  Geometry
	Ext   string
}

func (d *DirectFile) Identity() Identity      { return d.Ident }
func (d *DirectFile) Geometry() Geometry      { return d.Geom }
func (d *DirectFile) AccessMode() AccessMode  { return AccessDirectFile }
func (d *DirectFile) FileExtension() string   { return d.Ext }
func (d *DirectFile) SupportsConditionalGet() bool { return false }

func (d *DirectFile) URLFor(tile tilecoord.Coord) (string, bool) { return "", false }

func (d *DirectFile) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, d.Ident.MapTypeID, tile, d.Ext, d.Ident.Label, dirIsDefault)
}

// Download always reports content error: a direct-file source has no
// remote fetch path, only a pre-populated tree. Callers that find the file
// missing should not schedule a download at all; this exists so the
// interface remains total.
func (d *DirectFile) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	return DownloadContentError, fmt.Errorf("directfile: %s has no remote source to fetch from", d.Ident.Label)
}

func (d *DirectFile) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {}
