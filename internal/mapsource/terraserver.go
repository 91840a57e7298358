package mapsource

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Terraserver addresses tiles in UTM space: (easting, northing) divided by
// (200 * mpp), rather than an OSM-style x/y/z path.
type Terraserver struct {
	Ident     Identity
	Geom      Geometry
	BaseURL   string
	Ext       string
	Copyright string

	transport httpGetter
}

func NewTerraserver(ident Identity, geom Geometry, baseURL, ext, copyright string) *Terraserver {
	return &Terraserver{Ident: ident, Geom: geom, BaseURL: baseURL, Ext: ext, Copyright: copyright, transport: newHTTPTransport(nil)}
}

func (s *Terraserver) Identity() Identity      { return s.Ident }
func (s *Terraserver) Geometry() Geometry      { return s.Geom }
func (s *Terraserver) AccessMode() AccessMode  { return AccessNetworkSlippy }
func (s *Terraserver) FileExtension() string   { return s.Ext }
func (s *Terraserver) SupportsConditionalGet() bool { return false }

func (s *Terraserver) URLFor(tile tilecoord.Coord) (string, bool) {
	return fmt.Sprintf("%s&zone=%d&x=%d&y=%d&z=%d", s.BaseURL, tile.Zone, tile.X, tile.Y, tile.OSMZoom()), true
}

func (s *Terraserver) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, s.Ident.MapTypeID, tile, s.Ext, s.Ident.Label, dirIsDefault)
}

func (s *Terraserver) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	url, _ := s.URLFor(tile)
	return httpGetToFile(s.transport, url, handle)
}

func (s *Terraserver) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	if s.Copyright != "" {
		emit(s.Copyright)
	}
}
