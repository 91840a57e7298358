package mapsource

import (
	"fmt"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/projection"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// WMSC is a WMS-C (tiled WMS) source addressed by a lat/lon bounding box in
// the request URL rather than x/y/z path segments.
type WMSC struct {
	Ident     Identity
	Geom      Geometry
	BaseURL   string // e.g. "https://host/wms?SERVICE=WMS&REQUEST=GetMap&LAYERS=..."
	Ext       string
	Copyright string

	transport httpGetter
}

func NewWMSC(ident Identity, geom Geometry, baseURL, ext, copyright string) *WMSC {
	return &WMSC{Ident: ident, Geom: geom, BaseURL: baseURL, Ext: ext, Copyright: copyright, transport: newHTTPTransport(nil)}
}

func (w *WMSC) Identity() Identity      { return w.Ident }
func (w *WMSC) Geometry() Geometry      { return w.Geom }
func (w *WMSC) AccessMode() AccessMode  { return AccessNetworkWMSC }
func (w *WMSC) FileExtension() string   { return w.Ext }
func (w *WMSC) SupportsConditionalGet() bool { return false }

func (w *WMSC) URLFor(tile tilecoord.Coord) (string, bool) {
	nw, se := projection.TileBoundsGeo(tile)
	return fmt.Sprintf("%s&BBOX=%f,%f,%f,%f&WIDTH=%d&HEIGHT=%d",
		w.BaseURL, nw.Lon, se.Lat, se.Lon, nw.Lat, w.Geom.TileSizeX, w.Geom.TileSizeY), true
}

func (w *WMSC) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, w.Ident.MapTypeID, tile, w.Ext, w.Ident.Label, dirIsDefault)
}

func (w *WMSC) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	url, _ := w.URLFor(tile)
	return httpGetToFile(w.transport, url, handle)
}

func (w *WMSC) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	if w.Copyright != "" {
		emit(w.Copyright)
	}
}
