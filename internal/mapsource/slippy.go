package mapsource

import (
	"fmt"
	"strings"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Slippy is the default network-backed source: an OSM-style {z}/{x}/{y}
// URL template, optionally with x/y swapped (ArcGIS-style addressing).
type Slippy struct {
	Ident          Identity
	Geom           Geometry
	URLTemplate    string // contains {z}, {x}, {y} or {z}, {y}, {x} placeholders
	SwitchXY       bool
	Ext            string
	Copyright      string
	ConditionalGet bool

	transport httpGetter
}

// NewSlippy constructs a Slippy source with the production HTTP transport.
func NewSlippy(ident Identity, geom Geometry, urlTemplate string, switchXY bool, ext string, copyright string, conditionalGet bool) *Slippy {
	return &Slippy{
		Ident: ident, Geom: geom, URLTemplate: urlTemplate, SwitchXY: switchXY,
		Ext: ext, Copyright: copyright, ConditionalGet: conditionalGet,
		transport: newHTTPTransport(nil),
	}
}

func (s *Slippy) Identity() Identity      { return s.Ident }
func (s *Slippy) Geometry() Geometry      { return s.Geom }
func (s *Slippy) AccessMode() AccessMode  { return AccessNetworkSlippy }
func (s *Slippy) FileExtension() string   { return s.Ext }
func (s *Slippy) SupportsConditionalGet() bool { return s.ConditionalGet }

// URLFor substitutes {z}, {x}, {y} into the template in either (z,x,y) or
// (z,y,x) order depending on SwitchXY.
func (s *Slippy) URLFor(tile tilecoord.Coord) (string, bool) {
	z := tile.OSMZoom()
	url := s.URLTemplate
	if s.SwitchXY {
		url = substitute(url, z, int(tile.Y), int(tile.X))
	} else {
		url = substitute(url, z, int(tile.X), int(tile.Y))
	}
	return url, true
}

func substitute(template string, z, first, second int) string {
	r := strings.NewReplacer(
		"{z}", fmt.Sprintf("%d", z),
		"{x}", fmt.Sprintf("%d", first),
		"{y}", fmt.Sprintf("%d", second),
	)
	// When switched, {x}/{y} in the template still name the placeholders;
	// the caller has already decided which tile axis goes in which slot.
	return r.Replace(template)
}

func (s *Slippy) FilePathFor(cacheDir string, layout diskstore.Layout, tile tilecoord.Coord, dirIsDefault bool) string {
	return diskstore.PathFor(cacheDir, layout, s.Ident.MapTypeID, tile, s.Ext, s.Ident.Label, dirIsDefault)
}

func (s *Slippy) Download(tile tilecoord.Coord, handle DownloadHandle) (DownloadOutcome, error) {
	url, ok := s.URLFor(tile)
	if !ok {
		return DownloadContentError, fmt.Errorf("slippy: no URL for tile %s", tile)
	}
	return httpGetToFile(s.transport, url, handle)
}

func (s *Slippy) GetCopyright(bbox BBox, osmZoom int, emit CopyrightEmit) {
	if s.Copyright != "" {
		emit(s.Copyright)
	}
}
