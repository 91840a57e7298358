// Package painter implements the viewport draw cycle: given a rectangle of
// geography, it resolves which tiles are needed, loads them (falling back
// to a coarser or finer scale when the exact one is missing), composites
// them onto a destination canvas, and overlays copyright/attribution text,
// grounded in the original's LayerMaps::draw_section /
// try_draw_scale_down / try_draw_scale_up (vikmapslayer.cpp).
package painter

import (
	"context"
	"image"
	"sync"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/downloader"
	"github.com/walkthru-earth/tilecore/internal/mapsource"
	"github.com/walkthru-earth/tilecore/internal/pixmapcache"
	"github.com/walkthru-earth/tilecore/internal/projection"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Mode selects how a draw cycle renders its tiles.
type Mode int

const (
	// ModeNormal decodes and composites every visible tile.
	ModeNormal Mode = iota
	// ModeExistenceOnly draws a placeholder for tiles that exist on disk
	// without decoding or compositing them, used when the shrink factor
	// or tile count makes full rendering too expensive.
	ModeExistenceOnly
	// ModeSkip draws nothing at all and surfaces a status message.
	ModeSkip
)

// Shrink-factor bounds, confirmed against original_source/vikmapslayer.cpp.
const (
	MinShrinkFactor     = 0.0312499
	MaxShrinkFactor     = 8.0000001
	RealMinShrinkFactor = 0.0039062499
)

// Default scale fallback depths and soft tile cap, per spec.md §4.9.
const (
	DefaultScaleIncUp   = 2
	DefaultScaleIncDown = 4
	DefaultSoftTileCap  = 2048
)

// Config holds the tunables a LayerConfig maps onto a draw cycle.
type Config struct {
	MinShrinkFactor     float64
	MaxShrinkFactor     float64
	RealMinShrinkFactor float64
	ScaleIncUp          int32
	ScaleIncDown        int32
	// SmallerFirst selects scale-down-before-scale-up fallback order,
	// the persisted "map.scale_fallback.smaller_first" setting.
	SmallerFirst bool
	SoftTileCap  int
	GridDebug    bool
}

// DefaultConfig returns the original's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinShrinkFactor:     MinShrinkFactor,
		MaxShrinkFactor:     MaxShrinkFactor,
		RealMinShrinkFactor: RealMinShrinkFactor,
		ScaleIncUp:          DefaultScaleIncUp,
		ScaleIncDown:        DefaultScaleIncDown,
		SmallerFirst:        true,
		SoftTileCap:         DefaultSoftTileCap,
	}
}

// ZoomOverride pins a layer to a fixed mpp regardless of the viewport's
// actual mpp, producing a shrink factor; nil means "follow the viewport".
type ZoomOverride struct {
	XMPP, YMPP float64
}

// Viewport describes one draw cycle's visible geography and pixel extent.
type Viewport struct {
	NW, SE        projection.LatLon
	XMPP, YMPP    float64
	WidthPx       int
	HeightPx      int
	PanInProgress bool
}

// Result is the outcome of one Draw call.
type Result struct {
	Image         *image.RGBA
	Mode          Mode
	StatusMessage string
	Copyright     []string
	TileCount     int
}

// Painter renders one MapSource's tiles onto a viewport canvas. The Painter
// and Downloader depend only on the mapsource.Source interface, never a
// concrete provider type.
type Painter struct {
	Cache    *pixmapcache.Cache
	Store    *diskstore.Store
	CacheDir string
	Layout   diskstore.Layout
	Source   mapsource.Source

	Alpha        uint8
	ZoomOverride *ZoomOverride
	Config       Config

	// CacheDirIsDefault controls whether the OSM layout includes the
	// source name segment in FilePathFor, matching the original's rule
	// that the name is omitted only when the cache dir is non-default.
	CacheDirIsDefault bool

	// Downloader and LayerRef, when both set, enable the autodownload
	// policy of spec.md §4.6. AutodownloadEnabled mirrors the per-layer
	// LayerConfig flag.
	Downloader          *downloader.Downloader
	LayerRef            downloader.LayerRef
	AutodownloadEnabled bool

	mu           sync.Mutex
	lastCenter   *projection.LatLon
	lastXMPP     float64
	lastYMPP     float64
}

// New creates a Painter with default fallback/shrink configuration.
func New(cache *pixmapcache.Cache, cacheDir string, layout diskstore.Layout, src mapsource.Source) *Painter {
	return &Painter{
		Cache: cache, Store: diskstore.New(cacheDir, layout), CacheDir: cacheDir,
		Layout: layout, Source: src, Alpha: 255, Config: DefaultConfig(),
		CacheDirIsDefault: true,
	}
}

// Draw renders one viewport. Errors returned are addressing/configuration
// errors (spec.md §7); per-tile disk and download errors never propagate
// here — they simply leave a tile unrendered.
func (p *Painter) Draw(vp Viewport) (*Result, error) {
	xshrink, yshrink, mode := 1.0, 1.0, ModeNormal
	lookupMPP := vp.XMPP
	if p.ZoomOverride != nil {
		xshrink, yshrink, mode = resolveShrink(*p.ZoomOverride, vp, p.Config)
		lookupMPP = p.ZoomOverride.XMPP
	}
	if mode == ModeSkip {
		return &Result{Mode: ModeSkip, StatusMessage: "shrink factor outside supported range; nothing drawn"}, nil
	}

	geom := p.Source.Geometry()
	rect, ok := p.tileRect(vp, lookupMPP)
	if !ok {
		return &Result{Mode: ModeSkip, StatusMessage: "mpp unsupported for this source's projection"}, nil
	}
	if rect.Zoom < tilecoord.FromOSMZoom(geom.ZMax) || rect.Zoom > tilecoord.FromOSMZoom(geom.ZMin) {
		return &Result{Mode: ModeSkip, StatusMessage: "zoom out of range for this source"}, nil
	}

	if int64(p.Config.SoftTileCap) > 0 && rect.Count() > int64(p.Config.SoftTileCap) {
		mode = ModeExistenceOnly
	}

	if mode == ModeNormal {
		p.maybeAutodownload(vp, rect)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, vp.WidthPx, vp.HeightPx))
	tileW := float64(geom.TileSizeX) * xshrink
	tileH := float64(geom.TileSizeY) * yshrink

	originTile, _ := projection.CoordToTile(vp.NW, lookupMPP, lookupMPP)
	count := 0
	for y := rect.YMin; y <= rect.YMax; y++ {
		for x := rect.XMin; x <= rect.XMax; x++ {
			tile := tilecoord.Coord{X: x, Y: y, Zoom: rect.Zoom, Zone: rect.Zone}
			dx := int((float64(x-originTile.X))*tileW + 0.5)
			dy := int((float64(y-originTile.Y))*tileH + 0.5)
			destRect := image.Rect(dx, dy, dx+ceilInt(tileW), dy+ceilInt(tileH))
			if destRect.Max.X <= 0 || destRect.Max.Y <= 0 || destRect.Min.X >= vp.WidthPx || destRect.Min.Y >= vp.HeightPx {
				continue
			}

			if mode == ModeExistenceOnly {
				if p.tileExists(tile) {
					drawPlaceholder(canvas, destRect)
					count++
				}
				continue
			}
			if p.drawTile(canvas, destRect, tile, xshrink, yshrink) {
				count++
			}
		}
	}

	var copyrights []string
	nw, se := rect.GeoBounds()
	bbox := mapsource.BBox{North: nw.Lat, South: se.Lat, West: nw.Lon, East: se.Lon}
	p.Source.GetCopyright(bbox, tile0OSMZoom(rect), func(text string) {
		copyrights = append(copyrights, text)
	})

	if p.Config.GridDebug {
		drawGrid(canvas, int(tileW), int(tileH))
	}

	return &Result{Image: canvas, Mode: mode, Copyright: copyrights, TileCount: count}, nil
}

// resolveShrink computes the shrink factors for a fixed zoom override and
// classifies which draw mode they require, per the boundary behavior in
// spec.md §8.
func resolveShrink(override ZoomOverride, vp Viewport, cfg Config) (xshrink, yshrink float64, mode Mode) {
	xshrink = override.XMPP / vp.XMPP
	yshrink = override.YMPP / vp.YMPP
	if xshrink > cfg.MinShrinkFactor && xshrink < cfg.MaxShrinkFactor &&
		yshrink > cfg.MinShrinkFactor && yshrink < cfg.MaxShrinkFactor {
		return xshrink, yshrink, ModeNormal
	}
	if xshrink > cfg.RealMinShrinkFactor && yshrink > cfg.RealMinShrinkFactor {
		return xshrink, yshrink, ModeExistenceOnly
	}
	return xshrink, yshrink, ModeSkip
}

// TileRect is an inclusive tile-index rectangle at one zoom/zone.
type TileRect struct {
	XMin, XMax, YMin, YMax int32
	Zoom                   int32
	Zone                   int32
}

// Count returns the number of tiles covered by the rectangle.
func (r TileRect) Count() int64 {
	return int64(r.XMax-r.XMin+1) * int64(r.YMax-r.YMin+1)
}

// GeoBounds returns the geographic box covered by the rectangle's corner
// tiles, used for copyright lookups.
func (r TileRect) GeoBounds() (nw, se projection.LatLon) {
	nwTile := tilecoord.Coord{X: r.XMin, Y: r.YMin, Zoom: r.Zoom, Zone: r.Zone}
	seTile := tilecoord.Coord{X: r.XMax, Y: r.YMax, Zoom: r.Zoom, Zone: r.Zone}
	nwCorner, _ := projection.TileBoundsGeo(nwTile)
	_, seCorner := projection.TileBoundsGeo(seTile)
	return nwCorner, seCorner
}

func tile0OSMZoom(r TileRect) int {
	return tilecoord.Coord{Zoom: r.Zoom}.OSMZoom()
}

// tileRect computes the visible tile rectangle for a Mercator-projected
// source. UTM multi-zone sources are handled by the caller issuing one
// Draw call per visible zone, matching the original's per-zone draw loop.
func (p *Painter) tileRect(vp Viewport, mpp float64) (TileRect, bool) {
	nw, ok1 := projection.CoordToTile(vp.NW, mpp, mpp)
	se, ok2 := projection.CoordToTile(vp.SE, mpp, mpp)
	if !ok1 || !ok2 {
		return TileRect{}, false
	}
	xmin, xmax := minMax32(nw.X, se.X)
	ymin, ymax := minMax32(nw.Y, se.Y)
	return TileRect{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax, Zoom: nw.Zoom, Zone: nw.Zone}, true
}

func minMax32(a, b int32) (int32, int32) {
	if a < b {
		return a, b
	}
	return b, a
}

func ceilInt(f float64) int {
	i := int(f)
	if float64(i) < f {
		i++
	}
	return i
}

// tileExists reports whether a tile's on-disk file is present, for
// existence-only mode.
func (p *Painter) tileExists(tile tilecoord.Coord) bool {
	path := p.Source.FilePathFor(p.CacheDir, p.Layout, tile, p.CacheDirIsDefault)
	return p.Store.Exists(path)
}

// maybeAutodownload implements spec.md §4.6: on viewport change, with
// autodownload enabled and no pan gesture in progress, enqueue a background
// fetch for the visible rectangle.
func (p *Painter) maybeAutodownload(vp Viewport, rect TileRect) {
	if !p.AutodownloadEnabled || p.Downloader == nil || vp.PanInProgress {
		return
	}

	p.mu.Lock()
	changed := p.lastCenter == nil || p.lastXMPP != vp.XMPP || p.lastYMPP != vp.YMPP ||
		p.lastCenter.Lat != vp.NW.Lat || p.lastCenter.Lon != vp.NW.Lon
	if changed {
		center := vp.NW
		p.lastCenter = &center
		p.lastXMPP = vp.XMPP
		p.lastYMPP = vp.YMPP
	}
	p.mu.Unlock()

	if !changed {
		return
	}

	mode := downloader.None
	if p.Source.SupportsConditionalGet() {
		mode = downloader.Conditional
	}

	dlRect := downloader.TileRect{XMin: rect.XMin, XMax: rect.XMax, YMin: rect.YMin, YMax: rect.YMax, Zoom: rect.Zoom, Zone: rect.Zone}
	_, _ = p.Downloader.Submit(context.Background(), dlRect, mode, p.Source, p.LayerRef, downloader.PoolRemote, false, nil)
}
