package painter

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/walkthru-earth/tilecore/internal/diskstore"
	"github.com/walkthru-earth/tilecore/internal/mapsource"
	"github.com/walkthru-earth/tilecore/internal/pixmapcache"
	"github.com/walkthru-earth/tilecore/internal/projection"
	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testSource(tileSize int) *mapsource.Slippy {
	return mapsource.NewSlippy(
		mapsource.Identity{MapTypeID: 1, Label: "test"},
		mapsource.Geometry{TileSizeX: tileSize, TileSizeY: tileSize, ZMin: 0, ZMax: 20, Drawmode: projection.Mercator},
		"https://tile.example/{z}/{x}/{y}.png", false, "png", "(c) test", false,
	)
}

// singleTileViewport returns a Viewport whose NW/SE corners sit strictly
// inside tile's geographic bounds, so CoordToTile at mpp resolves to
// exactly that one tile.
func singleTileViewport(tile tilecoord.Coord, mpp float64, widthPx, heightPx int) Viewport {
	nw, se := projection.TileBoundsGeo(tile)
	const eps = 1e-6
	return Viewport{
		NW:       projection.LatLon{Lat: nw.Lat - eps, Lon: nw.Lon + eps},
		SE:       projection.LatLon{Lat: se.Lat + eps, Lon: se.Lon - eps},
		XMPP:     mpp,
		YMPP:     mpp,
		WidthPx:  widthPx,
		HeightPx: heightPx,
	}
}

func TestDrawCacheHitSecondDrawUsesCache(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	tile := tilecoord.Coord{X: 10, Y: 20, Zoom: tilecoord.FromOSMZoom(10)}

	path := src.FilePathFor(dir, diskstore.OSM, tile, true)
	if err := diskstore.WriteAtomic(path, encodePNG(t, 4, 4, color.RGBA{R: 200, A: 255})); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	mpp := tilecoord.ScaleToMPP(tile.Zoom)
	vp := singleTileViewport(tile, mpp, 4, 4)

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeNormal {
		t.Fatalf("Mode = %v, want ModeNormal", res.Mode)
	}
	if res.TileCount != 1 {
		t.Fatalf("TileCount = %d, want 1", res.TileCount)
	}
	if p.Cache.Count() != 1 {
		t.Fatalf("cache Count() = %d, want 1 after first draw", p.Cache.Count())
	}

	res2, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("second Draw: %v", err)
	}
	if res2.TileCount != 1 {
		t.Fatalf("second draw TileCount = %d, want 1", res2.TileCount)
	}
	if p.Cache.Count() != 1 {
		t.Fatalf("cache Count() after second draw = %d, want still 1 (no duplicate insert)", p.Cache.Count())
	}
}

func TestDrawScaleDownFallbackWhenExactMissing(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	exact := tilecoord.Coord{X: 10, Y: 20, Zoom: tilecoord.FromOSMZoom(10)}
	coarse := exact.ZoomOut(1) // one OSM zoom level out, covers a 2x2 block of exact-zoom tiles

	coarsePath := src.FilePathFor(dir, diskstore.OSM, coarse, true)
	// coarse tile rendered at factor 2 in both dimensions: 8x8.
	if err := diskstore.WriteAtomic(coarsePath, encodePNG(t, 8, 8, color.RGBA{G: 200, A: 255})); err != nil {
		t.Fatalf("write coarse fixture: %v", err)
	}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	mpp := tilecoord.ScaleToMPP(exact.Zoom)
	vp := singleTileViewport(exact, mpp, 4, 4)

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeNormal {
		t.Fatalf("Mode = %v, want ModeNormal", res.Mode)
	}
	if res.TileCount != 1 {
		t.Fatalf("TileCount = %d, want 1 (scale-down fallback should have filled the tile)", res.TileCount)
	}
}

func TestDrawMissingTileSkipsSilently(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	tile := tilecoord.Coord{X: 1, Y: 1, Zoom: tilecoord.FromOSMZoom(10)}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	mpp := tilecoord.ScaleToMPP(tile.Zoom)
	vp := singleTileViewport(tile, mpp, 4, 4)

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.TileCount != 0 {
		t.Fatalf("TileCount = %d, want 0 when nothing is on disk and no fallback exists", res.TileCount)
	}
}

func TestDrawExistenceOnlyWithinSoftShrinkBand(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	tile := tilecoord.Coord{X: 5, Y: 5, Zoom: tilecoord.FromOSMZoom(7)}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	override := ZoomOverride{XMPP: tilecoord.ScaleToMPP(tile.Zoom), YMPP: tilecoord.ScaleToMPP(tile.Zoom)}
	p.ZoomOverride = &override

	vp := singleTileViewport(tile, override.XMPP, 4, 4)
	// Shrink factor 0.01: between RealMinShrinkFactor and MinShrinkFactor.
	vp.XMPP = override.XMPP / 0.01
	vp.YMPP = vp.XMPP

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeExistenceOnly {
		t.Fatalf("Mode = %v, want ModeExistenceOnly", res.Mode)
	}
}

func TestDrawSkipBeyondRealMinShrink(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	tile := tilecoord.Coord{X: 5, Y: 5, Zoom: tilecoord.FromOSMZoom(7)}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	override := ZoomOverride{XMPP: tilecoord.ScaleToMPP(tile.Zoom), YMPP: tilecoord.ScaleToMPP(tile.Zoom)}
	p.ZoomOverride = &override

	vp := singleTileViewport(tile, override.XMPP, 4, 4)
	// Shrink factor 0.0001: below RealMinShrinkFactor.
	vp.XMPP = override.XMPP / 0.0001
	vp.YMPP = vp.XMPP

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeSkip {
		t.Fatalf("Mode = %v, want ModeSkip", res.Mode)
	}
	if res.StatusMessage == "" {
		t.Error("expected a status message when skipping")
	}
	if res.Image != nil {
		t.Error("expected no image when skipping")
	}
}

func TestDrawSoftTileCapForcesExistenceOnly(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	osmZoom := 10
	scale := tilecoord.FromOSMZoom(osmZoom)
	mpp := tilecoord.ScaleToMPP(scale)

	nwTile := tilecoord.Coord{X: 10, Y: 10, Zoom: scale}
	seTile := tilecoord.Coord{X: 12, Y: 12, Zoom: scale} // 3x3 = 9 tiles

	nwGeo, _ := projection.TileBoundsGeo(nwTile)
	_, seGeo := projection.TileBoundsGeo(seTile)
	const eps = 1e-6
	vp := Viewport{
		NW:       projection.LatLon{Lat: nwGeo.Lat - eps, Lon: nwGeo.Lon + eps},
		SE:       projection.LatLon{Lat: seGeo.Lat + eps, Lon: seGeo.Lon - eps},
		XMPP:     mpp,
		YMPP:     mpp,
		WidthPx:  12,
		HeightPx: 12,
	}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	p.Config.SoftTileCap = 4

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeExistenceOnly {
		t.Fatalf("Mode = %v, want ModeExistenceOnly (9 tiles > cap of 4)", res.Mode)
	}
}

func TestDrawCopyrightEmitted(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	tile := tilecoord.Coord{X: 10, Y: 20, Zoom: tilecoord.FromOSMZoom(10)}

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	mpp := tilecoord.ScaleToMPP(tile.Zoom)
	vp := singleTileViewport(tile, mpp, 4, 4)

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(res.Copyright) != 1 || res.Copyright[0] != "(c) test" {
		t.Errorf("Copyright = %v, want [\"(c) test\"]", res.Copyright)
	}
}

func TestDrawZoomOutOfRangeSkips(t *testing.T) {
	dir := t.TempDir()
	src := mapsource.NewSlippy(
		mapsource.Identity{MapTypeID: 2, Label: "narrow"},
		mapsource.Geometry{TileSizeX: 4, TileSizeY: 4, ZMin: 10, ZMax: 12, Drawmode: projection.Mercator},
		"https://tile.example/{z}/{x}/{y}.png", false, "png", "", false,
	)
	tile := tilecoord.Coord{X: 5, Y: 5, Zoom: tilecoord.FromOSMZoom(8)} // below ZMin, but a tileable mpp

	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)
	mpp := tilecoord.ScaleToMPP(tile.Zoom)
	vp := singleTileViewport(tile, mpp, 4, 4)

	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeSkip {
		t.Fatalf("Mode = %v, want ModeSkip (zoom 8 outside [10,12])", res.Mode)
	}
}

func TestUnsupportedMPPReturnsSkip(t *testing.T) {
	dir := t.TempDir()
	src := testSource(4)
	p := New(pixmapcache.New(pixmapcache.DefaultMaxBytes), dir, diskstore.OSM, src)

	vp := Viewport{
		NW:       projection.LatLon{Lat: 10, Lon: 10},
		SE:       projection.LatLon{Lat: 9, Lon: 11},
		XMPP:     3, // not a power of two
		YMPP:     3,
		WidthPx:  4,
		HeightPx: 4,
	}
	res, err := p.Draw(vp)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if res.Mode != ModeSkip {
		t.Fatalf("Mode = %v, want ModeSkip for unsupported mpp", res.Mode)
	}
}
