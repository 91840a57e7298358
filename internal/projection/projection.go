// Package projection converts between geographic coordinates and tile
// addresses for every projection a MapSource may use: spherical Web
// Mercator (slippy/OSM tiles), plain lat/lon, and UTM (single or
// multi-zone), per the original's vikcoord.cpp / coord.cpp.
package projection

import (
	"math"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

// Drawmode selects which projection a MapSource address is expressed in.
type Drawmode int

const (
	Mercator Drawmode = iota
	LatLonMode
	UTM
)

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat, Lon float64
}

// UTMCoord is an easting/northing pair within one UTM zone.
type UTMCoord struct {
	Easting, Northing float64
	Zone              int32
	Northern          bool
}

// CoordToTile computes the tile address covering geo at the given mpp for
// the Mercator (slippy/OSM) projection. It returns false when xmpp and ympp
// differ, since slippy tiles only support square pixels, or when the mpp
// pair doesn't correspond to a valid OSM zoom.
func CoordToTile(geo LatLon, xmpp, ympp float64) (tilecoord.Coord, bool) {
	if xmpp != ympp {
		return tilecoord.Coord{}, false
	}
	scale, err := tilecoord.MPPToScale(xmpp)
	if err != nil {
		return tilecoord.Coord{}, false
	}
	osmZoom := tilecoord.ScaleOriginZoom - int(scale)
	if osmZoom < tilecoord.MinOSMZoom || osmZoom > tilecoord.MaxOSMZoom {
		return tilecoord.Coord{}, false
	}
	n := math.Exp2(float64(osmZoom))

	lon := geo.Lon
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}

	x := int32(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := geo.Lat * math.Pi / 180.0
	y := int32(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	x = clampInt32(x, 0, int32(n)-1)
	y = clampInt32(y, 0, int32(n)-1)

	return tilecoord.Coord{X: x, Y: y, Zoom: scale}, true
}

// TileToCenterGeo returns the geographic center of a Mercator tile.
func TileToCenterGeo(tile tilecoord.Coord) LatLon {
	osmZoom := tile.OSMZoom()
	n := math.Exp2(float64(osmZoom))

	lon := (float64(tile.X)+0.5)/n*360.0 - 180.0
	yFrac := (float64(tile.Y) + 0.5) / n
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*yFrac)))
	lat := latRad * 180.0 / math.Pi

	return LatLon{Lat: lat, Lon: lon}
}

// TileBoundsGeo returns the geographic bounding box (NW, SE corners) of a
// Mercator tile.
func TileBoundsGeo(tile tilecoord.Coord) (nw, se LatLon) {
	osmZoom := tile.OSMZoom()
	n := math.Exp2(float64(osmZoom))

	lonW := float64(tile.X)/n*360.0 - 180.0
	lonE := float64(tile.X+1)/n*360.0 - 180.0
	latN := tileYToLat(float64(tile.Y), n)
	latS := tileYToLat(float64(tile.Y+1), n)

	return LatLon{Lat: latN, Lon: lonW}, LatLon{Lat: latS, Lon: lonE}
}

func tileYToLat(y, n float64) float64 {
	yFrac := y / n
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*yFrac)))
	return latRad * 180.0 / math.Pi
}

// CoordToTileUTM addresses a tile in Terraserver-style UTM space: tile
// indices are (easting, northing) divided by (200 * mpp), per the
// original's terraservermapsource.cpp convention.
func CoordToTileUTM(u UTMCoord, mpp float64) (tilecoord.Coord, bool) {
	scale, err := tilecoord.MPPToScale(mpp)
	if err != nil {
		return tilecoord.Coord{}, false
	}
	const tileMeters = 200.0
	x := int32(math.Floor(u.Easting / (tileMeters * mpp)))
	y := int32(math.Floor(u.Northing / (tileMeters * mpp)))
	return tilecoord.Coord{X: x, Y: y, Zoom: scale, Zone: u.Zone}, true
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CrossesAntimeridian reports whether a track segment between two
// consecutive points should be suppressed: both longitudes have magnitude
// greater than 90 and opposite signs, meaning the segment would otherwise
// be drawn straight across the viewport rather than wrapping the globe.
func CrossesAntimeridian(a, b LatLon) bool {
	return math.Abs(a.Lon) > 90 && math.Abs(b.Lon) > 90 && ((a.Lon < 0) != (b.Lon < 0))
}
