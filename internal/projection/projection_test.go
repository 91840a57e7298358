package projection

import (
	"math"
	"testing"

	"github.com/walkthru-earth/tilecore/internal/tilecoord"
)

func TestCoordToTileRoundTrip(t *testing.T) {
	scale, err := tilecoord.MPPToScale(tilecoord.ScaleToMPP(3))
	if err != nil {
		t.Fatal(err)
	}
	osmZoom := tilecoord.ScaleOriginZoom - int(scale)
	tile := tilecoord.Coord{X: 5, Y: 9, Zoom: scale}
	geo := TileToCenterGeo(tile)

	mpp := tilecoord.ScaleToMPP(scale)
	_ = osmZoom
	got, ok := CoordToTile(geo, mpp, mpp)
	if !ok {
		t.Fatal("CoordToTile returned false for a valid round trip")
	}
	if got != tile {
		t.Errorf("round trip = %+v, want %+v", got, tile)
	}
}

func TestCoordToTileRejectsUnequalMPP(t *testing.T) {
	if _, ok := CoordToTile(LatLon{}, 1, 2); ok {
		t.Error("expected false for xmpp != ympp")
	}
}

func TestCoordToTileRejectsNonPowerOfTwoMPP(t *testing.T) {
	if _, ok := CoordToTile(LatLon{}, 3, 3); ok {
		t.Error("expected false for non-power-of-two mpp")
	}
}

func TestTileBoundsContainsCenter(t *testing.T) {
	tile := tilecoord.Coord{X: 3, Y: 4, Zoom: 12}
	nw, se := TileBoundsGeo(tile)
	center := TileToCenterGeo(tile)

	if !(center.Lon >= nw.Lon && center.Lon <= se.Lon) {
		t.Errorf("center lon %v not within [%v,%v]", center.Lon, nw.Lon, se.Lon)
	}
	if !(center.Lat <= nw.Lat && center.Lat >= se.Lat) {
		t.Errorf("center lat %v not within [%v,%v]", center.Lat, se.Lat, nw.Lat)
	}
}

func TestCrossesAntimeridian(t *testing.T) {
	tests := []struct {
		a, b LatLon
		want bool
	}{
		{LatLon{Lon: 179}, LatLon{Lon: -179}, true},
		{LatLon{Lon: 170}, LatLon{Lon: -170}, true},
		{LatLon{Lon: 95}, LatLon{Lon: -95}, true},
		{LatLon{Lon: 95}, LatLon{Lon: 95}, false},
	}
	for _, tt := range tests {
		if got := CrossesAntimeridian(tt.a, tt.b); got != tt.want {
			t.Errorf("CrossesAntimeridian(%+v, %+v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCoordToTileUTM(t *testing.T) {
	u := UTMCoord{Easting: 500000, Northing: 4649776, Zone: 31, Northern: true}
	mpp := tilecoord.ScaleToMPP(2)
	tile, ok := CoordToTileUTM(u, mpp)
	if !ok {
		t.Fatal("expected ok")
	}
	wantX := int32(math.Floor(500000.0 / (200.0 * mpp)))
	if tile.X != wantX {
		t.Errorf("X = %d, want %d", tile.X, wantX)
	}
	if tile.Zone != 31 {
		t.Errorf("Zone = %d, want 31", tile.Zone)
	}
}
