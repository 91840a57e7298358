package tilecoord

import "testing"

func TestZoomInOutRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    Coord
		k    int32
	}{
		{"origin", Coord{X: 0, Y: 0, Zoom: 5}, 3},
		{"mid tile", Coord{X: 10, Y: 20, Zoom: 12, Zone: 31}, 2},
		{"large k", Coord{X: 100, Y: 200, Zoom: 0}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.ZoomIn(tt.k).ZoomOut(tt.k)
			if got != tt.c {
				t.Errorf("zoom_in(%d) then zoom_out(%d) = %+v, want %+v", tt.k, tt.k, got, tt.c)
			}
		})
	}
}

func TestOSMZoomRoundTrip(t *testing.T) {
	for osmZoom := MinOSMZoom; osmZoom <= MaxOSMZoom; osmZoom++ {
		c := Coord{Zoom: FromOSMZoom(osmZoom)}
		if got := c.OSMZoom(); got != osmZoom {
			t.Errorf("OSMZoom() for osm zoom %d = %d", osmZoom, got)
		}
	}
}

func TestMPPToScale(t *testing.T) {
	for exp := MinMPPExponent; exp <= MaxMPPExponent; exp++ {
		mpp := ScaleToMPP(int32(exp))
		scale, err := MPPToScale(mpp)
		if err != nil {
			t.Fatalf("MPPToScale(%v) unexpected error: %v", mpp, err)
		}
		if scale != int32(exp) {
			t.Errorf("MPPToScale(%v) = %d, want %d", mpp, scale, exp)
		}
	}
}

func TestMPPToScaleRejectsNonPowerOfTwo(t *testing.T) {
	bad := []float64{0, -1, 3, 1.5, math2Pow(MaxMPPExponent + 1), math2Pow(MinMPPExponent - 1)}
	for _, mpp := range bad {
		if _, err := MPPToScale(mpp); err != ErrUnsupportedMPP {
			t.Errorf("MPPToScale(%v) = %v, want ErrUnsupportedMPP", mpp, err)
		}
	}
}

func math2Pow(e int) float64 {
	out := 1.0
	for i := 0; i < e; i++ {
		out *= 2
	}
	for i := 0; i > e; i-- {
		out /= 2
	}
	return out
}
