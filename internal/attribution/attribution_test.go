package attribution

import (
	"strings"
	"testing"
)

const sampleXML = `<?xml version="1.0"?>
<ImageryMetadata>
  <ImageryProvider>
    <Attribution>Copyright Example Corp</Attribution>
    <CoverageArea>
      <ZoomMin>1</ZoomMin>
      <ZoomMax>10</ZoomMax>
      <BoundingBox>
        <SouthLatitude>10.0</SouthLatitude>
        <WestLongitude>-5.0</WestLongitude>
        <NorthLatitude>20.0</NorthLatitude>
        <EastLongitude>5.0</EastLongitude>
      </BoundingBox>
    </CoverageArea>
    <CoverageArea>
      <ZoomMin>11</ZoomMin>
      <ZoomMax>19</ZoomMax>
      <BoundingBox>
        <SouthLatitude>-1.0</SouthLatitude>
        <WestLongitude>-1.0</WestLongitude>
        <NorthLatitude>1.0</NorthLatitude>
        <EastLongitude>1.0</EastLongitude>
      </BoundingBox>
    </CoverageArea>
  </ImageryProvider>
</ImageryMetadata>`

func TestParseProducesOneRecordPerCoverageArea(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ZoomMin != 1 || records[0].ZoomMax != 10 {
		t.Errorf("record 0 zoom = [%d,%d], want [1,10]", records[0].ZoomMin, records[0].ZoomMax)
	}
	if records[1].South != -1.0 || records[1].North != 1.0 {
		t.Errorf("record 1 bbox lat = [%v,%v], want [-1,1]", records[1].South, records[1].North)
	}
	if records[0].Text != "Copyright Example Corp" {
		t.Errorf("record 0 Text = %q, want %q", records[0].Text, "Copyright Example Corp")
	}
	if records[1].Text != "Copyright Example Corp" {
		t.Errorf("record 1 Text = %q, want %q", records[1].Text, "Copyright Example Corp")
	}
}

func TestCoversRequiresZoomWithinExclusiveRange(t *testing.T) {
	r := Record{ZoomMin: 1, ZoomMax: 10, South: -10, North: 10, West: -10, East: 10}
	if r.Covers(1, -1, -1, 1, 1) {
		t.Error("zoom == ZoomMin should not cover")
	}
	if r.Covers(10, -1, -1, 1, 1) {
		t.Error("zoom == ZoomMax should not cover")
	}
	if !r.Covers(5, -1, -1, 1, 1) {
		t.Error("zoom strictly between bounds should cover")
	}
}

func TestCoversRequiresBBoxIntersection(t *testing.T) {
	r := Record{ZoomMin: 1, ZoomMax: 10, South: 0, North: 1, West: 0, East: 1}
	if r.Covers(5, 10, 10, 11, 11) {
		t.Error("disjoint bbox should not cover")
	}
	if !r.Covers(5, 0.5, 0.5, 2, 2) {
		t.Error("overlapping bbox should cover")
	}
}
