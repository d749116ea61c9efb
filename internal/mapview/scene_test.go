package mapview

import (
	"testing"

	geojson "github.com/paulmach/go.geojson"

	"gtfsrt-livemap/internal/palette"
)

func TestBoundsExtend(t *testing.T) {
	var b Bounds
	if !b.IsEmpty() {
		t.Fatal("zero Bounds should be empty")
	}
	b.Extend(Point{Lat: 10, Lon: 20})
	b.Extend(Point{Lat: -5, Lon: 40})
	b.Extend(Point{Lat: 3, Lon: 30})

	if got, want := b.SouthWest(), (Point{Lat: -5, Lon: 20}); got != want {
		t.Errorf("SouthWest() = %v, want %v", got, want)
	}
	if got, want := b.NorthEast(), (Point{Lat: 10, Lon: 40}); got != want {
		t.Errorf("NorthEast() = %v, want %v", got, want)
	}
	if got, want := b.Center(), (Point{Lat: 2.5, Lon: 30}); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
}

func TestSceneDrawing(t *testing.T) {
	s := NewScene()
	red := palette.Color{R: 255}

	m := s.CreateMarker(Point{Lat: 1, Lon: 1}, red)
	p := s.CreatePath([]Point{{Lat: 1, Lon: 1}}, red)
	s.AppendToPath(p, Point{Lat: 1, Lon: 1})
	s.SetPathEndpoint(p, 1, Point{Lat: 2, Lon: 3})
	s.SetMarkerPosition(m, Point{Lat: 2, Lon: 3})

	if got, ok := s.MarkerPosition(m); !ok || got != (Point{Lat: 2, Lon: 3}) {
		t.Fatalf("MarkerPosition = %v, %v", got, ok)
	}
	pts := s.PathPoints(p)
	if len(pts) != 2 || pts[0] != (Point{Lat: 1, Lon: 1}) || pts[1] != (Point{Lat: 2, Lon: 3}) {
		t.Fatalf("PathPoints = %v", pts)
	}

	// Out of range handles and indexes are ignored.
	before := s.Version()
	s.SetPathEndpoint(p, 7, Point{})
	s.SetMarkerPosition(MarkerHandle(9), Point{})
	if s.Version() != before {
		t.Errorf("invalid updates changed the scene version")
	}
}

func TestSceneGeoJSON(t *testing.T) {
	s := NewScene()
	m := s.CreateMarker(Point{Lat: 10, Lon: 20}, palette.Color{G: 255})
	s.LabelMarker(m, "bus-7")
	s.CreatePath([]Point{{Lat: 10, Lon: 20}, {Lat: 11, Lon: 21}}, palette.Color{B: 255})
	var b Bounds
	b.Extend(Point{Lat: 10, Lon: 20})
	b.Extend(Point{Lat: 11, Lon: 21})
	s.FitViewport(b)

	raw, err := s.GeoJSON()
	if err != nil {
		t.Fatalf("GeoJSON: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	line := fc.Features[0]
	if !line.Geometry.IsLineString() || len(line.Geometry.LineString) != 2 {
		t.Fatalf("first feature = %+v, want 2-vertex LineString", line.Geometry)
	}
	if got := line.Geometry.LineString[1]; got[0] != 21 || got[1] != 11 {
		t.Errorf("line vertex = %v, want [21 11]", got)
	}
	pt := fc.Features[1]
	if !pt.Geometry.IsPoint() || pt.Geometry.Point[0] != 20 || pt.Geometry.Point[1] != 10 {
		t.Errorf("marker = %+v", pt.Geometry)
	}
	if title, _ := pt.PropertyString("title"); title != "bus-7" {
		t.Errorf("title = %q", title)
	}
	if len(fc.BoundingBox) != 4 || fc.BoundingBox[0] != 20 || fc.BoundingBox[3] != 11 {
		t.Errorf("bbox = %v", fc.BoundingBox)
	}
}
