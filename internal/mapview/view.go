// Package mapview describes the drawing surface the animation core renders
// into, and provides Scene, an in-memory surface that can be exported as
// GeoJSON.
package mapview

import "gtfsrt-livemap/internal/palette"

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type MarkerHandle int

type PathHandle int

// View is the map collaborator. Handles are only meaningful to the View that
// issued them.
type View interface {
	CreateMarker(p Point, c palette.Color) MarkerHandle
	SetMarkerPosition(h MarkerHandle, p Point)
	CreatePath(points []Point, c palette.Color) PathHandle
	AppendToPath(h PathHandle, p Point)
	SetPathEndpoint(h PathHandle, index int, p Point)
	FitViewport(b Bounds)
}

// Labeler is implemented by views that can attach a caption to a marker.
type Labeler interface {
	LabelMarker(h MarkerHandle, label string)
}

// Bounds is the smallest lat/lon box containing every extended point.
// The zero value is empty.
type Bounds struct {
	sw, ne Point
	n      int
}

func (b *Bounds) Extend(p Point) {
	if b.n == 0 {
		b.sw, b.ne = p, p
	} else {
		b.sw.Lat = min(b.sw.Lat, p.Lat)
		b.sw.Lon = min(b.sw.Lon, p.Lon)
		b.ne.Lat = max(b.ne.Lat, p.Lat)
		b.ne.Lon = max(b.ne.Lon, p.Lon)
	}
	b.n++
}

func (b Bounds) IsEmpty() bool { return b.n == 0 }

func (b Bounds) SouthWest() Point { return b.sw }

func (b Bounds) NorthEast() Point { return b.ne }

// Center is the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{Lat: (b.sw.Lat + b.ne.Lat) / 2, Lon: (b.sw.Lon + b.ne.Lon) / 2}
}
