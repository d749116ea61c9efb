package mapview

import (
	"sync"

	geojson "github.com/paulmach/go.geojson"

	"gtfsrt-livemap/internal/palette"
)

const (
	pathStrokeOpacity = 0.8
	pathStrokeWeight  = 4
)

type sceneMarker struct {
	pos   Point
	color palette.Color
	label string
}

type scenePath struct {
	points []Point
	color  palette.Color
}

// Scene is a View that keeps markers and paths in memory. It is safe for
// concurrent use so HTTP handlers can export it while the frame loop draws.
type Scene struct {
	mu       sync.RWMutex
	markers  []sceneMarker
	paths    []scenePath
	viewport Bounds
	version  uint64
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) CreateMarker(p Point, c palette.Color) MarkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, sceneMarker{pos: p, color: c})
	s.version++
	return MarkerHandle(len(s.markers) - 1)
}

func (s *Scene) LabelMarker(h MarkerHandle, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.marker(h); m != nil {
		m.label = label
		s.version++
	}
}

func (s *Scene) SetMarkerPosition(h MarkerHandle, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.marker(h); m != nil {
		m.pos = p
		s.version++
	}
}

func (s *Scene) CreatePath(points []Point, c palette.Color) PathHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, scenePath{points: append([]Point(nil), points...), color: c})
	s.version++
	return PathHandle(len(s.paths) - 1)
}

func (s *Scene) AppendToPath(h PathHandle, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path := s.path(h); path != nil {
		path.points = append(path.points, p)
		s.version++
	}
}

func (s *Scene) SetPathEndpoint(h PathHandle, index int, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(h)
	if path == nil || index < 0 || index >= len(path.points) {
		return
	}
	path.points[index] = p
	s.version++
}

func (s *Scene) FitViewport(b Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = b
	s.version++
}

// Version changes whenever the scene is drawn into.
func (s *Scene) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// MarkerPosition reports where a marker currently sits.
func (s *Scene) MarkerPosition(h MarkerHandle) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.marker(h); m != nil {
		return m.pos, true
	}
	return Point{}, false
}

// PathPoints returns a copy of a path's vertices.
func (s *Scene) PathPoints(h PathHandle) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if path := s.path(h); path != nil {
		return append([]Point(nil), path.points...)
	}
	return nil
}

// Viewport returns the last fitted bounds.
func (s *Scene) Viewport() Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// GeoJSON exports paths as LineStrings and markers as Points. Coordinates are
// [lon, lat] as GeoJSON requires; the fitted viewport becomes the bbox.
func (s *Scene) GeoJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	if !s.viewport.IsEmpty() {
		sw, ne := s.viewport.SouthWest(), s.viewport.NorthEast()
		fc.BoundingBox = []float64{sw.Lon, sw.Lat, ne.Lon, ne.Lat}
	}
	for i, path := range s.paths {
		coords := make([][]float64, 0, len(path.points))
		for _, p := range path.points {
			coords = append(coords, []float64{p.Lon, p.Lat})
		}
		f := geojson.NewLineStringFeature(coords)
		f.ID = i
		f.SetProperty("kind", "path")
		f.SetProperty("stroke", path.color.String())
		f.SetProperty("stroke-opacity", pathStrokeOpacity)
		f.SetProperty("stroke-width", pathStrokeWeight)
		fc.AddFeature(f)
	}
	for i, m := range s.markers {
		f := geojson.NewPointFeature([]float64{m.pos.Lon, m.pos.Lat})
		f.ID = i
		f.SetProperty("kind", "marker")
		f.SetProperty("marker-color", m.color.Hex())
		if m.label != "" {
			f.SetProperty("title", m.label)
		}
		fc.AddFeature(f)
	}
	return fc.MarshalJSON()
}

func (s *Scene) marker(h MarkerHandle) *sceneMarker {
	if h < 0 || int(h) >= len(s.markers) {
		return nil
	}
	return &s.markers[h]
}

func (s *Scene) path(h PathHandle) *scenePath {
	if h < 0 || int(h) >= len(s.paths) {
		return nil
	}
	return &s.paths[h]
}
