// Package fleet keeps the per-vehicle animation state of a session.
package fleet

import (
	"gtfsrt-livemap/internal/mapview"
	"gtfsrt-livemap/internal/palette"
)

// Vehicle is the animation state of one identifier. Path mirrors the
// vertices of the drawn path; its last point is where the marker is drawn
// right now, which lags Target while an animation is in flight.
type Vehicle struct {
	UID        string
	Path       []mapview.Point
	Target     mapview.Point
	LastUpdate Stamp
	Marker     mapview.MarkerHandle
	Line       mapview.PathHandle
}

// Position is the endpoint of the vehicle's path as currently drawn.
func (v *Vehicle) Position() mapview.Point {
	return v.Path[len(v.Path)-1]
}

// BeginSegment duplicates the path endpoint, opening a new segment whose far
// end is then moved by MoveTo. It returns the point the segment starts from.
func (v *Vehicle) BeginSegment(view mapview.View) mapview.Point {
	last := v.Position()
	v.Path = append(v.Path, last)
	view.AppendToPath(v.Line, last)
	return last
}

// MoveTo places the marker and the path endpoint at p.
func (v *Vehicle) MoveTo(view mapview.View, p mapview.Point) {
	view.SetMarkerPosition(v.Marker, p)
	i := len(v.Path) - 1
	v.Path[i] = p
	view.SetPathEndpoint(v.Line, i, p)
}

type Resolution int

const (
	// Created means the snapshot introduced a new vehicle, drawn in place.
	Created Resolution = iota
	// Fresh means the snapshot is newer than the vehicle's last update.
	Fresh
	// Stale means the snapshot is not newer and must be ignored.
	Stale
)

func (r Resolution) String() string {
	switch r {
	case Created:
		return "created"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// Registry maps identifiers to vehicles. It is owned by a single goroutine
// and is not safe for concurrent use.
type Registry struct {
	view        mapview.View
	vehicles    map[string]*Vehicle
	markerColor func() palette.Color
}

func NewRegistry(view mapview.View) *Registry {
	return &Registry{
		view:        view,
		vehicles:    make(map[string]*Vehicle),
		markerColor: palette.NextDistinct,
	}
}

// Resolve finds or creates the vehicle for s. A Fresh result does not touch
// LastUpdate; the planner commits it.
func (r *Registry) Resolve(s Snapshot) (*Vehicle, Resolution) {
	if v, ok := r.vehicles[s.UID]; ok {
		if !s.LastUpdate.After(v.LastUpdate) {
			return v, Stale
		}
		return v, Fresh
	}
	v := r.create(s)
	r.vehicles[s.UID] = v
	return v, Created
}

func (r *Registry) create(s Snapshot) *Vehicle {
	p := s.Point()
	v := &Vehicle{
		UID:        s.UID,
		Path:       []mapview.Point{p},
		Target:     p,
		LastUpdate: s.LastUpdate,
	}
	v.Marker = r.view.CreateMarker(p, r.markerColor())
	if l, ok := r.view.(mapview.Labeler); ok {
		l.LabelMarker(v.Marker, s.UID)
	}
	v.Line = r.view.CreatePath(v.Path, palette.ColorFor(s.ID, s.Agency, s.Hue))
	return v
}

func (r *Registry) Lookup(uid string) (*Vehicle, bool) {
	v, ok := r.vehicles[uid]
	return v, ok
}

func (r *Registry) Len() int { return len(r.vehicles) }
