// Package animate turns position updates into per-frame render operations
// and plays them back a frame at a time.
package animate

import (
	"gtfsrt-livemap/internal/fleet"
	"gtfsrt-livemap/internal/mapview"
)

// DefaultSteps is the number of frames a move is spread over.
const DefaultSteps = 30

// Interpolate returns steps points moving linearly from `from` to `to`. The
// i-th point is computed from (i+1)/steps so the last one is exactly `to`.
// A zero-length move yields nil.
func Interpolate(from, to mapview.Point, steps int) []mapview.Point {
	if from == to {
		return nil
	}
	if steps < 1 {
		steps = 1
	}
	dLat := to.Lat - from.Lat
	dLon := to.Lon - from.Lon
	out := make([]mapview.Point, steps)
	n := float64(steps)
	for i := range out {
		k := float64(i + 1)
		out[i] = mapview.Point{Lat: from.Lat + dLat*k/n, Lon: from.Lon + dLon*k/n}
	}
	out[steps-1] = to
	return out
}

// Plan commits ts and target as the vehicle's latest accepted update. When
// target differs from the previous one it opens a new path segment and
// returns the positions that animate the vehicle from where it is drawn into
// place. If the marker already sits on target because an older animation is
// passing through it, the positions all hold target, so this queue still
// drains after the older one and pins the vehicle there.
func Plan(view mapview.View, v *fleet.Vehicle, target mapview.Point, ts fleet.Stamp, steps int) []mapview.Point {
	v.LastUpdate = ts
	if target == v.Target {
		return nil
	}
	v.Target = target
	positions := Interpolate(v.Position(), target, steps)
	if positions == nil {
		positions = hold(target, steps)
	}
	v.BeginSegment(view)
	return positions
}

func hold(p mapview.Point, steps int) []mapview.Point {
	if steps < 1 {
		steps = 1
	}
	out := make([]mapview.Point, steps)
	for i := range out {
		out[i] = p
	}
	return out
}
