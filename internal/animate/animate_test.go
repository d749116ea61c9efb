package animate

import (
	"context"
	"testing"
	"time"

	"gtfsrt-livemap/internal/fleet"
	"gtfsrt-livemap/internal/mapview"
)

func TestInterpolate(t *testing.T) {
	got := Interpolate(mapview.Point{}, mapview.Point{Lat: 30, Lon: 60}, 30)
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	for i, p := range got {
		want := mapview.Point{Lat: float64(i + 1), Lon: float64(2 * (i + 1))}
		if p != want {
			t.Errorf("step %d = %v, want %v", i, p, want)
		}
	}
}

func TestInterpolateEndsOnTarget(t *testing.T) {
	from := mapview.Point{Lat: 39.0851, Lon: -94.5857}
	to := mapview.Point{Lat: 39.0999, Lon: -94.5781}
	for _, steps := range []int{1, 7, 30, 97} {
		got := Interpolate(from, to, steps)
		if len(got) != steps {
			t.Fatalf("steps=%d: len = %d", steps, len(got))
		}
		if got[steps-1] != to {
			t.Errorf("steps=%d: last = %v, want %v", steps, got[steps-1], to)
		}
	}
}

func TestInterpolateDegenerate(t *testing.T) {
	p := mapview.Point{Lat: 10, Lon: 20}
	if got := Interpolate(p, p, 30); got != nil {
		t.Fatalf("Interpolate(p, p) = %v, want nil", got)
	}
}

func newVehicle(scene *mapview.Scene, lat, lon float64) *fleet.Vehicle {
	r := fleet.NewRegistry(scene)
	v, _ := r.Resolve(fleet.Snapshot{UID: "v", Lat: lat, Lon: lon, LastUpdate: fleet.IntStamp(1)})
	return v
}

func TestPlan(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 0, 0)

	got := Plan(scene, v, mapview.Point{Lat: 30, Lon: 60}, fleet.IntStamp(2), 30)
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	if v.LastUpdate != fleet.IntStamp(2) {
		t.Errorf("LastUpdate = %v, want 2", v.LastUpdate)
	}
	if len(v.Path) != 2 || v.Path[1] != (mapview.Point{}) {
		t.Errorf("path = %v, want duplicated start", v.Path)
	}
	if pts := scene.PathPoints(v.Line); len(pts) != 2 {
		t.Errorf("scene path = %v", pts)
	}
}

func TestPlanStationary(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 10, 20)

	if got := Plan(scene, v, mapview.Point{Lat: 10, Lon: 20}, fleet.IntStamp(5), 30); len(got) != 0 {
		t.Fatalf("Plan = %v, want no steps", got)
	}
	if v.LastUpdate != fleet.IntStamp(5) {
		t.Errorf("LastUpdate = %v, want 5", v.LastUpdate)
	}
	if len(v.Path) != 1 {
		t.Errorf("path grew to %v", v.Path)
	}
}

func TestPlanTargetAtRenderedPosition(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 0, 0)
	Plan(scene, v, mapview.Point{Lat: 0, Lon: 30}, fleet.IntStamp(2), 30)
	passing := mapview.Point{Lat: 0, Lon: 10}
	v.MoveTo(scene, passing)

	got := Plan(scene, v, passing, fleet.IntStamp(3), 4)
	if len(got) != 4 {
		t.Fatalf("Plan = %v, want 4 steps holding the target", got)
	}
	for i, p := range got {
		if p != passing {
			t.Errorf("step %d = %v, want %v", i, p, passing)
		}
	}
	if v.Target != passing {
		t.Errorf("Target = %v, want %v", v.Target, passing)
	}
}

func TestFrameQueue(t *testing.T) {
	q := NewFrameQueue(3)
	v := &fleet.Vehicle{}
	q.Schedule(0, Operation{Vehicle: v, Position: mapview.Point{Lat: 1}})
	q.Schedule(2, Operation{Vehicle: v, Position: mapview.Point{Lat: 3}})
	q.Schedule(0, Operation{Vehicle: v, Position: mapview.Point{Lat: 1.5}})
	if q.Len() != 3 || q.Ops() != 3 {
		t.Fatalf("Len=%d Ops=%d", q.Len(), q.Ops())
	}

	wantSizes := []int{2, 0, 1}
	for i, want := range wantSizes {
		ops, ok := q.DrainOne()
		if !ok || len(ops) != want {
			t.Fatalf("slot %d: %d ops, ok=%t, want %d", i, len(ops), ok, want)
		}
	}
	if _, ok := q.DrainOne(); ok {
		t.Fatal("DrainOne on exhausted queue reported a slot")
	}
	if q.Ops() != 0 {
		t.Errorf("Ops() = %d after drain", q.Ops())
	}
}

type countingMetrics struct {
	frames, ops, active int
}

func (m *countingMetrics) FrameDrained(ops int) { m.frames++; m.ops += ops }
func (m *countingMetrics) QueuesActive(n int)   { m.active = n }

func queueFor(scene *mapview.Scene, v *fleet.Vehicle, target mapview.Point, ts int64, steps int) *FrameQueue {
	q := NewFrameQueue(steps)
	for i, p := range Plan(scene, v, target, fleet.IntStamp(ts), steps) {
		q.Schedule(i, Operation{Vehicle: v, Position: p})
	}
	return q
}

func TestSchedulerDrainsInOrder(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 10, 10)
	m := &countingMetrics{}
	s := NewScheduler(scene, m)

	s.Start(queueFor(scene, v, mapview.Point{Lat: 10, Lon: 40}, 2, 30))
	prev := 10.0
	for i := 0; i < 30; i++ {
		if n := s.Step(); n != 1 {
			t.Fatalf("step %d applied %d ops", i, n)
		}
		pos, _ := scene.MarkerPosition(v.Marker)
		if pos.Lon <= prev {
			t.Fatalf("step %d: lon %v not increasing from %v", i, pos.Lon, prev)
		}
		prev = pos.Lon
	}
	if s.Active() != 0 {
		t.Fatalf("Active() = %d after 30 steps", s.Active())
	}
	if pos, _ := scene.MarkerPosition(v.Marker); pos != (mapview.Point{Lat: 10, Lon: 40}) {
		t.Errorf("marker = %v, want (10,40)", pos)
	}
	if m.frames != 30 || m.ops != 30 || m.active != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestSchedulerSkipsEmptyQueues(t *testing.T) {
	s := NewScheduler(mapview.NewScene(), nil)
	s.Start(NewFrameQueue(30))
	if s.Active() != 0 {
		t.Fatalf("empty queue was started")
	}
}

func TestSchedulerOverlappingQueuesSettleOnLatestTarget(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 0, 0)
	s := NewScheduler(scene, nil)

	s.Start(queueFor(scene, v, mapview.Point{Lat: 0, Lon: 30}, 2, 30))
	for i := 0; i < 10; i++ {
		s.Step()
	}
	// A newer batch arrives while the first animation is still in flight.
	latest := mapview.Point{Lat: 5, Lon: 12}
	s.Start(queueFor(scene, v, latest, 3, 30))
	if s.Active() != 2 {
		t.Fatalf("Active() = %d, want 2 overlapping queues", s.Active())
	}
	s.Flush()

	if pos, _ := scene.MarkerPosition(v.Marker); pos != latest {
		t.Errorf("marker = %v, want %v", pos, latest)
	}
	if v.Position() != latest {
		t.Errorf("path endpoint = %v, want %v", v.Position(), latest)
	}
	pts := scene.PathPoints(v.Line)
	if pts[len(pts)-1] != latest {
		t.Errorf("scene path endpoint = %v, want %v", pts[len(pts)-1], latest)
	}
}

func TestLoopPlaysBackAndStopsWhenClosed(t *testing.T) {
	scene := mapview.NewScene()
	v := newVehicle(scene, 1, 1)
	s := NewScheduler(scene, nil)

	frames := 0
	handled := 0
	loop := NewLoop(s, time.Millisecond, func(payload []byte) {
		handled++
		s.Start(queueFor(scene, v, mapview.Point{Lat: 2, Lon: 2}, 2, 5))
	}, func() { frames++ })

	batches := make(chan []byte, 1)
	batches <- []byte("[]")
	close(batches)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.Run(ctx, batches); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if handled != 1 || frames != 5 {
		t.Errorf("handled=%d frames=%d, want 1 and 5", handled, frames)
	}
	if pos, _ := scene.MarkerPosition(v.Marker); pos != (mapview.Point{Lat: 2, Lon: 2}) {
		t.Errorf("marker = %v", pos)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	loop := NewLoop(NewScheduler(mapview.NewScene(), nil), 0, func([]byte) {}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx, make(chan []byte)); err != context.Canceled {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}
