package fleet

import (
	"errors"
	"testing"

	"gtfsrt-livemap/internal/mapview"
)

func TestDecodeBatch(t *testing.T) {
	payload := []byte(`[
		{"uid": 1, "lat": 10, "lon": 20.5, "lastUpdate": 3},
		{"uid": "bus-7", "id": "7", "lat": -1, "lon": 2, "lastUpdate": 1700000000000, "agency": "KCATA", "hue": 0.25}
	]`)
	got, err := DecodeBatch(payload)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].UID != "1" || got[0].ID != "1" || got[0].Lon != 20.5 || got[0].LastUpdate != IntStamp(3) {
		t.Errorf("first snapshot = %+v", got[0])
	}
	if got[1].UID != "bus-7" || got[1].ID != "7" || got[1].Agency != "KCATA" {
		t.Errorf("second snapshot = %+v", got[1])
	}
	if got[1].Hue == nil || *got[1].Hue != 0.25 {
		t.Errorf("hue = %v, want 0.25", got[1].Hue)
	}
}

func TestDecodeBatchIDFallback(t *testing.T) {
	got, err := DecodeBatch([]byte(`[{"id": "A1", "lat": 1, "lon": 2, "lastUpdate": 5}]`))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if got[0].UID != "A1" {
		t.Errorf("UID = %q, want A1", got[0].UID)
	}
}

func TestDecodeBatchEmpty(t *testing.T) {
	for _, in := range []string{`null`, `[]`} {
		got, err := DecodeBatch([]byte(in))
		if err != nil {
			t.Fatalf("DecodeBatch(%s): %v", in, err)
		}
		if len(got) != 0 {
			t.Errorf("DecodeBatch(%s) = %v, want empty", in, got)
		}
	}
}

func TestDecodeBatchFailures(t *testing.T) {
	tests := map[string]string{
		"not json":       `{{`,
		"object":         `{"uid": 1}`,
		"missing uid":    `[{"lat": 1, "lon": 2, "lastUpdate": 1}]`,
		"missing lon":    `[{"uid": 1, "lat": 1, "lastUpdate": 1}]`,
		"missing update": `[{"uid": 1, "lat": 1, "lon": 2}]`,
		"bad uid":        `[{"uid": true, "lat": 1, "lon": 2, "lastUpdate": 1}]`,
		"bad update":     `[{"uid": 1, "lat": 1, "lon": 2, "lastUpdate": "soon"}]`,
		"one bad":        `[{"uid": 1, "lat": 1, "lon": 2, "lastUpdate": 1}, {"uid": 2, "lat": "x", "lon": 2, "lastUpdate": 1}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBatch([]byte(in))
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("err = %v, want ErrDecode", err)
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	scene := mapview.NewScene()
	r := NewRegistry(scene)

	first := Snapshot{UID: "1", ID: "1", Lat: 10, Lon: 10, LastUpdate: IntStamp(1)}
	v, res := r.Resolve(first)
	if res != Created {
		t.Fatalf("resolution = %v, want created", res)
	}
	if v.LastUpdate != IntStamp(1) || len(v.Path) != 1 || v.Position() != (mapview.Point{Lat: 10, Lon: 10}) {
		t.Fatalf("new vehicle = %+v", v)
	}
	if pos, ok := scene.MarkerPosition(v.Marker); !ok || pos != first.Point() {
		t.Errorf("marker at %v, want %v", pos, first.Point())
	}
	if pts := scene.PathPoints(v.Line); len(pts) != 1 {
		t.Errorf("path = %v, want one point", pts)
	}

	if _, res := r.Resolve(Snapshot{UID: "1", Lat: 11, Lon: 11, LastUpdate: IntStamp(2)}); res != Fresh {
		t.Errorf("newer snapshot resolution = %v, want fresh", res)
	}
	if v.LastUpdate != IntStamp(1) {
		t.Errorf("Resolve mutated LastUpdate to %v", v.LastUpdate)
	}
	for _, ts := range []Stamp{IntStamp(1), IntStamp(0)} {
		if _, res := r.Resolve(Snapshot{UID: "1", Lat: 50, Lon: 50, LastUpdate: ts}); res != Stale {
			t.Errorf("lastUpdate %v resolution = %v, want stale", ts, res)
		}
	}
	if v.Position() != (mapview.Point{Lat: 10, Lon: 10}) || len(v.Path) != 1 {
		t.Errorf("stale snapshot mutated vehicle: %+v", v)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestVehicleSegment(t *testing.T) {
	scene := mapview.NewScene()
	r := NewRegistry(scene)
	v, _ := r.Resolve(Snapshot{UID: "x", Lat: 1, Lon: 1, LastUpdate: IntStamp(1)})

	start := v.BeginSegment(scene)
	if start != (mapview.Point{Lat: 1, Lon: 1}) || len(v.Path) != 2 {
		t.Fatalf("BeginSegment = %v, path %v", start, v.Path)
	}
	v.MoveTo(scene, mapview.Point{Lat: 2, Lon: 2})
	if v.Path[0] != start || v.Position() != (mapview.Point{Lat: 2, Lon: 2}) {
		t.Errorf("path = %v", v.Path)
	}
	pts := scene.PathPoints(v.Line)
	if len(pts) != 2 || pts[1] != (mapview.Point{Lat: 2, Lon: 2}) {
		t.Errorf("scene path = %v", pts)
	}
	if pos, _ := scene.MarkerPosition(v.Marker); pos != (mapview.Point{Lat: 2, Lon: 2}) {
		t.Errorf("marker = %v", pos)
	}
}

func TestStampOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Stamp
		want bool
	}{
		{"ints", IntStamp(2), IntStamp(1), true},
		{"equal ints", IntStamp(2), IntStamp(2), false},
		{"above 2^53", IntStamp(1<<53 + 1), IntStamp(1 << 53), true},
		{"fractional", FloatStamp(1.5), IntStamp(1), true},
		{"int after fraction", IntStamp(2), FloatStamp(1.5), true},
	}
	for _, tc := range tests {
		if got := tc.a.After(tc.b); got != tc.want {
			t.Errorf("%s: %v.After(%v) = %t, want %t", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
	if FloatStamp(3) != IntStamp(3) {
		t.Errorf("FloatStamp(3) = %#v, want IntStamp(3)", FloatStamp(3))
	}
}

func TestResolveLargeSequenceStamps(t *testing.T) {
	got, err := DecodeBatch([]byte(`[
		{"uid": "c", "lat": 1, "lon": 1, "lastUpdate": 9007199254740992},
		{"uid": "c", "lat": 2, "lon": 2, "lastUpdate": 9007199254740993}
	]`))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if got[1].LastUpdate.String() != "9007199254740993" {
		t.Fatalf("stamp = %v, want it decoded exactly", got[1].LastUpdate)
	}

	r := NewRegistry(mapview.NewScene())
	r.Resolve(got[0])
	if _, res := r.Resolve(got[1]); res != Fresh {
		t.Fatalf("resolution = %v, want fresh for the next sequence number", res)
	}
}
