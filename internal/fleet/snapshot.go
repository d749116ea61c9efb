package fleet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gtfsrt-livemap/internal/mapview"
)

// ErrDecode marks a batch payload that could not be decoded. The whole batch
// is dropped.
var ErrDecode = errors.New("decode batch")

// Stamp is the logical time of a snapshot. Only its ordering matters; it may
// be a wall clock in milliseconds or a sequence counter. Two integral stamps
// compare exactly across the whole int64 range; anything else compares as
// float64.
type Stamp struct {
	i     int64
	f     float64
	exact bool
}

func IntStamp(n int64) Stamp { return Stamp{i: n, f: float64(n), exact: true} }

// FloatStamp keeps integral values below 2^53 exact so they compare equal to
// the IntStamp of the same value.
func FloatStamp(f float64) Stamp {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return IntStamp(int64(f))
	}
	return Stamp{f: f}
}

// ParseStamp reads a JSON number, keeping integers exact.
func ParseStamp(n json.Number) (Stamp, error) {
	if i, err := n.Int64(); err == nil {
		return IntStamp(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Stamp{}, fmt.Errorf("lastUpdate %q is not a number", n)
	}
	return FloatStamp(f), nil
}

func (s Stamp) After(o Stamp) bool {
	if s.exact && o.exact {
		return s.i > o.i
	}
	return s.f > o.f
}

func (s Stamp) String() string {
	if s.exact {
		return strconv.FormatInt(s.i, 10)
	}
	return strconv.FormatFloat(s.f, 'g', -1, 64)
}

// Snapshot is one vehicle's reported position within a batch. ID is the
// display identifier used for coloring and defaults to UID.
type Snapshot struct {
	UID        string
	ID         string
	Lat        float64
	Lon        float64
	LastUpdate Stamp
	Agency     string
	Hue        *float64
}

func (s Snapshot) Point() mapview.Point {
	return mapview.Point{Lat: s.Lat, Lon: s.Lon}
}

// identifier accepts a JSON string or number.
type identifier string

func (id *identifier) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = identifier(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %s", b)
	}
	*id = identifier(n.String())
	return nil
}

type wireSnapshot struct {
	UID        *identifier  `json:"uid"`
	ID         *identifier  `json:"id"`
	Lat        *float64     `json:"lat"`
	Lon        *float64     `json:"lon"`
	LastUpdate *json.Number `json:"lastUpdate"`
	Agency     string       `json:"agency"`
	Hue        *float64     `json:"hue"`
}

// DecodeBatch parses a channel message: a JSON array of vehicle objects. A
// JSON null is an empty batch. Any malformed element fails the whole batch.
func DecodeBatch(payload []byte) ([]Snapshot, error) {
	var wire []wireSnapshot
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	out := make([]Snapshot, 0, len(wire))
	for i, w := range wire {
		s, err := w.snapshot()
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrDecode, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (w wireSnapshot) snapshot() (Snapshot, error) {
	var s Snapshot
	switch {
	case w.UID != nil:
		s.UID = string(*w.UID)
	case w.ID != nil:
		s.UID = string(*w.ID)
	default:
		return s, errors.New("missing uid")
	}
	s.ID = s.UID
	if w.ID != nil && *w.ID != "" {
		s.ID = string(*w.ID)
	}
	if w.Lat == nil || w.Lon == nil {
		return s, errors.New("missing lat/lon")
	}
	if w.LastUpdate == nil {
		return s, errors.New("missing lastUpdate")
	}
	ts, err := ParseStamp(*w.LastUpdate)
	if err != nil {
		return s, err
	}
	s.Lat, s.Lon = *w.Lat, *w.Lon
	s.LastUpdate = ts
	s.Agency = w.Agency
	s.Hue = w.Hue
	return s, nil
}
