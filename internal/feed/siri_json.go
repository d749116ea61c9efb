package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// SiriJSON reads a SIRI VehicleMonitoring delivery encoded as JSON.
type SiriJSON struct {
	httpSource
}

func NewSiriJSON(url string, timeout time.Duration) *SiriJSON {
	return &SiriJSON{newHTTPSource("siri json", url, timeout)}
}

func (s *SiriJSON) Fetch(ctx context.Context) ([]Position, error) {
	body, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var root object
	if err := json.NewDecoder(body).Decode(&root); err != nil {
		return nil, err
	}
	return positionsFromSiriJSON(root), nil
}

type object = map[string]any

// positionsFromSiriJSON walks
// [Siri.]ServiceDelivery.VehicleMonitoringDelivery[].VehicleActivity[].
func positionsFromSiriJSON(root object) []Position {
	if siri, ok := root["Siri"].(object); ok {
		root = siri
	}
	sd, _ := root["ServiceDelivery"].(object)
	out := make([]Position, 0, 256)
	for _, d := range arrayOf(sd["VehicleMonitoringDelivery"]) {
		vmd, _ := d.(object)
		for _, a := range arrayOf(vmd["VehicleActivity"]) {
			va, _ := a.(object)
			mvj, _ := va["MonitoredVehicleJourney"].(object)
			if mvj == nil {
				continue
			}
			id := text(mvj["VehicleRef"])
			if id == "" {
				id = text(nested(mvj, "FramedVehicleJourneyRef")["DatedVehicleJourneyRef"])
			}
			loc := nested(mvj, "VehicleLocation")
			lat, latOK := number(loc["Latitude"])
			lon, lonOK := number(loc["Longitude"])
			if id == "" || !latOK || !lonOK {
				continue
			}
			out = append(out, Position{ID: id, Lat: lat, Lon: lon})
		}
	}
	return out
}

// arrayOf tolerates producers that emit a single object instead of a
// one-element array.
func arrayOf(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case object:
		return []any{t}
	default:
		return nil
	}
}

func nested(m object, key string) object {
	n, _ := m[key].(object)
	return n
}

// text reads a plain string or a SIRI {"value": "..."} wrapper.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case object:
		s, _ := t["value"].(string)
		return s
	default:
		return ""
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
