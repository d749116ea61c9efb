package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// SiriXML reads a SIRI VehicleMonitoring delivery encoded as XML.
type SiriXML struct {
	httpSource
}

func NewSiriXML(url string, timeout time.Duration) *SiriXML {
	return &SiriXML{newHTTPSource("siri xml", url, timeout)}
}

func (s *SiriXML) Fetch(ctx context.Context) ([]Position, error) {
	body, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return positionsFromSiriXML(body)
}

// activity collects one VehicleActivity while streaming.
type activity struct {
	id, lat, lon string
}

func (a activity) position() (Position, bool) {
	if a.id == "" {
		return Position{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(a.lat), 64)
	if err != nil {
		return Position{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(a.lon), 64)
	if err != nil {
		return Position{}, false
	}
	return Position{ID: a.id, Lat: lat, Lon: lon}, true
}

// positionsFromSiriXML streams the document and matches element local names,
// so namespace prefixes do not matter.
func positionsFromSiriXML(r io.Reader) ([]Position, error) {
	dec := xml.NewDecoder(r)
	var (
		out        []Position
		cur        *activity
		inLocation bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "VehicleActivity":
				cur = &activity{}
			case "VehicleLocation":
				inLocation = cur != nil
			case "VehicleRef", "Latitude", "Longitude":
				if cur == nil {
					continue
				}
				var v string
				if err := dec.DecodeElement(&v, &el); err != nil {
					return nil, err
				}
				switch {
				case el.Name.Local == "VehicleRef":
					cur.id = strings.TrimSpace(v)
				case !inLocation:
				case el.Name.Local == "Latitude":
					cur.lat = v
				default:
					cur.lon = v
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "VehicleLocation":
				inLocation = false
			case "VehicleActivity":
				if cur != nil {
					if p, ok := cur.position(); ok {
						out = append(out, p)
					}
				}
				cur = nil
			}
		}
	}
}
