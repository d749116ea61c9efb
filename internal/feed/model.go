// Package feed polls a vehicle positions feed and publishes the vehicles
// whose positions changed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Vehicle is the normalized model sent to map clients. UID qualifies ID
// with the agency so identifiers from different agencies never collide.
type Vehicle struct {
	UID        string  `json:"uid"`
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LastUpdate int64   `json:"lastUpdate"`
	Agency     string  `json:"agency,omitempty"`
	Hue        float64 `json:"hue"`
}

// Position is what a source reports for one vehicle.
type Position struct {
	ID  string
	Lat float64
	Lon float64
}

type Source interface {
	Fetch(ctx context.Context) ([]Position, error)
}

// httpSource holds what every HTTP feed needs.
type httpSource struct {
	url        string
	httpClient *http.Client
	label      string
}

func newHTTPSource(label, url string, timeout time.Duration) httpSource {
	return httpSource{url: url, httpClient: &http.Client{Timeout: timeout}, label: label}
}

func (s httpSource) get(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s http status: %d", s.label, resp.StatusCode)
	}
	return resp.Body, nil
}
