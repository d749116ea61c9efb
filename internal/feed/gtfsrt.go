package feed

import (
	"context"
	"io"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// GtfsRt reads a GTFS-realtime VehiclePositions protobuf feed.
type GtfsRt struct {
	httpSource
}

func NewGtfsRt(url string, timeout time.Duration) *GtfsRt {
	return &GtfsRt{newHTTPSource("gtfs-rt", url, timeout)}
}

func (s *GtfsRt) Fetch(ctx context.Context) ([]Position, error) {
	body, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	var msg gtfs.FeedMessage
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return positionsFromFeed(&msg), nil
}

// positionsFromFeed keeps entities that carry both a position and an
// identifier. The vehicle descriptor id is preferred over the entity id.
func positionsFromFeed(msg *gtfs.FeedMessage) []Position {
	out := make([]Position, 0, len(msg.GetEntity()))
	for _, ent := range msg.GetEntity() {
		vp := ent.GetVehicle()
		if vp == nil || vp.Position == nil || vp.Position.Latitude == nil || vp.Position.Longitude == nil {
			continue
		}
		id := vp.GetVehicle().GetId()
		if id == "" {
			id = ent.GetId()
		}
		if id == "" {
			continue
		}
		out = append(out, Position{
			ID:  id,
			Lat: float64(vp.Position.GetLatitude()),
			Lon: float64(vp.Position.GetLongitude()),
		})
	}
	return out
}
