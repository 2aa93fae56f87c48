package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/soundings"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

// Sample is one logged row: a rangefinder reading paired with a fix.
type Sample struct {
	Time       time.Time
	DistanceCM float64
	Lat        float64
	Lon        float64
}

// Source yields samples. Next returns io.EOF when the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

// MAVLinkSource polls a MAVLink REST bridge.
type MAVLinkSource struct {
	client    httputil.HTTPClient
	endpoints Endpoints
	clock     timeutil.Clock
}

// NewMAVLinkSource returns a source reading the messages at ep.
func NewMAVLinkSource(client httputil.HTTPClient, ep Endpoints, clock timeutil.Clock) *MAVLinkSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &MAVLinkSource{client: client, endpoints: ep, clock: clock}
}

// Endpoints returns the URLs being polled.
func (s *MAVLinkSource) Endpoints() Endpoints { return s.endpoints }

type distanceMessage struct {
	Message struct {
		CurrentDistance float64 `json:"current_distance"`
	} `json:"message"`
}

type positionMessage struct {
	Message struct {
		Lat int64 `json:"lat"`
		Lon int64 `json:"lon"`
	} `json:"message"`
}

// Next fetches both messages. Coordinates arrive in degrees * 1e7.
func (s *MAVLinkSource) Next(ctx context.Context) (Sample, error) {
	var dist distanceMessage
	if err := httputil.GetJSON(ctx, s.client, s.endpoints.DistanceURL(), &dist); err != nil {
		return Sample{}, fmt.Errorf("distance: %w", err)
	}
	var pos positionMessage
	if err := httputil.GetJSON(ctx, s.client, s.endpoints.GPSURL(), &pos); err != nil {
		return Sample{}, fmt.Errorf("position: %w", err)
	}
	return Sample{
		Time:       s.clock.Now(),
		DistanceCM: dist.Message.CurrentDistance,
		Lat:        float64(pos.Message.Lat) / 1e7,
		Lon:        float64(pos.Message.Lon) / 1e7,
	}, nil
}

// ReplaySource plays back a recorded log one row per call, stamping each
// sample with the current time.
type ReplaySource struct {
	points []soundings.Sounding
	pos    int
	clock  timeutil.Clock
}

// NewReplaySource reads the log at path.
func NewReplaySource(path string, clock timeutil.Clock) (*ReplaySource, error) {
	points, _, err := soundings.ReadFiles(path)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("replay %s: %w", path, soundings.ErrEmptyDataset)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ReplaySource{points: points, clock: clock}, nil
}

// Len returns the number of rows in the replayed log.
func (s *ReplaySource) Len() int { return len(s.points) }

func (s *ReplaySource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s.pos >= len(s.points) {
		return Sample{}, io.EOF
	}
	p := s.points[s.pos]
	s.pos++
	return Sample{
		Time:       s.clock.Now(),
		DistanceCM: p.DepthM * 100,
		Lat:        p.Latitude,
		Lon:        p.Longitude,
	}, nil
}
