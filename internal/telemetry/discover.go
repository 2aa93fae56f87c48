package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/depth.survey/internal/httputil"
)

// MAVLink message names read from the bridge.
const (
	MsgGlobalPosition = "GLOBAL_POSITION_INT"
	MsgDistanceSensor = "DISTANCE_SENSOR"
)

// Fallback identifiers used when discovery fails: the autopilot is system 1
// component 1 and the echosounder publishes as component 194.
const (
	DefaultSystemID          = 1
	DefaultGPSComponent      = 1
	DefaultDistanceComponent = 194
)

// Endpoints locates the two messages on a MAVLink REST bridge.
type Endpoints struct {
	BaseURL           string `json:"base_url"`
	SystemID          int    `json:"system_id"`
	GPSComponent      int    `json:"gps_component"`
	DistanceComponent int    `json:"distance_component"`
	Discovered        bool   `json:"discovered"`
}

// DefaultEndpoints returns the fallback layout on baseURL.
func DefaultEndpoints(baseURL string) Endpoints {
	return Endpoints{
		BaseURL:           strings.TrimRight(baseURL, "/"),
		SystemID:          DefaultSystemID,
		GPSComponent:      DefaultGPSComponent,
		DistanceComponent: DefaultDistanceComponent,
	}
}

func (e Endpoints) messageURL(component int, msg string) string {
	return fmt.Sprintf("%s/mavlink/vehicles/%d/components/%d/messages/%s", e.BaseURL, e.SystemID, component, msg)
}

// GPSURL returns the GLOBAL_POSITION_INT message URL.
func (e Endpoints) GPSURL() string { return e.messageURL(e.GPSComponent, MsgGlobalPosition) }

// DistanceURL returns the DISTANCE_SENSOR message URL.
func (e Endpoints) DistanceURL() string { return e.messageURL(e.DistanceComponent, MsgDistanceSensor) }

// Discover walks the bridge's vehicle tree once and returns the components
// publishing position and distance. Any failure along the way falls back
// to DefaultEndpoints; the returned error only explains why.
func Discover(ctx context.Context, client httputil.HTTPClient, baseURL string) (Endpoints, error) {
	ep := DefaultEndpoints(baseURL)

	var vehicles []int
	if err := httputil.GetJSON(ctx, client, ep.BaseURL+"/mavlink/vehicles", &vehicles); err != nil {
		return ep, fmt.Errorf("list vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return ep, fmt.Errorf("bridge reports no vehicles")
	}
	sys := vehicles[0]

	var components []int
	if err := httputil.GetJSON(ctx, client, fmt.Sprintf("%s/mavlink/vehicles/%d/components", ep.BaseURL, sys), &components); err != nil {
		return ep, fmt.Errorf("list components of system %d: %w", sys, err)
	}

	gps, dist := -1, -1
	for _, comp := range components {
		var msgs []string
		url := fmt.Sprintf("%s/mavlink/vehicles/%d/components/%d/messages", ep.BaseURL, sys, comp)
		if err := httputil.GetJSON(ctx, client, url, &msgs); err != nil {
			diagf("list messages of %d/%d: %v", sys, comp, err)
			continue
		}
		for _, m := range msgs {
			switch {
			case m == MsgGlobalPosition && gps < 0:
				gps = comp
			case m == MsgDistanceSensor && dist < 0:
				dist = comp
			}
		}
	}
	if gps < 0 || dist < 0 {
		return ep, fmt.Errorf("system %d lacks %s or %s", sys, MsgGlobalPosition, MsgDistanceSensor)
	}

	ep.SystemID, ep.GPSComponent, ep.DistanceComponent, ep.Discovered = sys, gps, dist, true
	return ep, nil
}
