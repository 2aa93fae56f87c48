// Package telemetry records depth soundings from a survey vehicle. It polls
// the vehicle's MAVLink REST bridge for position and rangefinder messages,
// writes them to rotating CSV logs, and can replay a finished log as a
// simulated vehicle.
package telemetry

import "github.com/banshee-data/depth.survey/internal/monitoring"

var (
	opsf   = monitoring.For("telemetry").Opsf
	diagf  = monitoring.For("telemetry").Diagf
	tracef = monitoring.For("telemetry").Tracef
)
