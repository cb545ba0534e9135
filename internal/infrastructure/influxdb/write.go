package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDecision = "safety_decision"
	MeasurementAltitude = "solar_altitude"
)

// Decision is the subset of a safety decision recorded as a point.
type Decision struct {
	Site     string
	IsSafe   bool
	Reason   string
	RoofName string
	// Changed marks the first evaluation after a verdict change.
	Changed bool
	At      time.Time
}

// DecisionPoint builds the safety_decision point. Tags carry the
// low-cardinality dimensions (site, reason, roof); fields hold the values.
func DecisionPoint(d Decision) *write.Point {
	tags := map[string]string{
		"site":   d.Site,
		"reason": d.Reason,
	}
	if d.RoofName != "" {
		tags["roof"] = d.RoofName
	}

	safe := int64(0)
	if d.IsSafe {
		safe = 1
	}
	return write.NewPoint(MeasurementDecision, tags, map[string]any{
		"is_safe": safe,
		"changed": d.Changed,
	}, d.At)
}

// AltitudePoint builds the solar_altitude point.
func AltitudePoint(site string, degrees float64, at time.Time) *write.Point {
	return write.NewPoint(MeasurementAltitude,
		map[string]string{"site": site},
		map[string]any{"degrees": degrees},
		at,
	)
}

// WriteDecision queues a safety_decision point.
func (c *Client) WriteDecision(d Decision) {
	c.writePoint(DecisionPoint(d))
}

// WriteAltitude queues a solar_altitude point.
func (c *Client) WriteAltitude(site string, degrees float64, at time.Time) {
	c.writePoint(AltitudePoint(site, degrees, at))
}

// WritePoint queues a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
