package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/skyroof/safetymonitor/internal/infrastructure/influxdb"
	"github.com/skyroof/safetymonitor/internal/infrastructure/mqtt"
)

// Event types broadcast to WebSocket clients.
const (
	EventDecisionChanged   = "decision.changed"
	EventDecisionHeartbeat = "decision.heartbeat"
)

// StatePayload is the JSON published to the MQTT state topic and pushed to
// WebSocket clients.
type StatePayload struct {
	EventID       string    `json:"eventId"`
	Site          string    `json:"site"`
	IsSafe        bool      `json:"isSafe"`
	Reason        string    `json:"reason"`
	Description   string    `json:"description"`
	SolarAltitude *float64  `json:"solarAltitude"`
	RoofName      string    `json:"roofName,omitempty"`
	Changed       bool      `json:"changed"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}

// NewStatePayload flattens an event for publishing.
func NewStatePayload(ev Event) StatePayload {
	return StatePayload{
		EventID:       ev.ID,
		Site:          ev.Site,
		IsSafe:        ev.Decision.IsSafe,
		Reason:        string(ev.Decision.Reason),
		Description:   ev.Decision.Reason.Description(),
		SolarAltitude: ev.Decision.SolarAltitude,
		RoofName:      ev.Decision.RoofName,
		Changed:       ev.Changed,
		EvaluatedAt:   ev.Decision.EvaluatedAt,
	}
}

// JSONPublisher is the part of the MQTT client the sink uses.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTSink keeps a retained state message current and posts an event
// message whenever the verdict changes.
type MQTTSink struct {
	client JSONPublisher
	topics mqtt.Topics
}

// NewMQTTSink creates an MQTT sink.
func NewMQTTSink(client JSONPublisher, topics mqtt.Topics) *MQTTSink {
	return &MQTTSink{client: client, topics: topics}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Publish implements Sink.
func (s *MQTTSink) Publish(_ context.Context, ev Event) error {
	payload := NewStatePayload(ev)
	if err := s.client.PublishJSON(s.topics.State(), payload, true); err != nil {
		return fmt.Errorf("publishing state: %w", err)
	}
	if ev.Changed {
		if err := s.client.PublishJSON(s.topics.Event(), payload, false); err != nil {
			return fmt.Errorf("publishing event: %w", err)
		}
	}
	return nil
}

// PointWriter is the part of the InfluxDB client the sink uses.
type PointWriter interface {
	WriteDecision(d influxdb.Decision)
	WriteAltitude(site string, degrees float64, at time.Time)
}

// InfluxSink records every evaluation as time-series points. Writes are
// batched by the client; failures surface through its error callback.
type InfluxSink struct {
	writer PointWriter
}

// NewInfluxSink creates an InfluxDB sink.
func NewInfluxSink(w PointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Publish implements Sink.
func (s *InfluxSink) Publish(_ context.Context, ev Event) error {
	s.writer.WriteDecision(influxdb.Decision{
		Site:     ev.Site,
		IsSafe:   ev.Decision.IsSafe,
		Reason:   string(ev.Decision.Reason),
		RoofName: ev.Decision.RoofName,
		Changed:  ev.Changed,
		At:       ev.At,
	})
	if alt := ev.Decision.SolarAltitude; alt != nil {
		s.writer.WriteAltitude(ev.Site, *alt, ev.At)
	}
	return nil
}

// Broadcaster pushes a typed message to every connected WebSocket client.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// HubSink forwards evaluations to WebSocket clients.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink creates a WebSocket sink.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "websocket" }

// Publish implements Sink.
func (s *HubSink) Publish(_ context.Context, ev Event) error {
	typ := EventDecisionHeartbeat
	if ev.Changed {
		typ = EventDecisionChanged
	}
	s.hub.Broadcast(typ, NewStatePayload(ev))
	return nil
}
