package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skyroof/safetymonitor/internal/infrastructure/influxdb"
	"github.com/skyroof/safetymonitor/internal/infrastructure/mqtt"
	"github.com/skyroof/safetymonitor/internal/safety"
)

type published struct {
	topic    string
	payload  any
	retained bool
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	p.msgs = append(p.msgs, published{topic: topic, payload: v, retained: retained})
	return p.err
}

func testTopics(t *testing.T) mqtt.Topics {
	t.Helper()
	topics, err := mqtt.NewTopics("east")
	if err != nil {
		t.Fatalf("NewTopics() error = %v", err)
	}
	return topics
}

func TestMQTTSink(t *testing.T) {
	topics := testTopics(t)

	t.Run("unchanged publishes retained state only", func(t *testing.T) {
		pub := &fakePublisher{}
		sink := NewMQTTSink(pub, topics)
		if err := sink.Publish(context.Background(), Event{ID: "1", Site: "east", Decision: open}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if len(pub.msgs) != 1 {
			t.Fatalf("messages = %d, want 1", len(pub.msgs))
		}
		if pub.msgs[0].topic != topics.State() || !pub.msgs[0].retained {
			t.Errorf("message = %+v, want retained on %s", pub.msgs[0], topics.State())
		}
		payload, ok := pub.msgs[0].payload.(StatePayload)
		if !ok || !payload.IsSafe || payload.Reason != string(safety.ReasonRoofOpen) {
			t.Errorf("payload = %+v", pub.msgs[0].payload)
		}
	})

	t.Run("changed also publishes event", func(t *testing.T) {
		pub := &fakePublisher{}
		sink := NewMQTTSink(pub, topics)
		if err := sink.Publish(context.Background(), Event{Decision: closed, Changed: true}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if len(pub.msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(pub.msgs))
		}
		if pub.msgs[1].topic != topics.Event() || pub.msgs[1].retained {
			t.Errorf("second message = %+v, want non-retained on %s", pub.msgs[1], topics.Event())
		}
	})

	t.Run("publish error is returned", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("not connected")}
		sink := NewMQTTSink(pub, topics)
		if err := sink.Publish(context.Background(), Event{Decision: open}); err == nil {
			t.Error("Publish() error = nil, want error")
		}
	})
}

type fakeWriter struct {
	decisions []influxdb.Decision
	altitudes []float64
}

func (w *fakeWriter) WriteDecision(d influxdb.Decision) { w.decisions = append(w.decisions, d) }

func (w *fakeWriter) WriteAltitude(_ string, degrees float64, _ time.Time) {
	w.altitudes = append(w.altitudes, degrees)
}

func TestInfluxSink(t *testing.T) {
	w := &fakeWriter{}
	sink := NewInfluxSink(w)
	at := time.Date(2024, 6, 21, 22, 0, 0, 0, time.UTC)

	alt := -18.0
	night := safety.Decision{IsSafe: true, Reason: safety.ReasonRoofOpen, RoofName: "north", SolarAltitude: &alt}
	if err := sink.Publish(context.Background(), Event{Site: "east", Decision: night, Changed: true, At: at}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := sink.Publish(context.Background(), Event{Site: "east", Decision: safety.Decision{Reason: safety.ReasonManualOverride}, At: at}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.decisions) != 2 {
		t.Fatalf("decisions written = %d, want 2", len(w.decisions))
	}
	got := w.decisions[0]
	if got.Site != "east" || !got.IsSafe || got.Reason != "roof_open" || got.RoofName != "north" || !got.Changed || !got.At.Equal(at) {
		t.Errorf("decision point = %+v", got)
	}
	if len(w.altitudes) != 1 || w.altitudes[0] != -18 {
		t.Errorf("altitudes = %v, want [-18] (override decision carries none)", w.altitudes)
	}
}

type fakeHub struct {
	types []string
}

func (h *fakeHub) Broadcast(eventType string, _ any) { h.types = append(h.types, eventType) }

func TestHubSink(t *testing.T) {
	hub := &fakeHub{}
	sink := NewHubSink(hub)

	_ = sink.Publish(context.Background(), Event{Decision: open, Changed: true})
	_ = sink.Publish(context.Background(), Event{Decision: open})

	want := []string{EventDecisionChanged, EventDecisionHeartbeat}
	if len(hub.types) != len(want) {
		t.Fatalf("broadcasts = %v, want %v", hub.types, want)
	}
	for i := range want {
		if hub.types[i] != want[i] {
			t.Errorf("broadcast %d = %q, want %q", i, hub.types[i], want[i])
		}
	}
}

func TestNewStatePayload(t *testing.T) {
	evaluated := time.Date(2024, 6, 21, 22, 0, 0, 0, time.UTC)
	d := closed
	d.EvaluatedAt = evaluated

	p := NewStatePayload(Event{ID: "abc", Site: "east", Decision: d, Changed: true})
	if p.EventID != "abc" || p.Site != "east" || p.IsSafe || !p.Changed {
		t.Errorf("payload = %+v", p)
	}
	if p.Description != safety.ReasonRoofUnsafe.Description() {
		t.Errorf("Description = %q", p.Description)
	}
	if !p.EvaluatedAt.Equal(evaluated) {
		t.Errorf("EvaluatedAt = %v, want %v", p.EvaluatedAt, evaluated)
	}
}
