package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/skyroof/safetymonitor/internal/infrastructure/config"
)

func TestNewTopics(t *testing.T) {
	topics, err := NewTopics("rolloff-east")
	if err != nil {
		t.Fatalf("NewTopics() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state", topics.State(), "safetymonitor/rolloff-east/state"},
		{"event", topics.Event(), "safetymonitor/rolloff-east/event"},
		{"status", topics.Status(), "safetymonitor/rolloff-east/status"},
		{"all", topics.All(), "safetymonitor/rolloff-east/#"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewTopics_RejectsBadSite(t *testing.T) {
	for _, site := range []string{"", "a/b", "site+", "#"} {
		if _, err := NewTopics(site); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("NewTopics(%q) error = %v, want ErrInvalidTopic", site, err)
		}
	}
}

func TestValidatePublish(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "ok", topic: "t", payload: []byte("{}"), qos: 1},
		{name: "nil payload ok", topic: "t", qos: 0},
		{name: "empty topic", topic: "", qos: 1, wantErr: ErrInvalidTopic},
		{name: "bad qos", topic: "t", qos: 3, wantErr: ErrInvalidQoS},
		{name: "too large", topic: "t", payload: make([]byte, maxPayloadSize+1), wantErr: ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePublish(tt.topic, tt.payload, tt.qos)
			if tt.wantErr == nil && err != nil {
				t.Errorf("validatePublish() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validatePublish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true, ClientID: "sm-1"},
		Auth:   config.MQTTAuthConfig{Username: "observer", Password: "pw"},
		QoS:    1,
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.lan:8883" {
		t.Errorf("Servers = %v, want ssl://broker.lan:8883", opts.Servers)
	}
	if opts.ClientID != "sm-1" || opts.Username != "observer" {
		t.Errorf("ClientID = %q, Username = %q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS 1.2 minimum not configured")
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect with a clean session")
	}
}

func TestConfigureLWT(t *testing.T) {
	topics, _ := NewTopics("east") //nolint:errcheck // valid site
	opts := buildClientOptions(config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "h", Port: 1883}})

	configureLWT(opts, topics, "sm-1")

	if !opts.WillEnabled || opts.WillTopic != "safetymonitor/east/status" || !opts.WillRetained {
		t.Fatalf("will = enabled %v, topic %q, retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var p statusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if p.Status != StatusOffline || p.ClientID != "sm-1" || p.Reason != "unexpected_disconnect" {
		t.Errorf("will payload = %+v", p)
	}
}

func TestZeroClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}

	empty := &Client{}
	if err := empty.Publish("t", nil, 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}
