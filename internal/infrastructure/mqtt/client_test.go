package mqtt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name:     "state summary",
			build:    topics.StateSummary,
			expected: "pipegraph/state/summary",
		},
		{
			name:     "node controls",
			build:    func() string { return topics.StateNodeControls(51) },
			expected: "pipegraph/state/node/51/controls",
		},
		{
			name:     "defaults",
			build:    topics.StateDefaults,
			expected: "pipegraph/state/defaults",
		},
		{
			name:     "clock",
			build:    topics.StateClock,
			expected: "pipegraph/state/clock",
		},
		{
			name:     "profiler",
			build:    topics.StateProfiler,
			expected: "pipegraph/state/profiler",
		},
		{
			name:     "command",
			build:    func() string { return topics.Command("set-volume") },
			expected: "pipegraph/command/set-volume",
		},
		{
			name:     "command ack",
			build:    func() string { return topics.CommandAck("req-abc123") },
			expected: "pipegraph/ack/req-abc123",
		},
		{
			name:     "system status",
			build:    topics.SystemStatus,
			expected: "pipegraph/system/status",
		},
		{
			name:     "all commands pattern",
			build:    topics.AllCommands,
			expected: "pipegraph/command/+",
		},
		{
			name:     "all states pattern",
			build:    topics.AllStates,
			expected: "pipegraph/state/#",
		},
		{
			name:     "all topics pattern",
			build:    topics.AllTopics,
			expected: "pipegraph/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSuffixedClientID(t *testing.T) {
	id := suffixedClientID("pipegraph")
	if !strings.HasPrefix(id, "pipegraph-") {
		t.Errorf("id = %q, want pipegraph- prefix", id)
	}
	if len(id) != len("pipegraph-")+clientIDSuffixLen {
		t.Errorf("id length = %d", len(id))
	}
	if suffixedClientID("pipegraph") == id {
		t.Error("two ids collided")
	}

	if got := suffixedClientID(""); !strings.HasPrefix(got, "pipegraph-") {
		t.Errorf("empty base id = %q", got)
	}
}

func TestStatusPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"online":  buildOnlinePayload("pipegraph-test"),
		"offline": buildOfflinePayload("pipegraph-test"),
	} {
		var body map[string]string
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			t.Fatalf("%s payload is not JSON: %v", name, err)
		}
		if body["status"] != name {
			t.Errorf("%s payload status = %q", name, body["status"])
		}
		if body["client_id"] != "pipegraph-test" {
			t.Errorf("%s payload client_id = %q", name, body["client_id"])
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     8883,
			TLS:      true,
			ClientID: "pipegraph",
		},
		Auth: config.MQTTAuthConfig{Username: "audio", Password: "secret"},
		QoS:  1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("servers = %v", opts.Servers)
	}
	if !strings.HasPrefix(opts.ClientID, "pipegraph-") {
		t.Errorf("client id = %q", opts.ClientID)
	}
	if opts.Username != "audio" {
		t.Errorf("username = %q", opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config missing for ssl broker")
	}
	if !opts.AutoReconnect {
		t.Error("auto-reconnect disabled")
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic err = %v", err)
	}
	if err := c.Publish("pipegraph/state/summary", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("bad qos err = %v", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("empty topic err = %v", err)
	}
	if err := c.Subscribe("pipegraph/command/+", 3, func(string, []byte) error { return nil }); err != ErrInvalidQoS {
		t.Errorf("bad qos err = %v", err)
	}
	if err := c.Subscribe("pipegraph/command/+", 1, nil); err == nil {
		t.Error("nil handler accepted")
	}
}
