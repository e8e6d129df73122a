package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/config"
)

const (
	// defaultConnectTimeout bounds the initial dial.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds waits for broker acknowledgements.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is how long Disconnect lets in-flight
	// work finish, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the PINGREQ interval.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the highest QoS level MQTT defines.
	maxQoS = 2

	// clientIDSuffixLen is how many uuid characters are appended to
	// the configured client id.
	clientIDSuffixLen = 8

	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions translates config.MQTTConfig into paho options:
// broker URL (tcp or ssl), suffixed client id, credentials, clean
// session, auto-reconnect with backoff, keepalive and TLS.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	// A stale session under the same id would steal our subscriptions.
	opts.SetClientID(suffixedClientID(cfg.Broker.ClientID))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// suffixedClientID appends a short random suffix to the configured id
// so restarted engines never collide on the broker.
func suffixedClientID(base string) string {
	if base == "" {
		base = "pipegraph"
	}
	return base + "-" + uuid.NewString()[:clientIDSuffixLen]
}

// configureLWT registers the will the broker publishes if the session
// dies without a graceful Close. Retained at QoS 1 so late subscribers
// still see the crash status.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	payload := fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"unexpected_disconnect","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
	opts.SetWill(Topics{}.SystemStatus(), payload, 1, true)
}

// buildOnlinePayload is the status document published on connect.
func buildOnlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// buildOfflinePayload is the status document published on graceful
// shutdown, distinguishable from the LWT by its reason field.
func buildOfflinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"graceful_shutdown","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}
