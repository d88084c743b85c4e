package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/homebot/homebot-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second

	maxQoS = 2
)

// newClientOptions maps the mqtt config section onto paho options,
// including the last-will status message.
func newClientOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive).
		SetWill(topics.SystemStatus(), string(offlineStatus(cfg.Broker.ClientID, "connection_lost")), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// statusMessage is the retained body on {prefix}/system/status.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"clientId"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func onlineStatus(clientID string) []byte {
	return marshalStatus(statusMessage{Status: "online", ClientID: clientID})
}

func offlineStatus(clientID, reason string) []byte {
	return marshalStatus(statusMessage{Status: "offline", ClientID: clientID, Reason: reason})
}

func marshalStatus(m statusMessage) []byte {
	m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	// A struct of strings always marshals.
	body, _ := json.Marshal(m) //nolint:errchkjson // see above
	return body
}

// await waits for a paho token and turns a timeout into an error.
func await(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	return token.Error()
}
