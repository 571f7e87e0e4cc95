package mqtt

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tessro/devsup/internal/config"
)

const (
	// defaultConnectTimeout is the maximum time to wait for the initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for a publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time in milliseconds allowed for pending work on disconnect.
	defaultDisconnectQuiesce = 500

	defaultKeepAlive     = 60 * time.Second
	defaultMaxReconnect  = 30 * time.Second
	defaultRetryInterval = 2 * time.Second

	maxQoS         = 2
	maxPayloadSize = 1 << 20

	statusOnline  = "online"
	statusOffline = "offline"
)

// clientID returns the configured client id or a random one.
func clientID(cfg config.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "devsup-" + uuid.NewString()[:8]
}

// buildClientOptions creates paho options from cfg.
func buildClientOptions(cfg config.MQTTConfig, id, statusTopic string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(id)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultRetryInterval)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// The broker publishes this if we vanish without a clean disconnect.
	opts.SetWill(statusTopic, statusOffline, 1, true)
	return opts
}
