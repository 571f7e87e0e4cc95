// Package mqtt publishes supervised process events to an MQTT broker.
package mqtt

import (
	"fmt"
	"log/slog"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tessro/devsup/internal/config"
)

// Client wraps paho.mqtt.golang with connection tracking and an online
// status topic. All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	qos    byte
	topics Topics
	log    *slog.Logger

	connMu sync.RWMutex
	// +checklocks:connMu
	connected bool
}

// Connect dials the broker in cfg and waits for the first connection.
// The client reconnects automatically afterwards.
func Connect(cfg config.MQTTConfig, prefix string) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	c := &Client{
		qos:    byte(cfg.QoS),
		topics: Topics{Prefix: prefix},
		log:    slog.With("component", "mqtt"),
	}

	opts := buildClientOptions(cfg, clientID(cfg), c.topics.Status())
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
		c.client.Publish(c.topics.Status(), 1, true, statusOnline)
		c.log.Info("MQTT: connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		c.log.Warn("MQTT: connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; record the state now so
	// IsConnected is accurate as soon as Connect returns.
	c.setConnected(true)
	return c, nil
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return c.qos
}

// Close publishes an offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), 1, true, statusOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}
