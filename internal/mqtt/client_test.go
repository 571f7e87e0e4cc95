package mqtt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessro/devsup/internal/config"
)

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"bad qos", "devsup/dev/stdout", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "devsup/dev/stdout", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"not connected", "devsup/dev/stdout", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConnectRejectsQoS(t *testing.T) {
	_, err := Connect(config.MQTTConfig{Broker: "tcp://127.0.0.1:1883", QoS: 5}, "devsup")
	assert.ErrorIs(t, err, ErrInvalidQoS)
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "fixed", clientID(config.MQTTConfig{ClientID: "fixed"}))

	id := clientID(config.MQTTConfig{})
	assert.True(t, strings.HasPrefix(id, "devsup-"), id)
	assert.Len(t, id, len("devsup-")+8)
	assert.NotEqual(t, id, clientID(config.MQTTConfig{}))
}

func TestCloseWithoutClient(t *testing.T) {
	assert.NoError(t, (&Client{}).Close())
}
