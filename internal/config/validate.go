package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrEmptyKey         = errors.New("process key cannot be empty")
	ErrInvalidKey       = errors.New("process key contains invalid characters")
	ErrKeyTooLong       = errors.New("process key exceeds maximum length")
	ErrEmptyCommand     = errors.New("command cannot be empty")
	ErrInvalidQoS       = errors.New("qos must be 0, 1, or 2")
	ErrInvalidTransport = errors.New("transport must be 'stdio' or 'sse'")
	ErrInvalidTimeout   = errors.New("stop_timeout must be a positive duration")
	ErrInvalidEntries   = errors.New("max_entries must not be negative")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)

// MaxKeyLength is the longest accepted process key.
const MaxKeyLength = 64

// validKeyRegex matches keys that are safe as file names and MQTT topic
// levels: alphanumeric start, then alphanumeric, dash, underscore, or dot.
var validKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidationError wraps a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateKey validates a process key.
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{
			Field:   "key",
			Message: "cannot be empty",
			Err:     ErrEmptyKey,
		}
	}

	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", MaxKeyLength),
			Err:     ErrKeyTooLong,
		}
	}

	if !validKeyRegex.MatchString(key) {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Message: "must start with alphanumeric and contain only alphanumeric, dash, underscore, or dot",
			Err:     ErrInvalidKey,
		}
	}

	return nil
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	if c.Logs.MaxEntries < 0 {
		return &ValidationError{
			Field:   "logs.max_entries",
			Value:   fmt.Sprint(c.Logs.MaxEntries),
			Message: "must not be negative",
			Err:     ErrInvalidEntries,
		}
	}

	if s := c.Process.StopTimeout; s != "" {
		if d, err := time.ParseDuration(s); err != nil || d <= 0 {
			return &ValidationError{
				Field:   "process.stop_timeout",
				Value:   s,
				Message: "must be a positive duration such as \"5s\"",
				Err:     ErrInvalidTimeout,
			}
		}
	}

	switch strings.ToLower(c.Server.Transport) {
	case "", "stdio", "sse":
	default:
		return &ValidationError{
			Field:   "server.transport",
			Value:   c.Server.Transport,
			Message: "must be 'stdio' or 'sse'",
			Err:     ErrInvalidTransport,
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Value:   fmt.Sprint(c.Server.Port),
			Message: "must be between 1 and 65535",
			Err:     ErrInvalidPort,
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return &ValidationError{
			Field:   "mqtt.qos",
			Value:   fmt.Sprint(c.MQTT.QoS),
			Message: "must be 0, 1, or 2",
			Err:     ErrInvalidQoS,
		}
	}

	for _, key := range c.PresetNames() {
		if err := ValidateKey(key); err != nil {
			return err
		}
		if strings.TrimSpace(c.Presets[key].Command) == "" {
			return &ValidationError{
				Field:   "processes." + key + ".command",
				Message: "cannot be empty",
				Err:     ErrEmptyCommand,
			}
		}
	}

	return nil
}
