package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"simple", "dev", nil},
		{"with dash", "web-app", nil},
		{"with dot", "api.v2", nil},
		{"with underscore", "db_1", nil},
		{"empty", "", ErrEmptyKey},
		{"leading dash", "-dev", ErrInvalidKey},
		{"slash", "a/b", ErrInvalidKey},
		{"wildcard", "dev+", ErrInvalidKey},
		{"too long", strings.Repeat("a", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKey(%q) = %v, want nil", tt.key, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"nil", nil, nil},
		{"empty", &Config{}, nil},
		{"negative entries", &Config{Logs: LogsConfig{MaxEntries: -1}}, ErrInvalidEntries},
		{"bad timeout", &Config{Process: ProcessConfig{StopTimeout: "-1s"}}, ErrInvalidTimeout},
		{"bad transport", &Config{Server: ServerConfig{Transport: "grpc"}}, ErrInvalidTransport},
		{"bad port", &Config{Server: ServerConfig{Port: 70000}}, ErrInvalidPort},
		{"bad qos", &Config{MQTT: MQTTConfig{QoS: 3}}, ErrInvalidQoS},
		{"bad preset key", &Config{Presets: map[string]PresetConfig{"a b": {Command: "x"}}}, ErrInvalidKey},
		{"empty preset command", &Config{Presets: map[string]PresetConfig{"web": {}}}, ErrEmptyCommand},
		{"valid preset", &Config{Presets: map[string]PresetConfig{"web": {Command: "npm start"}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := &ValidationError{Field: "mqtt.qos", Value: "7", Message: "must be 0, 1, or 2", Err: ErrInvalidQoS}
	if got := err.Error(); got != `mqtt.qos: must be 0, 1, or 2 (got "7")` {
		t.Errorf("Error() = %q", got)
	}

	err = &ValidationError{Field: "key", Message: "cannot be empty"}
	if got := err.Error(); got != "key: cannot be empty" {
		t.Errorf("Error() = %q", got)
	}
}
