// Package config loads the devsup configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tessro/devsup/internal/paths"
)

// Defaults applied by the getters when a value is unset.
const (
	DefaultLogLevel    = "info"
	DefaultMaxEntries  = 1000
	DefaultStopTimeout = 5 * time.Second
	DefaultTransport   = "stdio"
	DefaultHost        = "localhost"
	DefaultPort        = 8765
	DefaultBasePath    = "/mcp"
	DefaultTopicPrefix = "devsup"
	DefaultProcessKey  = "dev"
)

// Config is the devsup configuration. A nil *Config is valid and yields
// defaults from every getter.
type Config struct {
	// LogLevel controls diagnostic log verbosity ("debug", "info", "warn", "error").
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// LogFile overrides the diagnostic log path.
	LogFile string `toml:"log_file" yaml:"log_file"`

	Logs    LogsConfig              `toml:"logs" yaml:"logs"`
	Process ProcessConfig           `toml:"process" yaml:"process"`
	Server  ServerConfig            `toml:"server" yaml:"server"`
	MQTT    MQTTConfig              `toml:"mqtt" yaml:"mqtt"`
	Presets map[string]PresetConfig `toml:"processes" yaml:"processes"`
}

// LogsConfig controls per-process log buffers.
type LogsConfig struct {
	// MaxEntries bounds each in-memory buffer.
	MaxEntries int `toml:"max_entries" yaml:"max_entries"`
	// Dir holds mirror files; defaults to paths.LogsDir().
	Dir string `toml:"dir" yaml:"dir"`
	// Mirror disables file mirroring when set to false.
	Mirror *bool `toml:"mirror" yaml:"mirror"`
}

// ProcessConfig controls supervision defaults.
type ProcessConfig struct {
	// StopTimeout is how long a graceful stop may take before SIGKILL (e.g. "5s").
	StopTimeout string `toml:"stop_timeout" yaml:"stop_timeout"`
}

// ServerConfig controls the MCP server transport.
type ServerConfig struct {
	Transport string `toml:"transport" yaml:"transport"`
	Host      string `toml:"host" yaml:"host"`
	Port      int    `toml:"port" yaml:"port"`
	BasePath  string `toml:"base_path" yaml:"base_path"`
}

// MQTTConfig configures the optional event sink. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `toml:"broker" yaml:"broker"`
	ClientID    string `toml:"client_id" yaml:"client_id"`
	TopicPrefix string `toml:"topic_prefix" yaml:"topic_prefix"`
	QoS         int    `toml:"qos" yaml:"qos"`
	Username    string `toml:"username" yaml:"username"`
	Password    string `toml:"password" yaml:"password"`
}

// PresetConfig is a named process definition.
type PresetConfig struct {
	Command     string            `toml:"command" yaml:"command"`
	Args        []string          `toml:"args" yaml:"args"`
	ProjectPath string            `toml:"project_path" yaml:"project_path"`
	Cwd         string            `toml:"cwd" yaml:"cwd"`
	Env         map[string]string `toml:"env" yaml:"env"`
	Shell       bool              `toml:"shell" yaml:"shell"`
}

// Load reads the config from paths.ConfigPath().
// Returns nil config and nil error if the file doesn't exist.
func Load() (*Config, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the config at path. Files ending in
// .yaml or .yml are YAML; anything else is TOML.
// Returns nil config and nil error if the file doesn't exist.
func LoadFromPath(path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// GetLogLevel returns the configured log level or the default.
func (c *Config) GetLogLevel() string {
	if c != nil && c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

// GetLogFile returns the configured diagnostic log path or "" for the default.
func (c *Config) GetLogFile() string {
	if c == nil {
		return ""
	}
	return c.LogFile
}

// GetMaxEntries returns the per-process buffer capacity.
func (c *Config) GetMaxEntries() int {
	if c != nil && c.Logs.MaxEntries > 0 {
		return c.Logs.MaxEntries
	}
	return DefaultMaxEntries
}

// MirrorEnabled reports whether log buffers mirror to files. Defaults to true.
func (c *Config) MirrorEnabled() bool {
	if c != nil && c.Logs.Mirror != nil {
		return *c.Logs.Mirror
	}
	return true
}

// LogPath returns the mirror file path for key, honoring logs.dir.
func (c *Config) LogPath(key string) (string, error) {
	if c != nil && c.Logs.Dir != "" {
		return filepath.Join(c.Logs.Dir, key+".log"), nil
	}
	return paths.LogPath(key)
}

// GetStopTimeout returns the graceful stop budget.
func (c *Config) GetStopTimeout() time.Duration {
	if c != nil && c.Process.StopTimeout != "" {
		if d, err := time.ParseDuration(c.Process.StopTimeout); err == nil && d > 0 {
			return d
		}
	}
	return DefaultStopTimeout
}

// GetTransport returns "stdio" or "sse".
func (c *Config) GetTransport() string {
	if c != nil && c.Server.Transport != "" {
		return c.Server.Transport
	}
	return DefaultTransport
}

// GetHost returns the SSE listen host.
func (c *Config) GetHost() string {
	if c != nil && c.Server.Host != "" {
		return c.Server.Host
	}
	return DefaultHost
}

// GetPort returns the SSE listen port.
func (c *Config) GetPort() int {
	if c != nil && c.Server.Port > 0 {
		return c.Server.Port
	}
	return DefaultPort
}

// GetBasePath returns the SSE static base path.
func (c *Config) GetBasePath() string {
	if c != nil && c.Server.BasePath != "" {
		return c.Server.BasePath
	}
	return DefaultBasePath
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c != nil && c.MQTT.Broker != ""
}

// GetTopicPrefix returns the MQTT topic prefix.
func (c *Config) GetTopicPrefix() string {
	if c != nil && c.MQTT.TopicPrefix != "" {
		return strings.TrimSuffix(c.MQTT.TopicPrefix, "/")
	}
	return DefaultTopicPrefix
}

// Preset returns the named process definition.
func (c *Config) Preset(key string) (PresetConfig, bool) {
	if c == nil {
		return PresetConfig{}, false
	}
	p, ok := c.Presets[key]
	return p, ok
}

// PresetNames returns preset keys in sorted order.
func (c *Config) PresetNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
