// Package paths provides a single source of truth for devsup file paths.
// All path helpers honor environment variable overrides for isolated testing.
//
// Path resolution precedence:
//  1. Specific env vars (DEVSUP_CONFIG, DEVSUP_PID_PATH) take highest priority
//  2. DEVSUP_DIR env var sets the base directory (derives config/logs/pid)
//  3. Default behavior (~/.devsup, ~/.config/devsup) when no env vars are set
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for path overrides.
const (
	// EnvDir is the base directory override (e.g., /tmp/devsup-test).
	// When set, config, logs, and PID paths derive from this directory.
	EnvDir = "DEVSUP_DIR"

	// EnvConfigPath overrides the config file path directly.
	EnvConfigPath = "DEVSUP_CONFIG"

	// EnvPIDPath overrides the PID file path directly.
	EnvPIDPath = "DEVSUP_PID_PATH"
)

// BaseDir returns the devsup base directory (~/.devsup by default).
// Honors DEVSUP_DIR environment variable.
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".devsup"), nil
}

// ConfigDir returns the devsup config directory (~/.config/devsup by default).
// When DEVSUP_DIR is set, returns DEVSUP_DIR/config instead.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "devsup"), nil
}

// ConfigPath returns the path to the devsup config file.
// Precedence: DEVSUP_CONFIG > ConfigDir()/config.toml
func ConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogsDir returns the directory holding per-process mirror files
// (~/.devsup/logs by default).
func LogsDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "logs"), nil
}

// LogPath returns the mirror file path for a supervised process key.
func LogPath(key string) (string, error) {
	dir, err := LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, key+".log"), nil
}

// DiagnosticLogPath returns the path of devsup's own structured log.
// Falls back to /tmp/devsup.log when the home directory is unknown.
func DiagnosticLogPath() string {
	base, err := BaseDir()
	if err != nil {
		return "/tmp/devsup.log"
	}
	return filepath.Join(base, "devsup.log")
}

// PIDPath returns the server PID file path.
// Precedence: DEVSUP_PID_PATH > DEVSUP_DIR/devsup.pid > ~/.devsup/devsup.pid
func PIDPath() string {
	if path := os.Getenv(EnvPIDPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return "/tmp/devsup.pid"
	}
	return filepath.Join(base, "devsup.pid")
}
