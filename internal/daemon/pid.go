// Package daemon tracks the long-running devsup server through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tessro/devsup/internal/paths"
)

// ErrAlreadyRunning is returned by Acquire when a live server owns the PID file.
var ErrAlreadyRunning = errors.New("devsup server already running")

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return paths.PIDPath()
}

// WritePID writes the current process ID to the PID file.
// It creates the parent directory if it doesn't exist.
func WritePID(path string) error {
	if path == "" {
		path = DefaultPIDPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPID reads the process ID from the PID file.
// The error satisfies os.IsNotExist when there is no file.
func ReadPID(path string) (int, error) {
	if path == "" {
		path = DefaultPIDPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid: %w", err)
	}
	return pid, nil
}

// RemovePID removes the PID file. A missing file is not an error.
func RemovePID(path string) error {
	if path == "" {
		path = DefaultPIDPath()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// IsProcessRunning checks if a process with the given PID exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks for existence without delivering anything.
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

// IsServerRunning reads the PID file and reports whether that process is alive.
func IsServerRunning(pidPath string) (bool, int) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return false, 0
	}
	if IsProcessRunning(pid) {
		return true, pid
	}
	return false, 0
}

// CleanStalePID removes the PID file if its process is not running.
// Returns true if a stale file was removed.
func CleanStalePID(pidPath string) bool {
	if _, err := ReadPID(pidPath); err != nil && os.IsNotExist(err) {
		return false
	}
	if running, _ := IsServerRunning(pidPath); running {
		return false
	}
	_ = RemovePID(pidPath)
	return true
}

// Acquire writes the PID file for this process unless another live server
// holds it. The returned release function removes the file.
func Acquire(pidPath string) (release func(), err error) {
	if pidPath == "" {
		pidPath = DefaultPIDPath()
	}
	if running, pid := IsServerRunning(pidPath); running && pid != os.Getpid() {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	if err := WritePID(pidPath); err != nil {
		return nil, err
	}
	return func() { _ = RemovePID(pidPath) }, nil
}
