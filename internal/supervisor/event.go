package supervisor

import (
	"strconv"
	"time"
)

// EventType discriminates supervisor events.
type EventType string

const (
	EventStart  EventType = "start"
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventError  EventType = "error"
	EventExit   EventType = "exit"
)

// Event is one occurrence in a run's lifecycle.
//
// For a run that spawned, start precedes all output events and exit is the
// last event. A run that failed to spawn produces a single error event.
// Stdout and stderr are delivered from separate goroutines; each stream is
// in order, but the two may interleave.
type Event struct {
	Type  EventType
	RunID string
	PID   int
	Time  time.Time

	// Text is the trimmed output line for stdout and stderr events.
	Text string

	// Err is set on error events.
	Err error

	// ExitCode and Signal are set on exit events. ExitCode is nil when the
	// process was terminated by a signal; Signal is "" otherwise.
	ExitCode *int
	Signal   string
}

// ExitStatus records how the most recent run ended.
type ExitStatus struct {
	RunID    string    `json:"run_id"`
	Code     *int      `json:"code,omitempty"`
	Signal   string    `json:"signal,omitempty"`
	ExitedAt time.Time `json:"exited_at"`
}

// String renders the status as "exit 0" or "signal SIGTERM".
func (s ExitStatus) String() string {
	if s.Signal != "" {
		return "signal " + s.Signal
	}
	if s.Code != nil {
		return "exit " + strconv.Itoa(*s.Code)
	}
	return "unknown"
}
