package tui

import "time"

// changedMsg signals that the watched process produced output or changed state.
type changedMsg struct{}

// tickMsg refreshes uptime and resource usage while nothing else happens.
type tickMsg time.Time

// actionResultMsg is the result of a restart, stop or stdin write.
type actionResultMsg struct {
	Action string
	Err    error
}

// clearErrorMsg is sent to clear the error display after a timeout.
type clearErrorMsg struct{}
