package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// actionTimeout bounds restart and stop calls made from the UI.
const actionTimeout = 30 * time.Second

// tickCmd returns a command that sends a tick message after a delay.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChangeCmd blocks until the notifier fires.
func waitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// clearErrorCmd returns a command that clears the error after a delay.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// setError sets an error to display and returns a command to clear it after a timeout.
func (m *Model) setError(err error) tea.Cmd {
	m.err = err
	m.helpBar.SetError(err.Error())
	return clearErrorCmd()
}

// restartCmd starts the configured command again under the same key.
func (m Model) restartCmd() tea.Cmd {
	ctrl, key, spec := m.ctrl, m.key, m.spec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := ctrl.Start(ctx, key, spec)
		return actionResultMsg{Action: "restart", Err: err}
	}
}

// stopCmd stops the process with the default signal.
func (m Model) stopCmd() tea.Cmd {
	ctrl, key := m.ctrl, m.key
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionResultMsg{Action: "stop", Err: ctrl.Stop(ctx, key, 0)}
	}
}

// sendInputCmd writes a line to the process's stdin.
func (m Model) sendInputCmd(line string) tea.Cmd {
	ctrl, key := m.ctrl, m.key
	return func() tea.Msg {
		return actionResultMsg{Action: "input", Err: ctrl.SendInput(key, line)}
	}
}
