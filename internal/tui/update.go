package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.inputLine.IsFocused() {
			cmds = append(cmds, m.handleInputKey(msg))
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.logView.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.logView.ScrollDown(1)
		case key.Matches(msg, m.keys.Top):
			m.logView.ScrollToTop()
		case key.Matches(msg, m.keys.Bottom):
			m.logView.ScrollToBottom()
		case key.Matches(msg, m.keys.PageUp):
			m.logView.PageUp()
		case key.Matches(msg, m.keys.PageDown):
			m.logView.PageDown()
		case key.Matches(msg, m.keys.Stream):
			m.header.SetStream(m.logView.CycleStream())
		case key.Matches(msg, m.keys.Restart):
			m.helpBar.SetNotice(fmt.Sprintf("Restarting %s...", m.key))
			cmds = append(cmds, m.restartCmd())
		case key.Matches(msg, m.keys.Stop):
			m.helpBar.SetNotice(fmt.Sprintf("Stopping %s...", m.key))
			cmds = append(cmds, m.stopCmd())
		case key.Matches(msg, m.keys.Clear):
			if buf, err := m.ctrl.Logs(m.key); err == nil {
				buf.Clear()
			}
			m.refresh()
		case key.Matches(msg, m.keys.Input):
			m.inputLine.SetFocused(true)
			m.logView.SetFocused(false)
			m.helpBar.SetInputFocused(true)
			m.layout()
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.logView.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.logView.ScrollDown(3)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refresh()

	case changedMsg:
		m.refresh()
		cmds = append(cmds, waitForChangeCmd(m.changes))

	case tickMsg:
		m.refresh()
		cmds = append(cmds, tickCmd())

	case actionResultMsg:
		m.helpBar.ClearError()
		if msg.Err != nil {
			slog.Debug("tui: action failed", "action", msg.Action, "key", m.key, "error", msg.Err)
			cmds = append(cmds, m.setError(fmt.Errorf("%s %s: %w", msg.Action, m.key, msg.Err)))
		} else {
			m.err = nil
		}
		m.refresh()

	case clearErrorMsg:
		m.err = nil
		m.helpBar.ClearError()
	}

	return m, tea.Batch(cmds...)
}

// handleInputKey routes keys while the stdin line is open.
func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return nil
	case key.Matches(msg, m.keys.Submit):
		line := m.inputLine.Value()
		m.inputLine.AddToHistory(line)
		m.closeInput()
		return m.sendInputCmd(line)
	case key.Matches(msg, m.keys.HistoryUp):
		m.inputLine.HistoryUp()
		return nil
	case key.Matches(msg, m.keys.HistoryDown):
		m.inputLine.HistoryDown()
		return nil
	}
	return m.inputLine.Update(msg)
}

func (m *Model) closeInput() {
	m.inputLine.Clear()
	m.inputLine.SetFocused(false)
	m.logView.SetFocused(true)
	m.helpBar.SetInputFocused(false)
	m.layout()
}
