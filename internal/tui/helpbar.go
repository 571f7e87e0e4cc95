package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// HelpBar displays keyboard shortcuts at the bottom of the TUI.
type HelpBar struct {
	width int
	keys  KeyBindings

	inputFocused bool
	errorMsg     string
	notice       string
}

// NewHelpBar creates a new help bar component.
func NewHelpBar() HelpBar {
	return HelpBar{
		keys: DefaultKeyBindings(),
	}
}

// SetWidth updates the help bar width.
func (h *HelpBar) SetWidth(width int) {
	h.width = width
}

// SetInputFocused switches between the log and stdin shortcut sets.
func (h *HelpBar) SetInputFocused(focused bool) {
	h.inputFocused = focused
}

// SetError sets the error message to display.
func (h *HelpBar) SetError(msg string) {
	h.errorMsg = msg
	h.notice = ""
}

// SetNotice shows a transient message in place of the shortcuts.
func (h *HelpBar) SetNotice(msg string) {
	h.notice = msg
}

// ClearError clears the error message and any notice.
func (h *HelpBar) ClearError() {
	h.errorMsg = ""
	h.notice = ""
}

// View renders the help bar.
func (h HelpBar) View() string {
	if h.errorMsg != "" {
		return errorBarStyle.Width(h.width).Render("Error: " + h.errorMsg)
	}
	if h.notice != "" {
		return statusStyle.Width(h.width).Render(h.notice)
	}

	var bindings []key.Binding
	if h.inputFocused {
		bindings = []key.Binding{h.keys.Submit, h.keys.Cancel}
	} else {
		bindings = []key.Binding{
			h.keys.Down, h.keys.Up, h.keys.Stream, h.keys.Restart,
			h.keys.Stop, h.keys.Clear, h.keys.Input, h.keys.Quit,
		}
	}
	return statusStyle.Width(h.width).Render(formatHelp(bindings))
}

func formatHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		help := b.Help()
		parts = append(parts, help.Key+": "+help.Desc)
	}
	return strings.Join(parts, "  ")
}
