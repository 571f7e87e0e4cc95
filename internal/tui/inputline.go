package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// maxHistorySize limits the number of lines remembered for recall.
const maxHistorySize = 100

// InputLine collects a line of text destined for the process's stdin.
type InputLine struct {
	width   int
	focused bool
	input   textarea.Model

	history      []string
	historyIndex int // -1 when not browsing
}

// NewInputLine creates a new input line component.
func NewInputLine() InputLine {
	ta := textarea.New()
	ta.Placeholder = "Send a line to stdin..."
	ta.CharLimit = 4096
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	return InputLine{
		input:        ta,
		historyIndex: -1,
	}
}

// SetWidth updates the component width.
func (i *InputLine) SetWidth(width int) {
	i.width = width
	i.input.SetWidth(max(width-6, 1))
}

// SetFocused sets the focus state.
func (i *InputLine) SetFocused(focused bool) {
	i.focused = focused
	if focused {
		i.input.Focus()
	} else {
		i.input.Blur()
	}
}

// IsFocused returns whether the input is focused.
func (i *InputLine) IsFocused() bool {
	return i.focused
}

// Update forwards msg to the underlying textarea.
func (i *InputLine) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.input, cmd = i.input.Update(msg)
	return cmd
}

// Value returns the current input value.
func (i *InputLine) Value() string {
	return i.input.Value()
}

// SetValue replaces the current input value.
func (i *InputLine) SetValue(s string) {
	i.input.SetValue(s)
}

// Clear resets the input value.
func (i *InputLine) Clear() {
	i.input.SetValue("")
	i.historyIndex = -1
}

// AddToHistory remembers a sent line, skipping immediate repeats.
func (i *InputLine) AddToHistory(line string) {
	if line == "" {
		return
	}
	if n := len(i.history); n > 0 && i.history[n-1] == line {
		return
	}
	i.history = append(i.history, line)
	if len(i.history) > maxHistorySize {
		i.history = i.history[len(i.history)-maxHistorySize:]
	}
	i.historyIndex = -1
}

// HistoryUp recalls the previous line. It reports whether the value changed.
func (i *InputLine) HistoryUp() bool {
	if len(i.history) == 0 {
		return false
	}
	switch {
	case i.historyIndex == -1:
		i.historyIndex = len(i.history) - 1
	case i.historyIndex > 0:
		i.historyIndex--
	default:
		return false
	}
	i.input.SetValue(i.history[i.historyIndex])
	i.input.CursorEnd()
	return true
}

// HistoryDown recalls the next line, or clears the input past the newest.
func (i *InputLine) HistoryDown() bool {
	if i.historyIndex == -1 {
		return false
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.input.SetValue(i.history[i.historyIndex])
	} else {
		i.historyIndex = -1
		i.input.SetValue("")
	}
	i.input.CursorEnd()
	return true
}

// View renders the input line.
func (i InputLine) View() string {
	style := inputLineStyle
	if i.focused {
		style = inputLineFocusedStyle
	}
	return style.Width(i.width).Render(i.input.View())
}
