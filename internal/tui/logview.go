package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/tessro/devsup/internal/logbuf"
)

// timePrefixWidth is the width of "15:04:05.000 ".
const timePrefixWidth = 13

// LogView displays captured output for one process.
type LogView struct {
	entries  []logbuf.Entry
	stream   logbuf.StreamType
	width    int
	height   int
	focused  bool
	viewport viewport.Model
	ready    bool
}

// NewLogView creates a new log view component showing both streams.
func NewLogView() LogView {
	return LogView{stream: logbuf.All, focused: true}
}

// SetSize updates the component dimensions.
func (v *LogView) SetSize(width, height int) {
	v.width = width
	v.height = height

	// Account for border (2 chars top/bottom, 2 chars left/right)
	contentWidth := max(width-2, 1)
	contentHeight := max(height-2, 1)

	if !v.ready {
		v.viewport = viewport.New(contentWidth, contentHeight)
		v.ready = true
	} else {
		v.viewport.Width = contentWidth
		v.viewport.Height = contentHeight
	}

	v.updateContent()
	v.viewport.GotoBottom()
}

// SetFocused sets the focus state.
func (v *LogView) SetFocused(focused bool) {
	v.focused = focused
}

// SetEntries replaces the displayed entries. The view follows new output
// only while it is scrolled to the bottom.
func (v *LogView) SetEntries(entries []logbuf.Entry) {
	v.entries = entries
	if !v.ready {
		return
	}
	follow := v.viewport.AtBottom()
	v.updateContent()
	if follow {
		v.viewport.GotoBottom()
	}
}

// Stream returns the active stream filter.
func (v *LogView) Stream() logbuf.StreamType {
	return v.stream
}

// CycleStream advances the filter all → stdout → stderr → all.
func (v *LogView) CycleStream() logbuf.StreamType {
	switch v.stream {
	case logbuf.All:
		v.stream = logbuf.Stdout
	case logbuf.Stdout:
		v.stream = logbuf.Stderr
	default:
		v.stream = logbuf.All
	}
	if v.ready {
		v.updateContent()
		v.viewport.GotoBottom()
	}
	return v.stream
}

// Visible returns the entries that pass the stream filter.
func (v *LogView) Visible() []logbuf.Entry {
	return logbuf.Filter(v.entries, logbuf.Query{Type: v.stream})
}

// ScrollUp scrolls the viewport up.
func (v *LogView) ScrollUp(n int) {
	v.viewport.LineUp(n)
}

// ScrollDown scrolls the viewport down.
func (v *LogView) ScrollDown(n int) {
	v.viewport.LineDown(n)
}

// ScrollToTop jumps to the oldest entry.
func (v *LogView) ScrollToTop() {
	v.viewport.GotoTop()
}

// ScrollToBottom jumps to the newest entry.
func (v *LogView) ScrollToBottom() {
	v.viewport.GotoBottom()
}

// PageUp scrolls up by one page.
func (v *LogView) PageUp() {
	v.viewport.PageUp()
}

// PageDown scrolls down by one page.
func (v *LogView) PageDown() {
	v.viewport.PageDown()
}

func (v *LogView) updateContent() {
	if !v.ready {
		return
	}
	visible := v.Visible()
	if len(visible) == 0 {
		v.viewport.SetContent(logEmptyStyle.Render("No output yet"))
		return
	}

	var sb strings.Builder
	for i, e := range visible {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(v.renderEntry(e))
	}
	v.viewport.SetContent(sb.String())
}

// renderEntry formats one entry as "HH:MM:SS.mmm data", wrapping long lines
// under the data column.
func (v *LogView) renderEntry(e logbuf.Entry) string {
	width := max(v.viewport.Width-timePrefixWidth, 10)
	body := wrap.String(wordwrap.String(e.Data, width), width)

	style := logStdoutStyle
	if e.Type == logbuf.Stderr {
		style = logStderrStyle
	}

	lines := strings.SplitN(body, "\n", 2)
	out := logTimeStyle.Render(clockTime(e.Timestamp)) + " " + style.Render(lines[0])
	if len(lines) > 1 {
		out += "\n" + indent.String(style.Render(lines[1]), timePrefixWidth)
	}
	return out
}

// clockTime extracts "15:04:05.000" from a fixed-width entry timestamp.
func clockTime(ts string) string {
	if len(ts) < 23 {
		return ts
	}
	return ts[11:23]
}

// View renders the log view.
func (v LogView) View() string {
	style := logViewBorderStyle
	if v.focused {
		style = logViewFocusedBorderStyle
	}
	return style.Width(max(v.width-2, 1)).Height(max(v.height-2, 1)).Render(v.viewport.View())
}
