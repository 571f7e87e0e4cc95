package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/registry"
)

// Header displays the process key, its state and log counts.
type Header struct {
	width  int
	key    string
	status registry.Status
	known  bool
	stream logbuf.StreamType
}

// NewHeader creates a new header component.
func NewHeader(key string) Header {
	return Header{key: key, stream: logbuf.All}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetStatus updates the process state shown in the header.
func (h *Header) SetStatus(st registry.Status, known bool) {
	h.status = st
	h.known = known
}

// SetStream updates the stream filter label.
func (h *Header) SetStream(stream logbuf.StreamType) {
	h.stream = stream
}

// stateLabel renders "● running (PID n)", "◌ stopping", "○ exit 1" and the like.
func (h Header) stateLabel() string {
	st := h.status
	switch {
	case !h.known:
		return stateStoppedStyle.Render("○ not started")
	case st.Stopping:
		return stateStoppingStyle.Render(fmt.Sprintf("◌ stopping (PID %d)", st.PID))
	case st.Running:
		label := fmt.Sprintf("● running (PID %d", st.PID)
		if st.Uptime != "" {
			label += ", up " + st.Uptime
		}
		return stateRunningStyle.Render(label + ")")
	case st.LastExit != nil:
		style := stateStoppedStyle
		if st.LastExit.Code == nil || *st.LastExit.Code != 0 {
			style = stateFailedStyle
		}
		return style.Render("○ " + st.LastExit.String())
	}
	return stateStoppedStyle.Render("○ stopped")
}

// View renders the header.
func (h Header) View() string {
	brand := headerBrandStyle.Render("▶ devsup")
	name := headerKeyStyle.Render("  " + h.key + "  ")
	state := h.stateLabel()

	logs := h.status.Logs
	statsParts := []string{
		fmt.Sprintf("%d lines (%d out, %d err)", logs.TotalEntries, logs.StdoutCount, logs.StderrCount),
		"showing " + string(h.stream),
	}
	stats := headerStatsStyle.Render(strings.Join(statsParts, "  •  "))

	spacerWidth := h.width - lipgloss.Width(brand) - lipgloss.Width(name) - lipgloss.Width(state) - lipgloss.Width(stats) - 2
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := strings.Repeat(" ", spacerWidth)

	content := lipgloss.JoinHorizontal(lipgloss.Top, brand, name, state, spacer, stats)
	return headerContainerStyle.Width(h.width).Render(content)
}
