// Package tui provides the Bubbletea-based log viewer for a devsup process.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/supervisor"
)

// Controller is the subset of *registry.Registry the TUI drives.
type Controller interface {
	Start(ctx context.Context, key string, spec supervisor.Spec) (supervisor.RunInfo, error)
	Stop(ctx context.Context, key string, sig syscall.Signal) error
	Status(key string) (registry.Status, error)
	Logs(key string) (*logbuf.Buffer, error)
	SendInput(key, text string) error
}

// Options configures a Model.
type Options struct {
	// Key names the process to watch.
	Key string
	// Spec is what restart launches.
	Spec supervisor.Spec
	// Changes wakes the model when the process emits events. Without it the
	// view refreshes only on the periodic tick.
	Changes <-chan struct{}
}

// Model is the main Bubbletea model for the devsup TUI.
type Model struct {
	width  int
	height int

	ready bool
	err   error

	header    Header
	logView   LogView
	inputLine InputLine
	helpBar   HelpBar
	keys      KeyBindings

	ctrl    Controller
	key     string
	spec    supervisor.Spec
	changes <-chan struct{}
}

// New creates a Model watching opts.Key through ctrl.
func New(ctrl Controller, opts Options) Model {
	m := Model{
		header:    NewHeader(opts.Key),
		logView:   NewLogView(),
		inputLine: NewInputLine(),
		helpBar:   NewHelpBar(),
		keys:      DefaultKeyBindings(),
		ctrl:      ctrl,
		key:       opts.Key,
		spec:      opts.Spec,
		changes:   opts.Changes,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForChangeCmd(m.changes))
}

// refresh pulls the current status and buffer contents from the controller.
func (m *Model) refresh() {
	st, err := m.ctrl.Status(m.key)
	m.header.SetStatus(st, err == nil)
	if err != nil && !errors.Is(err, registry.ErrUnknownProcess) {
		slog.Debug("tui: status failed", "key", m.key, "error", err)
	}

	buf, err := m.ctrl.Logs(m.key)
	if err != nil {
		m.logView.SetEntries(nil)
		return
	}
	m.logView.SetEntries(buf.Entries())
}

// layout distributes the window between header, log view, input and help bar.
func (m *Model) layout() {
	m.header.SetWidth(m.width)
	m.helpBar.SetWidth(m.width)
	m.inputLine.SetWidth(m.width)

	// header + help bar, plus the input line while it is open
	chrome := 2
	if m.inputLine.IsFocused() {
		chrome++
	}
	m.logView.SetSize(m.width, max(m.height-chrome, 3))
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	view := m.header.View() + "\n" + m.logView.View()
	if m.inputLine.IsFocused() {
		view += "\n" + m.inputLine.View()
	}
	return fmt.Sprintf("%s\n%s", view, m.helpBar.View())
}

// Run shows the TUI until the user quits.
func Run(ctrl Controller, opts Options) error {
	slog.Debug("tui.Run: starting", "key", opts.Key)
	p := tea.NewProgram(
		New(ctrl, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	slog.Debug("tui.Run: program exited", "error", err)
	return err
}
