// Package supervisor owns the lifetime of one child process at a time and
// turns its output, exit and failures into a stream of Events.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tessro/devsup/internal/event"
)

// DefaultWaitDelay bounds how long output pipes may stay open after the
// process exits (for example, held by a detached grandchild).
const DefaultWaitDelay = 2 * time.Second

// Spec describes what to run.
type Spec struct {
	// Command is the executable, or the whole command line when Shell is set.
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`

	// ProjectPath takes precedence over WorkDir. When both are empty the
	// supervisor's own working directory is used.
	ProjectPath string `json:"project_path,omitempty"`
	WorkDir     string `json:"cwd,omitempty"`

	// Env entries override inherited variables of the same name.
	Env map[string]string `json:"env,omitempty"`

	// Shell runs Command and Args through the platform shell.
	Shell bool `json:"shell,omitempty"`
}

// Options configures a Supervisor.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// WaitDelay overrides DefaultWaitDelay.
	WaitDelay time.Duration

	// Signal delivers sig to the process group led by pid. Defaults to the
	// platform implementation; tests replace it to observe signals.
	Signal func(pid int, sig syscall.Signal) error
}

// Supervisor manages at most one running child process.
// All methods are safe for concurrent use.
type Supervisor struct {
	spec      Spec
	log       *slog.Logger
	waitDelay time.Duration
	signal    func(pid int, sig syscall.Signal) error

	events event.Emitter[Event]

	mu sync.Mutex
	// +checklocks:mu
	run *run
	// +checklocks:mu
	lastExit *ExitStatus
}

// run is the state of one spawned process.
type run struct {
	id        string
	cmd       *exec.Cmd
	pid       int
	dir       string
	stdin     io.WriteCloser
	startedAt time.Time
	done      chan struct{}

	// killing is set by the first Stop or Kill of this run.
	killing bool
}

// New creates a Supervisor for spec. Nothing is started.
func New(spec Spec, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	waitDelay := opts.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}
	signal := opts.Signal
	if signal == nil {
		signal = signalGroup
	}
	return &Supervisor{
		spec:      spec,
		log:       logger.With("component", "supervisor"),
		waitDelay: waitDelay,
		signal:    signal,
	}
}

// Spec returns the spec this supervisor runs.
func (s *Supervisor) Spec() Spec {
	return s.spec
}

// OnEvent registers handler for every subsequent event and returns a
// function that removes it. Handlers run synchronously on the goroutine
// that produced the event and must not block for long.
func (s *Supervisor) OnEvent(handler func(Event)) (unsubscribe func()) {
	return s.events.OnEvent(handler)
}

// Start spawns the process. It returns ErrAlreadyRunning if a run is in
// progress (including one that is being stopped), or a *SpawnError after
// emitting a single error event if the OS refuses the spawn.
func (s *Supervisor) Start() error {
	log := s.log.With("command", s.spec.Command)

	s.mu.Lock()
	if s.run != nil {
		pid := s.run.pid
		s.mu.Unlock()
		log.Debug("Supervisor.Start: already running", "pid", pid)
		return ErrAlreadyRunning
	}

	r := &run{id: uuid.NewString(), done: make(chan struct{})}
	// Output writers block on ready so start is always emitted first.
	ready := make(chan struct{})
	stdout := newLineWriter(ready, func(line string) {
		s.emit(Event{Type: EventStdout, RunID: r.id, PID: r.pid, Text: line})
	})
	stderr := newLineWriter(ready, func(line string) {
		s.emit(Event{Type: EventStderr, RunID: r.id, PID: r.pid, Text: line})
	})

	cmd, dir, err := s.buildCommand()
	if err == nil {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.WaitDelay = s.waitDelay
		r.stdin, err = cmd.StdinPipe()
	}
	if err == nil {
		log.Debug("Supervisor.Start: starting process", "path", cmd.Path, "dir", dir)
		err = cmd.Start()
	}
	if err != nil {
		s.mu.Unlock()
		close(ready)
		serr := &SpawnError{Command: s.spec.Command, Err: err}
		log.Error("Supervisor.Start: spawn failed", "error", err)
		s.emit(Event{Type: EventError, RunID: r.id, Err: serr})
		return serr
	}

	r.cmd = cmd
	r.pid = cmd.Process.Pid
	r.dir = dir
	r.startedAt = time.Now()
	s.run = r
	s.mu.Unlock()

	log.Info("Supervisor.Start: started", "pid", r.pid, "run_id", r.id, "dir", dir)
	s.emit(Event{Type: EventStart, RunID: r.id, PID: r.pid})
	close(ready)

	go s.wait(r, stdout, stderr)
	return nil
}

// buildCommand resolves the working directory and environment once and
// assembles the exec.Cmd.
func (s *Supervisor) buildCommand() (*exec.Cmd, string, error) {
	if strings.TrimSpace(s.spec.Command) == "" {
		return nil, "", ErrEmptyCommand
	}

	dir, err := resolveDir(s.spec)
	if err != nil {
		return nil, "", err
	}

	name, args := s.spec.Command, s.spec.Args
	if s.spec.Shell {
		name, args = shellCommand(joinCommandLine(s.spec.Command, s.spec.Args))
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = mergeEnv(os.Environ(), s.spec.Env)
	configureProcessGroup(cmd)
	return cmd, dir, nil
}

// wait reaps r and emits its terminal events.
func (s *Supervisor) wait(r *run, outputs ...*lineWriter) {
	err := r.cmd.Wait()
	for _, w := range outputs {
		w.Flush()
	}

	code, sig := describeExit(r.cmd.ProcessState)
	log := s.log.With("pid", r.pid, "run_id", r.id)
	switch {
	case errors.Is(err, exec.ErrWaitDelay):
		log.Warn("Supervisor.wait: output pipes still open after exit", "wait_delay", s.waitDelay)
		s.emit(Event{Type: EventError, RunID: r.id, PID: r.pid, Err: fmt.Errorf("output streams: %w", err)})
	case err != nil && r.cmd.ProcessState == nil:
		log.Error("Supervisor.wait: wait failed", "error", err)
		s.emit(Event{Type: EventError, RunID: r.id, PID: r.pid, Err: fmt.Errorf("wait: %w", err)})
	}

	status := &ExitStatus{RunID: r.id, Code: code, Signal: sig, ExitedAt: time.Now()}
	s.mu.Lock()
	if s.run == r {
		s.run = nil
	}
	s.lastExit = status
	s.mu.Unlock()

	log.Info("Supervisor.wait: exited", "status", status.String())
	s.emit(Event{Type: EventExit, RunID: r.id, PID: r.pid, ExitCode: code, Signal: sig})
	close(r.done)
}

func (s *Supervisor) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events.Emit(ev)
}

// Stop sends sig (SIGTERM when zero) to the process group and waits for the
// exit event. It returns nil immediately when nothing is running. Concurrent
// calls send a single signal and all return after the same exit. Stop has
// no timeout of its own; ctx bounds the wait and its error is returned if it
// expires first, leaving the process to a later Kill.
func (s *Supervisor) Stop(ctx context.Context, sig syscall.Signal) error {
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	s.mu.Lock()
	r := s.run
	if r == nil {
		s.mu.Unlock()
		return nil
	}
	first := !r.killing
	r.killing = true
	s.mu.Unlock()

	if first {
		s.log.Info("Supervisor.Stop: signalling", "pid", r.pid, "signal", signalName(sig))
		if err := s.signal(r.pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
			s.mu.Lock()
			r.killing = false
			s.mu.Unlock()
			return fmt.Errorf("signal %s: %w", signalName(sig), err)
		}
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill sends SIGKILL to the process group without waiting. It is a no-op
// when nothing is running and may follow a Stop that is still waiting.
func (s *Supervisor) Kill() error {
	s.mu.Lock()
	r := s.run
	if r != nil {
		r.killing = true
	}
	s.mu.Unlock()
	if r == nil {
		return nil
	}

	s.log.Warn("Supervisor.Kill: killing process group", "pid", r.pid)
	if err := s.signal(r.pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}

// IsRunning reports whether a process is running and not being stopped.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil && !s.run.killing
}

// PID returns the process identifier while a process exists.
func (s *Supervisor) PID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return 0, false
	}
	return s.run.pid, true
}

// RunInfo describes the current run.
type RunInfo struct {
	RunID     string
	PID       int
	Dir       string
	StartedAt time.Time
	Stopping  bool
}

// Current returns information about the current run, if any.
func (s *Supervisor) Current() (RunInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return RunInfo{}, false
	}
	return RunInfo{
		RunID:     s.run.id,
		PID:       s.run.pid,
		Dir:       s.run.dir,
		StartedAt: s.run.startedAt,
		Stopping:  s.run.killing,
	}, true
}

// LastExit returns how the previous run ended.
func (s *Supervisor) LastExit() (ExitStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastExit == nil {
		return ExitStatus{}, false
	}
	return *s.lastExit, true
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done returns a channel closed after the current run's exit event.
// When nothing is running the returned channel is already closed.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return closedChan
	}
	return s.run.done
}

// SendInput writes text and a newline to the process's stdin.
func (s *Supervisor) SendInput(text string) error {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()
	if r == nil {
		return ErrNotRunning
	}
	if _, err := io.WriteString(r.stdin, text+"\n"); err != nil {
		return fmt.Errorf("write stdin: %w", err)
	}
	return nil
}

// resolveDir applies ProjectPath > WorkDir > current directory.
func resolveDir(spec Spec) (string, error) {
	switch {
	case spec.ProjectPath != "":
		return spec.ProjectPath, nil
	case spec.WorkDir != "":
		return spec.WorkDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return dir, nil
}

// mergeEnv overlays extra on base. Variables named in extra replace the
// inherited ones; the result holds each name once.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[name]; ok {
			continue
		}
		out = append(out, kv)
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, name+"="+extra[name])
	}
	return out
}

func joinCommandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
