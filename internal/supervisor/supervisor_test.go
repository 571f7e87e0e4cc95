//go:build unix

package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// recorder collects events and lets tests wait for a given type.
type recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

func record(s *Supervisor) *recorder {
	r := &recorder{notify: make(chan struct{}, 1)}
	s.OnEvent(func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		select {
		case r.notify <- struct{}{}:
		default:
		}
	})
	return r
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(t EventType) int {
	n := 0
	for _, ev := range r.snapshot() {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) waitFor(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		for _, ev := range r.snapshot() {
			if match(ev) {
				return ev
			}
		}
		select {
		case <-r.notify:
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for event; got %+v", r.snapshot())
		}
	}
}

func ofType(typ EventType) func(Event) bool {
	return func(ev Event) bool { return ev.Type == typ }
}

func waitDone(t *testing.T, s *Supervisor) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for process to exit")
	}
}

func TestStartStop(t *testing.T) {
	s := New(Spec{Command: "sleep", Args: []string{"10"}}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := rec.waitFor(t, ofType(EventStart))
	pid, ok := s.PID()
	if !ok || pid != start.PID || pid <= 0 {
		t.Errorf("PID() = %d, %v; start event pid = %d", pid, ok, start.PID)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	if err := s.Stop(context.Background(), 0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if _, ok := s.PID(); ok {
		t.Error("PID() present after Stop")
	}

	events := rec.snapshot()
	last := events[len(events)-1]
	if last.Type != EventExit {
		t.Fatalf("last event = %s, want exit", last.Type)
	}
	if last.Signal != "SIGTERM" || last.ExitCode != nil {
		t.Errorf("exit = code %v signal %q, want signal SIGTERM", last.ExitCode, last.Signal)
	}
	if last.RunID != start.RunID {
		t.Errorf("exit run id %q != start run id %q", last.RunID, start.RunID)
	}

	exit, ok := s.LastExit()
	if !ok || exit.String() != "signal SIGTERM" {
		t.Errorf("LastExit() = %v, %v", exit, ok)
	}
}

func TestStopWhenIdle(t *testing.T) {
	s := New(Spec{Command: "true"}, Options{})
	if err := s.Stop(context.Background(), syscall.SIGTERM); err != nil {
		t.Errorf("Stop() on idle supervisor = %v, want nil", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed when idle")
	}
}

func TestStartWhileRunning(t *testing.T) {
	s := New(Spec{Command: "sleep", Args: []string{"10"}}, Options{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Kill()

	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
}

func TestSpawnFailure(t *testing.T) {
	s := New(Spec{Command: "doesNotExist12345"}, Options{})
	rec := record(s)

	err := s.Start()
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Start() error = %v, want *SpawnError", err)
	}

	// Give any stray goroutine a chance to emit.
	time.Sleep(50 * time.Millisecond)
	if n := rec.count(EventError); n != 1 {
		t.Errorf("error events = %d, want 1", n)
	}
	if n := rec.count(EventExit); n != 0 {
		t.Errorf("exit events = %d, want 0", n)
	}
	if n := rec.count(EventStart); n != 0 {
		t.Errorf("start events = %d, want 0", n)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after failed spawn")
	}
}

func TestSpawnFailureBadDir(t *testing.T) {
	s := New(Spec{Command: "true", WorkDir: filepath.Join(t.TempDir(), "missing")}, Options{})
	if err := s.Start(); err == nil {
		t.Fatal("Start() in missing directory succeeded")
	}
}

func TestEmptyCommand(t *testing.T) {
	s := New(Spec{Command: "  "}, Options{})
	if err := s.Start(); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Start() = %v, want ErrEmptyCommand", err)
	}
}

func TestConcurrentStopSendsOneSignal(t *testing.T) {
	var signals atomic.Int32
	s := New(Spec{Command: "sleep", Args: []string{"10"}}, Options{
		Signal: func(pid int, sig syscall.Signal) error {
			signals.Add(1)
			return signalGroup(pid, sig)
		},
	})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Stop(context.Background(), syscall.SIGTERM)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Stop() #%d error = %v", i, err)
		}
	}
	if n := signals.Load(); n != 1 {
		t.Errorf("signals sent = %d, want 1", n)
	}
	if n := rec.count(EventExit); n != 1 {
		t.Errorf("exit events = %d, want 1", n)
	}
}

func TestOutputEvents(t *testing.T) {
	script := `echo one; echo "  two  "; echo err >&2; echo; printf tail`
	s := New(Spec{Command: "sh", Args: []string{"-c", script}}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, s)

	events := rec.snapshot()
	if events[0].Type != EventStart {
		t.Errorf("first event = %s, want start", events[0].Type)
	}
	if events[len(events)-1].Type != EventExit {
		t.Errorf("last event = %s, want exit", events[len(events)-1].Type)
	}

	var stdout, stderr []string
	for _, ev := range events {
		switch ev.Type {
		case EventStdout:
			stdout = append(stdout, ev.Text)
		case EventStderr:
			stderr = append(stderr, ev.Text)
		}
	}
	if got := strings.Join(stdout, "|"); got != "one|two|tail" {
		t.Errorf("stdout = %q, want one|two|tail", got)
	}
	if got := strings.Join(stderr, "|"); got != "err" {
		t.Errorf("stderr = %q, want err", got)
	}

	exit := events[len(events)-1]
	if exit.ExitCode == nil || *exit.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", exit.ExitCode)
	}
}

func TestExitCode(t *testing.T) {
	s := New(Spec{Command: "sh", Args: []string{"-c", "exit 3"}}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	exit := rec.waitFor(t, ofType(EventExit))
	if exit.ExitCode == nil || *exit.ExitCode != 3 {
		t.Errorf("exit code = %v, want 3", exit.ExitCode)
	}
	if exit.Signal != "" {
		t.Errorf("signal = %q, want empty", exit.Signal)
	}
}

func TestWorkDirAndEnv(t *testing.T) {
	project := t.TempDir()
	other := t.TempDir()
	t.Setenv("DEVSUP_TEST_VAR", "inherited")

	s := New(Spec{
		Command:     "sh",
		Args:        []string{"-c", `pwd; echo "$DEVSUP_TEST_VAR"; echo "$EXTRA"`},
		ProjectPath: project,
		WorkDir:     other,
		Env:         map[string]string{"DEVSUP_TEST_VAR": "override", "EXTRA": "x"},
	}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, s)

	var lines []string
	for _, ev := range rec.snapshot() {
		if ev.Type == EventStdout {
			lines = append(lines, ev.Text)
		}
	}
	if len(lines) != 3 {
		t.Fatalf("stdout lines = %q, want 3", lines)
	}

	want, _ := filepath.EvalSymlinks(project)
	got, _ := filepath.EvalSymlinks(lines[0])
	if got != want {
		t.Errorf("pwd = %q, want %q (project_path wins over cwd)", got, want)
	}
	if lines[1] != "override" {
		t.Errorf("DEVSUP_TEST_VAR = %q, want override", lines[1])
	}
	if lines[2] != "x" {
		t.Errorf("EXTRA = %q, want x", lines[2])
	}
}

func TestShellSpec(t *testing.T) {
	s := New(Spec{Command: "echo", Args: []string{"a", "b"}, Shell: true}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ev := rec.waitFor(t, ofType(EventStdout))
	if ev.Text != "a b" {
		t.Errorf("stdout = %q, want %q", ev.Text, "a b")
	}
	waitDone(t, s)
}

func TestSendInput(t *testing.T) {
	s := New(Spec{Command: "cat"}, Options{})
	rec := record(s)

	if err := s.SendInput("early"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("SendInput() before Start = %v, want ErrNotRunning", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Kill()

	if err := s.SendInput("hello"); err != nil {
		t.Fatalf("SendInput() error = %v", err)
	}
	ev := rec.waitFor(t, ofType(EventStdout))
	if ev.Text != "hello" {
		t.Errorf("echoed = %q, want hello", ev.Text)
	}
}

func TestStopTimeoutThenKill(t *testing.T) {
	s := New(Spec{Command: "sh", Args: []string{"-c", `trap "" TERM; echo ready; sleep 10`}}, Options{})
	rec := record(s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.waitFor(t, ofType(EventStdout))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx, syscall.SIGTERM); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() = %v, want DeadlineExceeded", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true while stop is in flight")
	}
	if _, ok := s.PID(); !ok {
		t.Error("PID() absent while process still exists")
	}

	if err := s.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	waitDone(t, s)

	exit := rec.waitFor(t, ofType(EventExit))
	if exit.Signal != "SIGKILL" {
		t.Errorf("exit signal = %q, want SIGKILL", exit.Signal)
	}
}

func TestRestartAfterExit(t *testing.T) {
	s := New(Spec{Command: "true"}, Options{})
	rec := record(s)

	for i := 0; i < 2; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
		waitDone(t, s)
	}

	starts := 0
	ids := map[string]bool{}
	for _, ev := range rec.snapshot() {
		if ev.Type == EventStart {
			starts++
			ids[ev.RunID] = true
		}
	}
	if starts != 2 || len(ids) != 2 {
		t.Errorf("starts = %d with %d distinct run ids, want 2 and 2", starts, len(ids))
	}
}

func TestUsage(t *testing.T) {
	s := New(Spec{Command: "sleep", Args: []string{"10"}}, Options{})
	if _, err := s.Usage(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Usage() idle = %v, want ErrNotRunning", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Kill()

	u, err := s.Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if pid, _ := s.PID(); u.PID != pid {
		t.Errorf("Usage().PID = %d, want %d", u.PID, pid)
	}
	if u.RSSBytes == 0 {
		t.Error("Usage().RSSBytes = 0")
	}
}

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "B=2", "PATH=/bin"}
	got := mergeEnv(base, map[string]string{"B": "override", "C": "3"})
	want := []string{"A=1", "PATH=/bin", "B=override", "C=3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("mergeEnv() = %v, want %v", got, want)
	}

	if got := mergeEnv(base, nil); len(got) != len(base) {
		t.Errorf("mergeEnv(nil) changed base: %v", got)
	}
}

func TestResolveDir(t *testing.T) {
	cwd, _ := os.Getwd()
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"project path wins", Spec{ProjectPath: "/p", WorkDir: "/w"}, "/p"},
		{"work dir", Spec{WorkDir: "/w"}, "/w"},
		{"fallback", Spec{}, cwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDir(tt.spec)
			if err != nil {
				t.Fatalf("resolveDir() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want syscall.Signal
		ok   bool
	}{
		{"SIGTERM", syscall.SIGTERM, true},
		{"term", syscall.SIGTERM, true},
		{"SIGINT", syscall.SIGINT, true},
		{"kill", syscall.SIGKILL, true},
		{"", 0, false},
		{"NOPE", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSignal(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSignal(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLineWriter(t *testing.T) {
	ready := make(chan struct{})
	close(ready)

	var lines []string
	w := newLineWriter(ready, func(s string) { lines = append(lines, s) })
	w.Write([]byte("alpha\r\nbe"))
	w.Write([]byte("ta\n\n   \ngam"))
	w.Flush()

	if got := strings.Join(lines, "|"); got != "alpha|beta|gam" {
		t.Errorf("lines = %q, want alpha|beta|gam", got)
	}
}
