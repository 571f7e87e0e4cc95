//go:build unix

package supervisor

import (
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestGuardFireKillsChildren(t *testing.T) {
	s := New(Spec{Command: "sleep", Args: []string{"10"}}, Options{})
	rec := record(s)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	g := NewGuard()
	g.Add(s)
	g.Fire()

	waitDone(t, s)
	exit := rec.waitFor(t, ofType(EventExit))
	if exit.Signal != "SIGKILL" {
		t.Errorf("exit signal = %q, want SIGKILL", exit.Signal)
	}
}

func TestGuardFireOnce(t *testing.T) {
	var kills atomic.Int32
	g := NewGuard()
	g.Add(KillerFunc(func() error { kills.Add(1); return nil }))

	g.Fire()
	g.Fire()
	if n := kills.Load(); n != 1 {
		t.Errorf("kills = %d, want 1", n)
	}

	// Late registrations are killed straight away.
	g.Add(KillerFunc(func() error { kills.Add(1); return nil }))
	if n := kills.Load(); n != 2 {
		t.Errorf("kills after late Add = %d, want 2", n)
	}
}

func TestGuardInstallHandlesSignal(t *testing.T) {
	var kills atomic.Int32
	exited := make(chan int, 1)

	g := NewGuard()
	g.exit = func(code int) { exited <- code }
	g.Add(KillerFunc(func() error { kills.Add(1); return nil }))

	uninstall := g.Install()
	defer uninstall()

	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("send SIGHUP: %v", err)
	}

	select {
	case code := <-exited:
		if code != 128+int(syscall.SIGHUP) {
			t.Errorf("exit code = %d, want %d", code, 128+int(syscall.SIGHUP))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not react to SIGHUP")
	}
	if n := kills.Load(); n != 1 {
		t.Errorf("kills = %d, want 1", n)
	}
}
