package supervisor

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Killer is anything the Guard can force-terminate.
type Killer interface {
	Kill() error
}

// KillerFunc adapts a function to Killer.
type KillerFunc func() error

func (f KillerFunc) Kill() error { return f() }

// Guard kills registered children when the hosting program terminates,
// whether by SIGINT, SIGTERM, SIGHUP or a normal exit that calls Fire.
type Guard struct {
	mu sync.Mutex
	// +checklocks:mu
	killers []Killer
	// +checklocks:mu
	fired bool

	// exit is called after a signal-triggered Fire. Defaults to os.Exit.
	exit func(code int)
	log  *slog.Logger
}

// NewGuard returns a Guard with no registered children.
func NewGuard() *Guard {
	return &Guard{
		exit: os.Exit,
		log:  slog.With("component", "guard"),
	}
}

// Add registers k. Adding after Fire kills k immediately.
func (g *Guard) Add(k Killer) {
	g.mu.Lock()
	if !g.fired {
		g.killers = append(g.killers, k)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	_ = k.Kill()
}

// Install starts listening for termination signals. On the first signal the
// Guard fires and then exits the program with 128+signal. The returned
// function stops listening.
func (g *Guard) Install() (uninstall func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	stop := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			g.log.Info("Guard: received signal, killing children", "signal", sig.String())
			g.Fire()
			code := 1
			if s, ok := sig.(syscall.Signal); ok {
				code = 128 + int(s)
			}
			g.exit(code)
		case <-stop:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(stop)
		})
	}
}

// Fire sends SIGKILL to every registered child, synchronously. Only the
// first call has an effect.
func (g *Guard) Fire() {
	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	killers := g.killers
	g.killers = nil
	g.mu.Unlock()

	for _, k := range killers {
		if err := k.Kill(); err != nil {
			g.log.Warn("Guard.Fire: kill failed", "error", err)
		}
	}
}
