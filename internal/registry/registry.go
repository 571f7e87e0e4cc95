// Package registry keeps named supervised processes and their log buffers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/logging"
	"github.com/tessro/devsup/internal/supervisor"
)

// Errors returned by registry operations.
var (
	ErrUnknownProcess = errors.New("unknown process")
	ErrClosed         = errors.New("registry closed")
)

// Sink receives every supervisor event for a key, after it has been
// recorded in the key's buffer. Publish must not block.
type Sink interface {
	Publish(key string, ev supervisor.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(key string, ev supervisor.Event)

func (f SinkFunc) Publish(key string, ev supervisor.Event) { f(key, ev) }

// Options configures a Registry.
type Options struct {
	// MaxEntries bounds each key's buffer.
	MaxEntries int

	// StopTimeout bounds a graceful stop before the registry escalates to
	// SIGKILL. Defaults to config.DefaultStopTimeout.
	StopTimeout time.Duration

	// LogPath returns the mirror file for key. Nil disables mirroring.
	LogPath func(key string) (string, error)

	Logger *slog.Logger
	Sinks  []Sink

	// Guard, when set, kills every started process on program termination.
	Guard *supervisor.Guard

	// WaitDelay is passed to each supervisor.
	WaitDelay time.Duration
}

// FromConfig builds Options from cfg. cfg may be nil.
func FromConfig(cfg *config.Config) Options {
	opts := Options{
		MaxEntries:  cfg.GetMaxEntries(),
		StopTimeout: cfg.GetStopTimeout(),
	}
	if cfg.MirrorEnabled() {
		opts.LogPath = cfg.LogPath
	}
	return opts
}

// Registry owns a set of keyed processes. The buffer for a key survives
// restarts; the supervisor is replaced on every Start.
type Registry struct {
	opts Options
	log  *slog.Logger

	mu sync.Mutex
	// +checklocks:mu
	procs map[string]*entry
	// +checklocks:mu
	closed bool
}

type entry struct {
	key string
	buf *logbuf.Buffer

	// startMu serializes Start and Stop for this key.
	startMu sync.Mutex

	mu sync.Mutex
	// +checklocks:mu
	sup *supervisor.Supervisor
	// +checklocks:mu
	unsub func()
}

func (e *entry) current() *supervisor.Supervisor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sup
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = config.DefaultStopTimeout
	}
	return &Registry{
		opts:  opts,
		log:   logger.With("component", "registry"),
		procs: make(map[string]*entry),
	}
}

// entry returns the entry for key, creating it (and its buffer) if needed.
func (r *Registry) entry(key string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if e, ok := r.procs[key]; ok {
		return e, nil
	}

	var filePath string
	if r.opts.LogPath != nil {
		p, err := r.opts.LogPath(key)
		if err != nil {
			r.log.Warn("Registry: no mirror path, mirroring disabled", "key", key, "error", err)
		} else {
			filePath = p
		}
	}
	e := &entry{
		key: key,
		buf: logbuf.New(logbuf.Options{
			MaxEntries: r.opts.MaxEntries,
			FilePath:   filePath,
			Logger:     r.log.With("key", key),
		}),
	}
	r.procs[key] = e
	return e, nil
}

func (r *Registry) lookup(key string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.procs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcess, key)
	}
	return e, nil
}

// Start runs spec under key. A process already running under key is
// stopped first. Output from every run of key lands in the same buffer.
func (r *Registry) Start(ctx context.Context, key string, spec supervisor.Spec) (supervisor.RunInfo, error) {
	if err := config.ValidateKey(key); err != nil {
		return supervisor.RunInfo{}, err
	}
	e, err := r.entry(key)
	if err != nil {
		return supervisor.RunInfo{}, err
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	if old := e.current(); old != nil {
		if _, running := old.Current(); running {
			r.log.Info("Registry.Start: stopping existing process", "key", key)
			if err := r.stop(ctx, key, old, 0); err != nil {
				return supervisor.RunInfo{}, fmt.Errorf("stop existing %s: %w", key, err)
			}
		}
	}

	sup := supervisor.New(spec, supervisor.Options{
		Logger:    r.log.With("key", key),
		WaitDelay: r.opts.WaitDelay,
	})
	unsub := sup.OnEvent(func(ev supervisor.Event) { r.record(e, ev) })

	e.mu.Lock()
	if e.unsub != nil {
		e.unsub()
	}
	e.sup = sup
	e.unsub = unsub
	e.mu.Unlock()

	// The start event is emitted on this goroutine, before Start returns.
	var info supervisor.RunInfo
	watch := sup.OnEvent(func(ev supervisor.Event) {
		if ev.Type == supervisor.EventStart {
			info = supervisor.RunInfo{RunID: ev.RunID, PID: ev.PID, StartedAt: ev.Time}
		}
	})
	err = sup.Start()
	watch()
	if err != nil {
		return supervisor.RunInfo{}, err
	}
	if r.opts.Guard != nil {
		r.opts.Guard.Add(sup)
	}
	if cur, ok := sup.Current(); ok {
		info = cur
	}

	r.log.Info("Registry.Start: started", "key", key, "pid", info.PID, "run_id", info.RunID)
	return info, nil
}

// record routes one event into the buffer, the diagnostic log and sinks.
func (r *Registry) record(e *entry, ev supervisor.Event) {
	defer logging.LogPanic("registry-record", nil)

	switch ev.Type {
	case supervisor.EventStdout:
		e.buf.Append(logbuf.Stdout, ev.Text)
	case supervisor.EventStderr:
		e.buf.Append(logbuf.Stderr, ev.Text)
	case supervisor.EventStart:
		r.log.Info("process started", "key", e.key, "pid", ev.PID, "run_id", ev.RunID)
	case supervisor.EventError:
		r.log.Error("process error", "key", e.key, "run_id", ev.RunID, "error", ev.Err)
	case supervisor.EventExit:
		code := "none"
		if ev.ExitCode != nil {
			code = fmt.Sprint(*ev.ExitCode)
		}
		r.log.Info("process exited", "key", e.key, "run_id", ev.RunID, "code", code, "signal", ev.Signal)
	}

	for _, s := range r.opts.Sinks {
		s.Publish(e.key, ev)
	}
}

// Stop stops the process under key with sig (SIGTERM when zero). If it has
// not exited within StopTimeout it is killed. Stopping an idle key is not
// an error; ErrUnknownProcess is returned for keys never started.
func (r *Registry) Stop(ctx context.Context, key string, sig syscall.Signal) error {
	e, err := r.lookup(key)
	if err != nil {
		return err
	}
	e.startMu.Lock()
	defer e.startMu.Unlock()

	sup := e.current()
	if sup == nil {
		return nil
	}
	return r.stop(ctx, key, sup, sig)
}

func (r *Registry) stop(ctx context.Context, key string, sup *supervisor.Supervisor, sig syscall.Signal) error {
	stopCtx, cancel := context.WithTimeout(ctx, r.opts.StopTimeout)
	defer cancel()

	err := sup.Stop(stopCtx, sig)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	r.log.Warn("Registry.Stop: graceful stop timed out, killing", "key", key, "timeout", r.opts.StopTimeout)
	if err := sup.Kill(); err != nil {
		return err
	}
	select {
	case <-sup.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status describes one key.
type Status struct {
	Key       string                 `json:"name"`
	Running   bool                   `json:"running"`
	Stopping  bool                   `json:"stopping,omitempty"`
	PID       int                    `json:"pid,omitempty"`
	RunID     string                 `json:"run_id,omitempty"`
	Command   string                 `json:"command,omitempty"`
	Dir       string                 `json:"cwd,omitempty"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Usage     *supervisor.Usage      `json:"usage,omitempty"`
	LastExit  *supervisor.ExitStatus `json:"last_exit,omitempty"`
	Logs      logbuf.Stats           `json:"logs"`
}

// Status reports the state of key.
func (r *Registry) Status(key string) (Status, error) {
	e, err := r.lookup(key)
	if err != nil {
		return Status{}, err
	}
	return statusOf(e), nil
}

func statusOf(e *entry) Status {
	st := Status{Key: e.key, Logs: e.buf.Stats()}
	sup := e.current()
	if sup == nil {
		return st
	}
	st.Command = sup.Spec().Command
	if info, ok := sup.Current(); ok {
		started := info.StartedAt
		st.Running = !info.Stopping
		st.Stopping = info.Stopping
		st.PID = info.PID
		st.RunID = info.RunID
		st.Dir = info.Dir
		st.StartedAt = &started
		st.Uptime = time.Since(started).Truncate(time.Second).String()
		if u, err := sup.Usage(); err == nil {
			st.Usage = &u
		}
	}
	if last, ok := sup.LastExit(); ok {
		st.LastExit = &last
	}
	return st
}

// List returns the status of every key, sorted by key.
func (r *Registry) List() []Status {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.procs))
	for _, e := range r.procs {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		out = append(out, statusOf(e))
	}
	return out
}

// Keys returns every known key in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.procs))
	for k := range r.procs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Logs returns the buffer for key.
func (r *Registry) Logs(key string) (*logbuf.Buffer, error) {
	e, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Supervisor returns the supervisor of key's most recent run.
func (r *Registry) Supervisor(key string) (*supervisor.Supervisor, error) {
	e, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	sup := e.current()
	if sup == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcess, key)
	}
	return sup, nil
}

// SendInput writes text and a newline to key's stdin.
func (r *Registry) SendInput(key, text string) error {
	sup, err := r.Supervisor(key)
	if err != nil {
		return err
	}
	return sup.SendInput(text)
}

// StopAll stops every running process concurrently and returns the joined
// errors.
func (r *Registry) StopAll(ctx context.Context) error {
	keys := r.Keys()
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Stop(ctx, key, 0); err != nil {
				errs[i] = fmt.Errorf("stop %s: %w", key, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// KillAll sends SIGKILL to every running process without waiting.
func (r *Registry) KillAll() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.procs))
	for _, e := range r.procs {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		if sup := e.current(); sup != nil {
			if err := sup.Kill(); err != nil {
				r.log.Warn("Registry.KillAll: kill failed", "key", e.key, "error", err)
			}
		}
	}
}

// Close stops every process and rejects further Starts.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.StopAll(ctx)
}
