// Package logbuf keeps a bounded, queryable history of process output lines
// with an optional append-only mirror file.
package logbuf

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxEntries is the default number of entries retained in memory.
const DefaultMaxEntries = 1000

// TimestampFormat is ISO-8601 in UTC with millisecond precision. Every
// timestamp has the same width, so string order equals time order.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// StreamType identifies which output stream an entry came from.
type StreamType string

const (
	Stdout StreamType = "stdout"
	Stderr StreamType = "stderr"
	// All matches both streams in a Query.
	All StreamType = "all"
)

// ParseStreamType converts s to a StreamType. Empty means All.
func ParseStreamType(s string) (StreamType, error) {
	switch StreamType(s) {
	case "", All:
		return All, nil
	case Stdout, Stderr:
		return StreamType(s), nil
	}
	return "", fmt.Errorf("invalid stream type %q (want all, stdout, or stderr)", s)
}

// Entry is a single captured line. Entries are immutable once appended.
type Entry struct {
	Type      StreamType `json:"type"`
	Data      string     `json:"data"`
	Timestamp string     `json:"timestamp"`
}

// Options configures a Buffer.
type Options struct {
	// MaxEntries bounds the in-memory history. Values <= 0 use DefaultMaxEntries.
	MaxEntries int

	// FilePath enables mirroring when non-empty. Each appended entry is
	// written to this file as one FormatLine line.
	FilePath string

	// Logger receives mirror failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Buffer is a thread-safe FIFO ring of log entries.
//
// Appends are serialized end to end, so mirror lines reach the file in the
// same order entries are stored in memory. Queries take only the read lock
// and never wait on file I/O.
type Buffer struct {
	// appendMu serializes Append; it is always taken before mu.
	appendMu sync.Mutex

	mu sync.RWMutex
	// +checklocks:mu
	entries []Entry
	// +checklocks:mu
	head int
	// +checklocks:mu
	count int
	// +checklocks:mu
	lastTimestamp string

	size     int
	filePath string
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Buffer from opts.
func New(opts Options) *Buffer {
	size := opts.MaxEntries
	if size <= 0 {
		size = DefaultMaxEntries
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Buffer{
		entries:  make([]Entry, size),
		size:     size,
		filePath: opts.FilePath,
		log:      logger.With("component", "logbuf"),
		now:      now,
	}
}

// Capacity returns the maximum number of retained entries.
func (b *Buffer) Capacity() int {
	return b.size
}

// FilePath returns the mirror file path, or "" when mirroring is disabled.
func (b *Buffer) FilePath() string {
	return b.filePath
}

// MirrorEnabled reports whether appends are mirrored to a file.
func (b *Buffer) MirrorEnabled() bool {
	return b.filePath != ""
}

// Len returns the number of entries currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Append stores a new entry stamped with the current time and, when
// mirroring is enabled, writes it to the mirror file before returning.
// The in-memory store always succeeds; mirror failures are logged only.
func (b *Buffer) Append(t StreamType, data string) Entry {
	b.appendMu.Lock()
	defer b.appendMu.Unlock()

	b.mu.Lock()
	ts := b.now().UTC().Format(TimestampFormat)
	// Wall clocks can step backwards; keep the sequence non-decreasing.
	if ts < b.lastTimestamp {
		ts = b.lastTimestamp
	}
	b.lastTimestamp = ts
	e := Entry{Type: t, Data: data, Timestamp: ts}
	b.store(e)
	b.mu.Unlock()

	if b.filePath != "" {
		if err := appendLine(b.filePath, e); err != nil {
			b.log.Warn("Buffer.Append: mirror write failed", "path", b.filePath, "error", err)
		}
	}
	return e
}

// +checklocks:b.mu
func (b *Buffer) store(e Entry) {
	b.entries[b.head] = e
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// snapshot returns entries oldest first.
//
// +checklocksread:b.mu
func (b *Buffer) snapshot() []Entry {
	out := make([]Entry, b.count)
	start := (b.head - b.count + b.size) % b.size
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(start+i)%b.size]
	}
	return out
}

// Entries returns a copy of every retained entry, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot()
}

// Logs returns the entries matching q, oldest first. See Filter.
func (b *Buffer) Logs(q Query) []Entry {
	return Filter(b.Entries(), q)
}

// Clear drops every in-memory entry. The mirror file is left untouched.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
	b.head = 0
	b.count = 0
}

// Stats summarizes the buffer contents.
type Stats struct {
	TotalEntries    int    `json:"totalEntries"`
	StdoutCount     int    `json:"stdoutCount"`
	StderrCount     int    `json:"stderrCount"`
	OldestTimestamp string `json:"oldestLogTimestamp,omitempty"`
	NewestTimestamp string `json:"newestLogTimestamp,omitempty"`
}

// Stats counts the current entries in a single pass.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var s Stats
	start := (b.head - b.count + b.size) % b.size
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%b.size]
		switch e.Type {
		case Stdout:
			s.StdoutCount++
		case Stderr:
			s.StderrCount++
		}
		if i == 0 {
			s.OldestTimestamp = e.Timestamp
		}
		s.NewestTimestamp = e.Timestamp
	}
	s.TotalEntries = b.count
	return s
}
