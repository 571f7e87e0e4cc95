package logbuf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follower tails a mirror file, delivering entries as they are appended.
// The file does not need to exist yet; its parent directory must.
type Follower struct {
	path    string
	offset  int64
	partial []byte
	last    *Entry
	log     *slog.Logger
}

// NewFollower returns a Follower that starts reading path at offset.
// Pass the current file size to skip existing content.
func NewFollower(path string, offset int64) *Follower {
	return &Follower{
		path:   filepath.Clean(path),
		offset: offset,
		log:    slog.With("component", "logbuf.follow", "path", path),
	}
}

// Offset returns the byte offset of the next unread byte.
func (f *Follower) Offset() int64 {
	return f.offset
}

// Run blocks until ctx is done, calling fn for each complete line written
// to the file. Continuation lines of multi-line data are delivered as
// entries carrying the previous header's type and timestamp.
func (f *Follower) Run(ctx context.Context, fn func(Entry)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so creation and rotation of the file are seen.
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Pick up anything written before the watch was in place.
	if err := f.drain(fn); err != nil {
		f.log.Warn("Follower.Run: initial read failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				f.reset()
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				if err := f.drain(fn); err != nil {
					f.log.Warn("Follower.Run: read failed", "error", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.log.Warn("Follower.Run: watcher error", "error", err)
		}
	}
}

func (f *Follower) reset() {
	f.offset = 0
	f.partial = f.partial[:0]
}

func (f *Follower) drain(fn func(Entry)) error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < f.offset {
		// Truncated in place.
		f.reset()
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.offset += int64(len(data))
	f.partial = append(f.partial, data...)

	for {
		i := bytes.IndexByte(f.partial, '\n')
		if i < 0 {
			break
		}
		f.emit(string(f.partial[:i]), fn)
		f.partial = f.partial[i+1:]
	}
	if len(f.partial) == 0 {
		f.partial = nil
	}
	return nil
}

func (f *Follower) emit(line string, fn func(Entry)) {
	if e, ok := ParseLine(line); ok {
		f.last = &e
		fn(e)
		return
	}
	if f.last != nil {
		fn(Entry{Type: f.last.Type, Timestamp: f.last.Timestamp, Data: line})
	}
}
