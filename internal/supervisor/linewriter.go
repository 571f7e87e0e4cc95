package supervisor

import (
	"bytes"
	"strings"
	"sync"
)

// maxLineLength caps a line that never sees a newline.
const maxLineLength = 64 * 1024

// lineWriter splits a byte stream into trimmed lines. Blank lines are
// dropped. Writes block until ready is closed.
type lineWriter struct {
	ready <-chan struct{}
	emit  func(string)

	mu  sync.Mutex
	buf []byte
}

func newLineWriter(ready <-chan struct{}, emit func(string)) *lineWriter {
	return &lineWriter{ready: ready, emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	<-w.ready

	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) >= maxLineLength {
		w.line(w.buf)
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.line(w.buf)
	}
	w.buf = nil
}

func (w *lineWriter) line(b []byte) {
	if s := strings.TrimSpace(string(b)); s != "" {
		w.emit(s)
	}
}
