package tui

import "github.com/tessro/devsup/internal/supervisor"

// Notifier is a registry sink that wakes the TUI when a watched process
// emits an event. Bursts of output coalesce into a single wakeup, since the
// model re-reads the buffer on every refresh.
type Notifier struct {
	key string
	ch  chan struct{}
}

// NewNotifier returns a Notifier for key. An empty key watches every process.
func NewNotifier(key string) *Notifier {
	return &Notifier{key: key, ch: make(chan struct{}, 1)}
}

// Publish implements registry.Sink. It never blocks.
func (n *Notifier) Publish(key string, ev supervisor.Event) {
	if n.key != "" && key != n.key {
		return
	}
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the wakeup channel.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
