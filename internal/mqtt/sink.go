package mqtt

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/logging"
	"github.com/tessro/devsup/internal/supervisor"
)

// DefaultQueueSize bounds the messages waiting to be published.
const DefaultQueueSize = 256

// Publisher is the subset of Client used by Sink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Payload is the JSON body of an event message.
type Payload struct {
	RunID    string `json:"run_id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	PID      int    `json:"pid,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Error    string `json:"error,omitempty"`
	Time     string `json:"time"`
}

type message struct {
	topic   string
	payload []byte
}

// Sink forwards supervisor events to a Publisher from a single goroutine,
// so event order is preserved per process. When the queue is full or the
// client is offline, events are dropped.
type Sink struct {
	pub    Publisher
	topics Topics
	qos    byte
	log    *slog.Logger

	queue chan message
	done  chan struct{}

	mu sync.RWMutex
	// +checklocks:mu
	closed bool
}

// NewSink starts a Sink publishing through pub.
func NewSink(pub Publisher, topics Topics, qos byte) *Sink {
	s := &Sink{
		pub:    pub,
		topics: topics,
		qos:    qos,
		log:    slog.With("component", "mqtt-sink"),
		queue:  make(chan message, DefaultQueueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// NewPayload converts ev into its wire form.
func NewPayload(key string, ev supervisor.Event) Payload {
	p := Payload{
		RunID:    ev.RunID,
		Key:      key,
		Type:     string(ev.Type),
		Text:     ev.Text,
		PID:      ev.PID,
		ExitCode: ev.ExitCode,
		Signal:   ev.Signal,
		Time:     ev.Time.UTC().Format(logbuf.TimestampFormat),
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}

// Publish queues ev for delivery without blocking.
func (s *Sink) Publish(key string, ev supervisor.Event) {
	data, err := json.Marshal(NewPayload(key, ev))
	if err != nil {
		s.log.Warn("Sink.Publish: marshal failed", "error", err)
		return
	}
	m := message{topic: s.topics.Event(key, string(ev.Type)), payload: data}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- m:
	default:
		s.log.Debug("Sink.Publish: queue full, dropping event", "topic", m.topic)
	}
}

func (s *Sink) run() {
	defer close(s.done)
	defer logging.LogPanic("mqtt-sink", nil)

	for m := range s.queue {
		err := s.pub.Publish(m.topic, m.payload, s.qos, false)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotConnected):
			s.log.Debug("Sink: not connected, dropping event", "topic", m.topic)
		default:
			s.log.Warn("Sink: publish failed", "topic", m.topic, "error", err)
		}
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
