// Package event provides a generic observer used to fan out supervisor events.
package event

import "sync"

type subscriber[E any] struct {
	id int
	fn func(E)
}

// Emitter delivers events to registered handlers synchronously and in
// registration order. The zero value is ready to use.
type Emitter[E any] struct {
	mu sync.RWMutex
	// +checklocks:mu
	subs []subscriber[E]
	// +checklocks:mu
	nextID int
}

// OnEvent registers handler and returns a function that removes it.
// The returned function is safe to call more than once.
func (e *Emitter[E]) OnEvent(handler func(E)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs = append(e.subs, subscriber[E]{id: id, fn: handler})
	e.mu.Unlock()

	return func() { e.remove(id) }
}

func (e *Emitter[E]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered handlers.
func (e *Emitter[E]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Emit sends event to every handler registered at the time of the call.
// Handlers may register or remove handlers; changes apply to the next Emit.
// Must not be called with lock held.
func (e *Emitter[E]) Emit(event E) {
	e.mu.RLock()
	subs := make([]subscriber[E], len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		s.fn(event)
	}
}
