package event

import (
	"sync"
	"sync/atomic"
	"testing"
)

type testEvent struct {
	Value int
}

func TestEmitter_OnEvent(t *testing.T) {
	var e Emitter[testEvent]

	var received []testEvent
	e.OnEvent(func(ev testEvent) {
		received = append(received, ev)
	})

	e.Emit(testEvent{Value: 42})

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Value != 42 {
		t.Errorf("expected value 42, got %d", received[0].Value)
	}
}

func TestEmitter_RegistrationOrder(t *testing.T) {
	var e Emitter[testEvent]

	var order []int
	for i := 1; i <= 3; i++ {
		e.OnEvent(func(_ testEvent) { order = append(order, i) })
	}
	e.Emit(testEvent{})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestEmitter_Unsubscribe(t *testing.T) {
	var e Emitter[testEvent]

	var a, b int
	unsubA := e.OnEvent(func(_ testEvent) { a++ })
	e.OnEvent(func(_ testEvent) { b++ })

	e.Emit(testEvent{})
	unsubA()
	unsubA()
	e.Emit(testEvent{})

	if a != 1 {
		t.Errorf("removed handler called %d times, want 1", a)
	}
	if b != 2 {
		t.Errorf("remaining handler called %d times, want 2", b)
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
}

func TestEmitter_EmitToNoHandlers(t *testing.T) {
	var e Emitter[testEvent]

	// Should not panic when emitting with no handlers
	e.Emit(testEvent{Value: 42})
}

func TestEmitter_RegisterDuringEmit(t *testing.T) {
	var e Emitter[testEvent]

	var calls int
	e.OnEvent(func(_ testEvent) {
		calls++
		e.OnEvent(func(_ testEvent) { calls += 100 })
	})

	e.Emit(testEvent{})
	if calls != 1 {
		t.Fatalf("first emit calls = %d, want 1", calls)
	}

	e.Emit(testEvent{})
	if calls != 102 {
		t.Errorf("second emit calls = %d, want 102", calls)
	}
}

func TestEmitter_ConcurrentRegistrationAndEmission(t *testing.T) {
	var e Emitter[testEvent]

	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := e.OnEvent(func(_ testEvent) { count.Add(1) })
			unsub()
		}()
		go func(v int) {
			defer wg.Done()
			e.Emit(testEvent{Value: v})
		}(i)
	}
	wg.Wait()

	if e.Len() != 0 {
		t.Errorf("Len() = %d after all unsubscribed, want 0", e.Len())
	}
}
