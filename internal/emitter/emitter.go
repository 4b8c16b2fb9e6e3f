// Package emitter provides the small synchronous event-emitter used by the
// Recorder and Replayer to expose their action/console-error/stop/close
// events to callers, adapted from the subscriber map pattern of an SSE
// broker but dispatching in registration order and synchronously rather
// than fanning out over buffered channels. Recorder/replayer events must
// never be dropped, so there is no slow-consumer drop path here.
package emitter

import "sync"

// Emitter is a named-event pub/sub with ordered, synchronous dispatch.
// Zero value is usable.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]func(payload any)
}

// On registers fn to run every time event is emitted, in the order
// registered relative to other listeners of the same event.
func (e *Emitter) On(event string, fn func(payload any)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]func(payload any))
	}
	e.listeners[event] = append(e.listeners[event], fn)
}

// Emit calls every listener registered for event, in registration order,
// synchronously on the calling goroutine. Listeners run with the
// Emitter's lock released, so they may themselves call On or Emit.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	fns := make([]func(payload any), len(e.listeners[event]))
	copy(fns, e.listeners[event])
	e.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// RemoveAll drops every listener for every event. Used when a
// Recorder/Replayer transitions back to its idle state and must not leak
// closures over a now-dead session.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}
