package connector

import (
	"encoding/json"
	"slices"
	"sync"
)

// Emitter is an event registry for Host implementations. Handlers run on the
// emitting goroutine with no lock held, so they may call On or
// RemoveListener. The zero value is ready to use.
type Emitter struct {
	mu       sync.Mutex
	nextID   ListenerID
	handlers map[string][]registration
}

type registration struct {
	id ListenerID
	h  Handler
}

// On registers h for event.
func (e *Emitter) On(event string, h Handler) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]registration)
	}
	e.nextID++
	e.handlers[event] = append(e.handlers[event], registration{id: e.nextID, h: h})
	return e.nextID
}

// RemoveListener unregisters the handler with the given id. Unknown ids are ignored.
func (e *Emitter) RemoveListener(event string, id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[event] = slices.DeleteFunc(e.handlers[event], func(r registration) bool { return r.id == id })
	if len(e.handlers[event]) == 0 {
		delete(e.handlers, event)
	}
}

// Len returns the number of registered handlers across all events.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, regs := range e.handlers {
		n += len(regs)
	}
	return n
}

// Emit delivers payload to every handler registered for event at the time of the call.
func (e *Emitter) Emit(event string, payload json.RawMessage) {
	e.mu.Lock()
	regs := slices.Clone(e.handlers[event])
	e.mu.Unlock()

	for _, r := range regs {
		r.h(payload)
	}
}

// EmitJSON marshals v and emits it.
func (e *Emitter) EmitJSON(event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Emit(event, payload)
	return nil
}
