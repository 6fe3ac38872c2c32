// Package events provides a synchronous publish/subscribe primitive.
//
// Unlike a buffered broker, Fire delivers to every listener before returning,
// in registration order, so per-session ordering of terminal output and exit
// notifications is preserved end to end.
package events

import "sync"

// Listener receives fired values
type Listener[T any] func(T)

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// Emitter fans a value out to registered listeners
type Emitter[T any] struct {
	mu        sync.Mutex
	listeners []entry[T]
	seq       uint64
	disposed  bool
}

// NewEmitter creates an emitter with no listeners
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns a handle that removes it.
// The handle is safe to call more than once.
func (e *Emitter[T]) Subscribe(fn Listener[T]) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed || fn == nil {
		return func() {}
	}

	e.seq++
	id := e.seq
	e.listeners = append(e.listeners, entry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Fire invokes every current listener synchronously.
// Listeners may subscribe or unsubscribe from inside the callback.
func (e *Emitter[T]) Fire(value T) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	snapshot := make([]entry[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(value)
	}
}

// Len returns the number of registered listeners
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Dispose drops every listener; later Fire and Subscribe calls are no-ops
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.listeners = nil
}
