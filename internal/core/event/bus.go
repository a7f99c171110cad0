package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in cycle N are
// delivered in cycle N+1, when the dispatch system calls SwapBuffers and
// DispatchAll at the start of the cycle.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

type queued struct {
	t  reflect.Type
	ev any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, queued{t: typeOf[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers moves the back buffer to the front and clears the back.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers front-buffer events in emission order.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()
	for _, q := range b.front {
		for _, h := range handlers[q.t] {
			h(q.ev)
		}
	}
	return len(b.front)
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int { return len(b.back) }
