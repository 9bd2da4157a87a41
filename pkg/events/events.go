// Package events provides asynchronous fan-out of domain events to
// independent subscribers. Dispatch is fire-and-forget: it returns once
// delivery has been handed off, without waiting for subscribers, and callers
// must not assume any ordering between subscriber side effects and their own
// subsequent work.
package events

import (
	"reflect"
	"sync"

	"github.com/cindermc/cinder/pkg/ecs"
)

// PlayerJoinWorld is raised when a player finishes logging in and enters the
// world.
type PlayerJoinWorld struct {
	Entity ecs.Entity
}

// Bus delivers events to subscribers registered per event type.
type Bus struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]func(any)
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type][]func(any))}
}

// Subscribe registers fn for events of type E.
func Subscribe[E any](b *Bus, fn func(E)) {
	var zero E
	t := reflect.TypeOf(zero)
	b.mu.Lock()
	b.subs[t] = append(b.subs[t], func(ev any) {
		fn(ev.(E))
	})
	b.mu.Unlock()
}

// Dispatch hands the event to every subscriber for its type. Each subscriber
// runs on its own goroutine; Dispatch returns without waiting for any of
// them.
func (b *Bus) Dispatch(event any) {
	b.mu.RLock()
	handlers := b.subs[reflect.TypeOf(event)]
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(event)
	}
}
