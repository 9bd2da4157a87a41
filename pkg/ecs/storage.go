// Package ecs provides concurrent entity/component storage. An entity is a
// bare integer identifier; its meaning is defined entirely by the components
// attached to it. Each component type lives in its own independently locked
// map, so readers of one component type are never blocked by writers of an
// unrelated type.
package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// Entity is a world entity identifier.
type Entity int32

// NotFoundError reports a component that is not attached to an entity.
// Absence is a valid state and is always reported explicitly, never papered
// over with a zero value.
type NotFoundError struct {
	Entity    Entity
	Component string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("component %s not found on entity %d", e.Component, e.Entity)
}

// pool is the storage for a single component type.
type pool struct {
	mu    sync.RWMutex
	items map[Entity]any
}

// Storage is a heterogeneous component store keyed by entity id.
//
// Component types are registered lazily on first insert. The type-to-pool
// index uses a sync.Map so the lookup hot path is lock-free; per-pool RWMutex
// guards the actual component maps.
type Storage struct {
	pools sync.Map // reflect.Type -> *pool
}

// NewStorage creates an empty component store.
func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) pool(t reflect.Type) *pool {
	if p, ok := s.pools.Load(t); ok {
		return p.(*pool)
	}
	p, _ := s.pools.LoadOrStore(t, &pool{items: make(map[Entity]any)})
	return p.(*pool)
}

// Insert attaches a component value to the entity, replacing any existing
// component of the same type. It returns the storage so inserts for the same
// entity can be chained; insert order across component types is irrelevant.
func (s *Storage) Insert(entity Entity, component any) *Storage {
	p := s.pool(reflect.TypeOf(component))
	p.mu.Lock()
	p.items[entity] = component
	p.mu.Unlock()
	return s
}

// Get returns the component of type T attached to the entity, or a
// *NotFoundError if no such component is attached.
func Get[T any](s *Storage, entity Entity) (T, error) {
	var zero T
	t := reflect.TypeOf(zero)
	p, ok := s.pools.Load(t)
	if !ok {
		return zero, &NotFoundError{Entity: entity, Component: t.String()}
	}
	pl := p.(*pool)
	pl.mu.RLock()
	v, ok := pl.items[entity]
	pl.mu.RUnlock()
	if !ok {
		return zero, &NotFoundError{Entity: entity, Component: t.String()}
	}
	return v.(T), nil
}

// Has reports whether a component of type T is attached to the entity.
func Has[T any](s *Storage, entity Entity) bool {
	_, err := Get[T](s, entity)
	return err == nil
}

// Remove detaches the component of type T from the entity, if present.
func Remove[T any](s *Storage, entity Entity) {
	var zero T
	p, ok := s.pools.Load(reflect.TypeOf(zero))
	if !ok {
		return
	}
	pl := p.(*pool)
	pl.mu.Lock()
	delete(pl.items, entity)
	pl.mu.Unlock()
}

// Despawn removes every component attached to the entity.
func (s *Storage) Despawn(entity Entity) {
	s.pools.Range(func(_, v any) bool {
		p := v.(*pool)
		p.mu.Lock()
		delete(p.items, entity)
		p.mu.Unlock()
		return true
	})
}
