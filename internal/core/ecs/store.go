package ecs

import "sort"

// Removable is implemented by all component stores so the World can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a typed map store for one component type.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, 32)}
}

func (s *Store[T]) Set(id EntityID, c *T) { s.data[id] = c }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int { return len(s.data) }

// IDs returns the entities holding this component ordered by index, so
// callers iterate deterministically regardless of map order.
func (s *Store[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Index() < ids[j].Index() })
	return ids
}

// Each visits every component in entity index order.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.IDs() {
		fn(id, s.data[id])
	}
}
