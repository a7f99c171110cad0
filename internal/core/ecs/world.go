package ecs

// World owns the entity pool, the set of registered component stores and a
// deferred destruction queue flushed at the end of each cycle.
type World struct {
	pool         *EntityPool
	stores       []Removable
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		stores:       make([]Removable, 0, 16),
		destroyQueue: make([]EntityID, 0, 16),
	}
}

// Register adds a component store so destroyed entities are cleared from it.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) CreateEntity() EntityID { return w.pool.Create() }

func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }

func (w *World) Len() int { return w.pool.Len() }

// MarkForDestruction queues an entity for end-of-cycle cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// Register creates a store for T and registers it with w.
func Register[T any](w *World) *Store[T] {
	s := NewStore[T]()
	w.Register(s)
	return s
}
