package live

import "sync"

type pending[V any] struct {
	value V
	since uint64
}

// Overlay holds optimistic values on top of a watcher. A value set at version v
// is shown until a snapshot with a greater version arrives, then the snapshot wins.
type Overlay[K comparable, V any] struct {
	mu   sync.Mutex
	vals map[K]pending[V]
}

func NewOverlay[K comparable, V any]() *Overlay[K, V] {
	return &Overlay[K, V]{vals: make(map[K]pending[V])}
}

// Set records value for key against the watcher version current at the time of the action
func (o *Overlay[K, V]) Set(key K, value V, since uint64) {
	o.mu.Lock()
	o.vals[key] = pending[V]{value: value, since: since}
	o.mu.Unlock()
}

// Get returns the optimistic value for key while version has not moved past it, else base
func (o *Overlay[K, V]) Get(key K, base V, version uint64) V {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.vals[key]
	if !ok {
		return base
	}
	if version > p.since {
		delete(o.vals, key)
		return base
	}
	return p.value
}

// Len is the number of values still pending
func (o *Overlay[K, V]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.vals)
}
