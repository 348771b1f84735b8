// Package live keeps local state in step with store snapshots.
//
// Every watcher replaces its whole value on each snapshot, in the order the
// store emits them, and counts snapshots in a version that only grows.
// Stop is deterministic: once it returns, the change callback never fires again.
package live

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// Stopper is anything a Group can tear down
type Stopper interface {
	Stop()
}

// Collection mirrors the result set of a query
type Collection[T any] struct {
	mu      sync.RWMutex
	items   []T
	err     error
	version uint64
	stopped atomic.Bool
	sub     platform.Subscription
}

// WatchCollection subscribes to q and decodes every document of each snapshot.
// onChange runs on the store's delivery goroutine after the new items are visible; it may be nil.
func WatchCollection[T any](ctx context.Context, store platform.DocumentStore, q platform.Query, decode func(platform.Document) T, onChange func()) (*Collection[T], error) {
	c := &Collection[T]{}
	sub, err := store.WatchQuery(ctx, q, func(docs []platform.Document, err error) {
		if c.stopped.Load() {
			return
		}
		c.mu.Lock()
		if err != nil {
			c.err = err
		} else {
			items := make([]T, 0, len(docs))
			for _, doc := range docs {
				items = append(items, decode(doc))
			}
			c.items, c.err = items, nil
		}
		c.version++
		c.mu.Unlock()
		if onChange != nil {
			onChange()
		}
	})
	if err != nil {
		return nil, err
	}
	c.sub = sub
	return c, nil
}

// Items returns a copy of the latest snapshot
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Version is the number of snapshots received so far. Zero means still loading.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Err is the error of the latest snapshot, if it failed
func (c *Collection[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Collection[T]) Stop() {
	c.stopped.Store(true)
	c.sub.Stop()
}

// Document mirrors a single document
type Document[T any] struct {
	mu      sync.RWMutex
	value   T
	exists  bool
	err     error
	version uint64
	stopped atomic.Bool
	sub     platform.Subscription
}

// WatchDocument subscribes to the document at path. Missing documents decode like present ones
// so callers always get a usable value.
func WatchDocument[T any](ctx context.Context, store platform.DocumentStore, path string, decode func(platform.Document) T, onChange func()) (*Document[T], error) {
	d := &Document[T]{}
	sub, err := store.WatchDocument(ctx, path, func(doc platform.Document, err error) {
		if d.stopped.Load() {
			return
		}
		d.mu.Lock()
		if err != nil {
			d.err = err
		} else {
			d.value, d.exists, d.err = decode(doc), doc.Exists, nil
		}
		d.version++
		d.mu.Unlock()
		if onChange != nil {
			onChange()
		}
	})
	if err != nil {
		return nil, err
	}
	d.sub = sub
	return d, nil
}

// Value returns the latest decoded value and whether the document exists
func (d *Document[T]) Value() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.exists
}

func (d *Document[T]) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func (d *Document[T]) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

func (d *Document[T]) Stop() {
	d.stopped.Store(true)
	d.sub.Stop()
}
