// Package memory implements the platform capabilities in process. It backs local development and tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// WriteOp names a write passed to a fault hook.
type WriteOp string

const (
	OpSet    WriteOp = "set"
	OpAdd    WriteOp = "add"
	OpUpdate WriteOp = "update"
	OpDelete WriteOp = "delete"
	OpCommit WriteOp = "commit"
)

// FaultFunc may fail a write before it is applied.
type FaultFunc func(op WriteOp, path string) error

// Store is an in-process DocumentStore with live listeners.
type Store struct {
	mu        sync.RWMutex
	docs      map[string]map[string]any
	listeners map[int]*listener
	nextID    int
	clock     clockwork.Clock
	fault     FaultFunc
}

var _ platform.DocumentStore = (*Store)(nil)

func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		docs:      make(map[string]map[string]any),
		listeners: make(map[int]*listener),
		clock:     clock,
	}
}

// InjectFault installs a hook consulted before every write. Pass nil to remove it.
func (s *Store) InjectFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

func (s *Store) Get(_ context.Context, path string) (platform.Document, error) {
	if err := checkDocPath(path); err != nil {
		return platform.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document(path), nil
}

func (s *Store) GetAll(_ context.Context, q platform.Query) ([]platform.Document, error) {
	if err := checkCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(q), nil
}

func (s *Store) WatchDocument(ctx context.Context, path string, fn platform.DocumentHandler) (platform.Subscription, error) {
	if err := checkDocPath(path); err != nil {
		return nil, err
	}
	return s.watch(ctx, func() any { return s.document(path) }, func(v any) {
		fn(v.(platform.Document), nil)
	}), nil
}

func (s *Store) WatchQuery(ctx context.Context, q platform.Query, fn platform.QueryHandler) (platform.Subscription, error) {
	if err := checkCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	return s.watch(ctx, func() any { return s.query(q) }, func(v any) {
		fn(v.([]platform.Document), nil)
	}), nil
}

func (s *Store) Set(_ context.Context, path string, data map[string]any, merge bool) error {
	if err := checkDocPath(path); err != nil {
		return err
	}
	return s.write(OpSet, path, func(now time.Time) error {
		s.applySet(path, data, merge, now)
		return nil
	})
}

func (s *Store) Add(_ context.Context, collection string, data map[string]any) (string, error) {
	if err := checkCollectionPath(collection); err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	path := platform.Join(collection, id)
	err := s.write(OpAdd, path, func(now time.Time) error {
		s.applySet(path, data, false, now)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(_ context.Context, path string, updates ...platform.Update) error {
	if err := checkDocPath(path); err != nil {
		return err
	}
	return s.write(OpUpdate, path, func(now time.Time) error {
		return s.applyUpdate(path, updates, now)
	})
}

func (s *Store) Delete(_ context.Context, path string) error {
	if err := checkDocPath(path); err != nil {
		return err
	}
	return s.write(OpDelete, path, func(time.Time) error {
		delete(s.docs, path)
		return nil
	})
}

func (s *Store) Batch() platform.WriteBatch {
	return &batch{store: s}
}

// write runs apply under the lock and fans the result out to listeners.
func (s *Store) write(op WriteOp, path string, apply func(now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		if err := s.fault(op, path); err != nil {
			return err
		}
	}
	if err := apply(s.clock.Now()); err != nil {
		return err
	}
	s.publish()
	return nil
}

// publish must be called with s.mu held.
func (s *Store) publish() {
	for _, l := range s.listeners {
		l.offer(l.eval())
	}
}

func (s *Store) watch(ctx context.Context, eval func() any, deliver func(any)) platform.Subscription {
	l := newListener(eval, deliver)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	l.offer(eval())
	s.mu.Unlock()

	l.onStop = func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
	stop := context.AfterFunc(ctx, l.Stop)
	l.mu.Lock()
	l.stopCtx = stop
	l.mu.Unlock()

	go l.run()
	return l
}

func (s *Store) document(path string) platform.Document {
	_, id := platform.SplitPath(path)
	data, ok := s.docs[path]
	if !ok {
		return platform.Document{ID: id, Path: path}
	}
	return platform.Document{ID: id, Path: path, Exists: true, Data: copyMap(data)}
}

func (s *Store) query(q platform.Query) []platform.Document {
	prefix := q.Collection + "/"
	var out []platform.Document
	for path, data := range s.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}
		if !matches(data, q.Filters) {
			continue
		}
		_, id := platform.SplitPath(path)
		out = append(out, platform.Document{ID: id, Path: path, Exists: true, Data: copyMap(data)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.Orders {
			c := compare(out[i].Data[o.Field], out[j].Data[o.Field])
			if c == 0 {
				continue
			}
			if o.Direction == platform.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (s *Store) applySet(path string, data map[string]any, merge bool, now time.Time) {
	current, ok := s.docs[path]
	if !merge || !ok {
		current = make(map[string]any, len(data))
	}
	for k, v := range data {
		current[k] = resolve(current[k], v, now)
	}
	s.docs[path] = current
}

func (s *Store) applyUpdate(path string, updates []platform.Update, now time.Time) error {
	current, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("update %s: %w", path, platform.ErrNotFound)
	}
	for _, u := range updates {
		current[u.Field] = resolve(current[u.Field], u.Value, now)
	}
	return nil
}

// resolve applies a written value, expanding sentinels against the existing value.
func resolve(existing, v any, now time.Time) any {
	switch val := v.(type) {
	case platform.ArrayUnionValue:
		arr, _ := existing.([]any)
		out := append([]any(nil), arr...)
		for _, add := range val.Values {
			add = normalize(add)
			if !containsValue(out, add) {
				out = append(out, add)
			}
		}
		return out
	case platform.ArrayRemoveValue:
		arr, _ := existing.([]any)
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			drop := false
			for _, rm := range val.Values {
				if reflect.DeepEqual(item, normalize(rm)) {
					drop = true
					break
				}
			}
			if !drop {
				out = append(out, item)
			}
		}
		return out
	}
	if platform.IsServerTimestamp(v) {
		return now
	}
	return normalize(v)
}

type batchOp struct {
	op      WriteOp
	path    string
	data    map[string]any
	updates []platform.Update
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (b *batch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, batchOp{op: OpSet, path: path, data: data})
}

func (b *batch) Update(path string, updates ...platform.Update) {
	b.ops = append(b.ops, batchOp{op: OpUpdate, path: path, updates: updates})
}

func (b *batch) Delete(path string) {
	b.ops = append(b.ops, batchOp{op: OpDelete, path: path})
}

func (b *batch) Commit(_ context.Context) error {
	if len(b.ops) > platform.MaxBatchWrites {
		return fmt.Errorf("commit %d writes: %w", len(b.ops), platform.ErrBatchTooLarge)
	}
	for _, op := range b.ops {
		if err := checkDocPath(op.path); err != nil {
			return err
		}
	}
	s := b.store
	return s.write(OpCommit, "", func(now time.Time) error {
		for _, op := range b.ops {
			if op.op != OpUpdate {
				continue
			}
			if _, ok := s.docs[op.path]; !ok {
				return fmt.Errorf("batch update %s: %w", op.path, platform.ErrNotFound)
			}
		}
		for _, op := range b.ops {
			switch op.op {
			case OpSet:
				s.applySet(op.path, op.data, false, now)
			case OpUpdate:
				if err := s.applyUpdate(op.path, op.updates, now); err != nil {
					return err
				}
			case OpDelete:
				delete(s.docs, op.path)
			}
		}
		return nil
	})
}

func checkDocPath(path string) error {
	parts := strings.Split(path, "/")
	if path == "" || len(parts)%2 != 0 {
		return fmt.Errorf("invalid document path %q", path)
	}
	return nil
}

func checkCollectionPath(path string) error {
	parts := strings.Split(path, "/")
	if path == "" || len(parts)%2 != 1 {
		return fmt.Errorf("invalid collection path %q", path)
	}
	return nil
}
