// Package firestoredb adapts Cloud Firestore to platform.DocumentStore.
package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store struct {
	client *firestore.Client
	log    logger.Logger
}

var _ platform.DocumentStore = (*Store)(nil)

func New(client *firestore.Client, log logger.Logger) *Store {
	return &Store{client: client, log: log.WithComponent("Firestore")}
}

func (s *Store) Get(ctx context.Context, path string) (platform.Document, error) {
	ref, err := s.doc(path)
	if err != nil {
		return platform.Document{}, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return missing(path), nil
	}
	if err != nil {
		return platform.Document{}, fmt.Errorf("get %s: %w", path, err)
	}
	return toDocument(snap), nil
}

func (s *Store) GetAll(ctx context.Context, q platform.Query) ([]platform.Document, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return toDocuments(snaps), nil
}

func (s *Store) WatchDocument(ctx context.Context, path string, fn platform.DocumentHandler) (platform.Subscription, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)
	sub := newSubscription(cancel)
	go sub.loop(it.Stop, func() (func(), error) {
		snap, err := it.Next()
		if status.Code(err) == codes.NotFound {
			return func() { fn(missing(path), nil) }, nil
		}
		if err != nil {
			return nil, err
		}
		doc := missing(path)
		if snap.Exists() {
			doc = toDocument(snap)
		}
		return func() { fn(doc, nil) }, nil
	}, func(err error) {
		s.log.Error("document listener failed", "path", path, "error", err)
		fn(platform.Document{}, err)
	})
	return sub, nil
}

func (s *Store) WatchQuery(ctx context.Context, q platform.Query, fn platform.QueryHandler) (platform.Subscription, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	it := fq.Snapshots(ctx)
	sub := newSubscription(cancel)
	go sub.loop(it.Stop, func() (func(), error) {
		snap, err := it.Next()
		if err != nil {
			return nil, err
		}
		snaps, err := snap.Documents.GetAll()
		if err != nil {
			return nil, err
		}
		docs := toDocuments(snaps)
		return func() { fn(docs, nil) }, nil
	}, func(err error) {
		s.log.Error("query listener failed", "collection", q.Collection, "error", err)
		fn(nil, err)
	})
	return sub, nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	if _, err := ref.Set(ctx, encodeMap(data), opts...); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	coll := s.client.Collection(collection)
	if coll == nil {
		return "", fmt.Errorf("invalid collection path %q", collection)
	}
	ref, _, err := coll.Add(ctx, encodeMap(data))
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Update(ctx context.Context, path string, updates ...platform.Update) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, encodeUpdates(updates))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("update %s: %w", path, platform.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Batch() platform.WriteBatch {
	return &batch{store: s, wb: s.client.Batch()}
}

func (s *Store) doc(path string) (*firestore.DocumentRef, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", path)
	}
	return ref, nil
}

func (s *Store) build(q platform.Query) (firestore.Query, error) {
	coll := s.client.Collection(q.Collection)
	if coll == nil {
		return firestore.Query{}, fmt.Errorf("invalid collection path %q", q.Collection)
	}
	fq := coll.Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), encode(f.Value))
	}
	for _, o := range q.Orders {
		dir := firestore.Asc
		if o.Direction == platform.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

type batch struct {
	store  *Store
	wb     *firestore.WriteBatch
	writes int
	err    error
}

func (b *batch) Set(path string, data map[string]any) {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.wb.Set(ref, encodeMap(data))
	b.writes++
}

func (b *batch) Update(path string, updates ...platform.Update) {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.wb.Update(ref, encodeUpdates(updates))
	b.writes++
}

func (b *batch) Delete(path string) {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.wb.Delete(ref)
	b.writes++
}

func (b *batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if b.writes > platform.MaxBatchWrites {
		return fmt.Errorf("commit %d writes: %w", b.writes, platform.ErrBatchTooLarge)
	}
	_, err := b.wb.Commit(ctx)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("commit batch: %w", platform.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// subscription runs one snapshot iterator on its own goroutine.
type subscription struct {
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	once    sync.Once
	done    chan struct{}
}

func newSubscription(cancel context.CancelFunc) *subscription {
	return &subscription{cancel: cancel, done: make(chan struct{})}
}

// loop pulls snapshots until the iterator fails or Stop is called. The iterator is stopped on the loop's
// goroutine because Stop and Next must not run concurrently.
func (s *subscription) loop(stopIter func(), next func() (func(), error), onErr func(error)) {
	defer close(s.done)
	defer stopIter()
	for {
		deliver, err := next()
		if s.isStopped() {
			return
		}
		if err != nil {
			if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
				return
			}
			onErr(err)
			return
		}
		deliver()
	}
}

func (s *subscription) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *subscription) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
	})
	<-s.done
}

func missing(path string) platform.Document {
	_, id := platform.SplitPath(path)
	return platform.Document{ID: id, Path: path}
}

func toDocument(snap *firestore.DocumentSnapshot) platform.Document {
	return platform.Document{
		ID:     snap.Ref.ID,
		Path:   relativePath(snap.Ref.Path),
		Exists: snap.Exists(),
		Data:   snap.Data(),
	}
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []platform.Document {
	docs := make([]platform.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, toDocument(snap))
	}
	return docs
}

// relativePath strips the "projects/<p>/databases/<d>/documents/" prefix.
func relativePath(full string) string {
	const marker = "/documents/"
	if i := strings.Index(full, marker); i >= 0 {
		return full[i+len(marker):]
	}
	return full
}

func encode(v any) any {
	switch val := v.(type) {
	case platform.ArrayUnionValue:
		return firestore.ArrayUnion(val.Values...)
	case platform.ArrayRemoveValue:
		return firestore.ArrayRemove(val.Values...)
	case map[string]any:
		return encodeMap(val)
	}
	if platform.IsServerTimestamp(v) {
		return firestore.ServerTimestamp
	}
	return v
}

func encodeMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = encode(v)
	}
	return out
}

func encodeUpdates(updates []platform.Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		out = append(out, firestore.Update{Path: u.Field, Value: encode(u.Value)})
	}
	return out
}
