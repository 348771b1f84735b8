// Package mongodb adapts a MongoDB replica set to platform.DocumentStore. Live listeners use change
// streams and re-run the query on every change, so each delivery is a full snapshot.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	fieldID     = "_id"
	fieldParent = "_parent"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    logger.Logger
	now    func() time.Time
}

var _ platform.DocumentStore = (*Store)(nil)

func New(client *mongo.Client, database string, log logger.Logger) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
		log:    log.WithComponent("MongoStore"),
		now:    time.Now,
	}
}

// location maps a slash separated path onto a collection and a parent document path.
// "posts/p1/comments/c1" lives in collection "posts_comments" with _parent "posts/p1".
type location struct {
	collection string
	name       string
	parent     string
	id         string
}

func locateCollection(path string) (location, error) {
	parts := strings.Split(path, "/")
	if path == "" || len(parts)%2 != 1 {
		return location{}, fmt.Errorf("invalid collection path %q", path)
	}
	names := make([]string, 0, len(parts)/2+1)
	for i := 0; i < len(parts); i += 2 {
		names = append(names, parts[i])
	}
	return location{
		collection: strings.Join(names, "_"),
		name:       parts[len(parts)-1],
		parent:     strings.Join(parts[:len(parts)-1], "/"),
	}, nil
}

func locateDocument(path string) (location, error) {
	coll, id := platform.SplitPath(path)
	loc, err := locateCollection(coll)
	if err != nil || id == "" {
		return location{}, fmt.Errorf("invalid document path %q", path)
	}
	loc.id = id
	return loc, nil
}

func (l location) filter() bson.M {
	f := bson.M{fieldID: l.id}
	if l.parent != "" {
		f[fieldParent] = l.parent
	}
	return f
}

func (l location) docPath(id string) string {
	if l.parent == "" {
		return platform.Join(l.name, id)
	}
	return platform.Join(l.parent, l.name, id)
}

func (s *Store) Get(ctx context.Context, path string) (platform.Document, error) {
	loc, err := locateDocument(path)
	if err != nil {
		return platform.Document{}, err
	}
	var raw bson.M
	err = s.db.Collection(loc.collection).FindOne(ctx, loc.filter()).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return platform.Document{ID: loc.id, Path: path}, nil
	}
	if err != nil {
		return platform.Document{}, fmt.Errorf("get %s: %w", path, err)
	}
	return toDocument(path, loc.id, raw), nil
}

func (s *Store) GetAll(ctx context.Context, q platform.Query) ([]platform.Document, error) {
	loc, err := locateCollection(q.Collection)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, loc, q)
}

func (s *Store) find(ctx context.Context, loc location, q platform.Query) ([]platform.Document, error) {
	opts := options.Find()
	sort := bson.D{}
	for _, o := range q.Orders {
		dir := 1
		if o.Direction == platform.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: fieldID, Value: 1})
	opts.SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(loc.collection).Find(ctx, queryFilter(loc, q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	docs := make([]platform.Document, 0, len(raws))
	for _, raw := range raws {
		id := fmt.Sprint(raw[fieldID])
		docs = append(docs, toDocument(loc.docPath(id), id, raw))
	}
	return docs, nil
}

func queryFilter(loc location, filters []platform.Filter) bson.M {
	conds := bson.A{}
	if loc.parent != "" {
		conds = append(conds, bson.M{fieldParent: loc.parent})
	}
	for _, f := range filters {
		switch f.Op {
		case platform.OpEqual, platform.OpArrayContains:
			conds = append(conds, bson.M{f.Field: f.Value})
		case platform.OpGreater:
			conds = append(conds, bson.M{f.Field: bson.M{"$gt": f.Value}})
		case platform.OpLess:
			conds = append(conds, bson.M{f.Field: bson.M{"$lt": f.Value}})
		}
	}
	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conds}
}

func (s *Store) WatchDocument(ctx context.Context, path string, fn platform.DocumentHandler) (platform.Subscription, error) {
	loc, err := locateDocument(path)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": loc.id}}}}
	return s.watch(ctx, loc.collection, pipeline, func(ctx context.Context) (any, error) {
		return s.Get(ctx, path)
	}, func(v any, err error) {
		if err != nil {
			fn(platform.Document{}, err)
			return
		}
		fn(v.(platform.Document), nil)
	})
}

func (s *Store) WatchQuery(ctx context.Context, q platform.Query, fn platform.QueryHandler) (platform.Subscription, error) {
	loc, err := locateCollection(q.Collection)
	if err != nil {
		return nil, err
	}
	return s.watch(ctx, loc.collection, mongo.Pipeline{}, func(ctx context.Context) (any, error) {
		return s.find(ctx, loc, q)
	}, func(v any, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(v.([]platform.Document), nil)
	})
}

// watch opens the change stream before the first read so no change between the two is lost.
func (s *Store) watch(ctx context.Context, collection string, pipeline mongo.Pipeline,
	read func(context.Context) (any, error), deliver func(any, error)) (platform.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.db.Collection(collection).Watch(ctx, pipeline)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		var last any
		emit := func() bool {
			v, err := read(ctx)
			if sub.isStopped() {
				return false
			}
			if err != nil {
				s.log.Error("listener read failed", "collection", collection, "error", err)
				deliver(nil, err)
				return false
			}
			if last != nil && reflect.DeepEqual(last, v) {
				return true
			}
			last = v
			deliver(v, nil)
			return true
		}

		if !emit() {
			return
		}
		for stream.Next(ctx) {
			if !emit() {
				return
			}
		}
		if err := stream.Err(); err != nil && !sub.isStopped() && !errors.Is(err, context.Canceled) {
			s.log.Error("change stream failed", "collection", collection, "error", err)
			deliver(nil, err)
		}
	}()
	return sub, nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	loc, err := locateDocument(path)
	if err != nil {
		return err
	}
	if merge {
		update := s.updateDoc(setUpdates(data))
		_, err = s.db.Collection(loc.collection).UpdateOne(ctx, loc.filter(), update, options.Update().SetUpsert(true))
	} else {
		_, err = s.db.Collection(loc.collection).ReplaceOne(ctx, loc.filter(), s.fullDoc(loc, data), options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	loc, err := locateCollection(collection)
	if err != nil {
		return "", err
	}
	loc.id = primitive.NewObjectID().Hex()
	if _, err := s.db.Collection(loc.collection).InsertOne(ctx, s.fullDoc(loc, data)); err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return loc.id, nil
}

func (s *Store) Update(ctx context.Context, path string, updates ...platform.Update) error {
	loc, err := locateDocument(path)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(loc.collection).UpdateOne(ctx, loc.filter(), s.updateDoc(updates))
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", path, platform.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	loc, err := locateDocument(path)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(loc.collection).DeleteOne(ctx, loc.filter()); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Batch() platform.WriteBatch {
	return &batch{store: s}
}

// fullDoc resolves sentinels for a whole-document write.
func (s *Store) fullDoc(loc location, data map[string]any) bson.M {
	doc := bson.M{fieldID: loc.id}
	if loc.parent != "" {
		doc[fieldParent] = loc.parent
	}
	for k, v := range data {
		switch val := v.(type) {
		case platform.ArrayUnionValue:
			doc[k] = val.Values
		case platform.ArrayRemoveValue:
			doc[k] = bson.A{}
		default:
			if platform.IsServerTimestamp(v) {
				doc[k] = s.now()
			} else {
				doc[k] = v
			}
		}
	}
	return doc
}

// updateDoc translates field updates into MongoDB update operators.
func (s *Store) updateDoc(updates []platform.Update) bson.M {
	set := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}
	currentDate := bson.M{}
	for _, u := range updates {
		switch val := u.Value.(type) {
		case platform.ArrayUnionValue:
			addToSet[u.Field] = bson.M{"$each": val.Values}
		case platform.ArrayRemoveValue:
			pull[u.Field] = bson.M{"$in": val.Values}
		default:
			if platform.IsServerTimestamp(u.Value) {
				currentDate[u.Field] = true
			} else {
				set[u.Field] = u.Value
			}
		}
	}
	out := bson.M{}
	for op, fields := range map[string]bson.M{"$set": set, "$addToSet": addToSet, "$pull": pull, "$currentDate": currentDate} {
		if len(fields) > 0 {
			out[op] = fields
		}
	}
	return out
}

func setUpdates(data map[string]any) []platform.Update {
	updates := make([]platform.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, platform.Update{Field: k, Value: v})
	}
	return updates
}

type batchOp struct {
	path    string
	data    map[string]any
	updates []platform.Update
	delete  bool
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (b *batch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, batchOp{path: path, data: data})
}

func (b *batch) Update(path string, updates ...platform.Update) {
	b.ops = append(b.ops, batchOp{path: path, updates: updates})
}

func (b *batch) Delete(path string) {
	b.ops = append(b.ops, batchOp{path: path, delete: true})
}

// Commit applies every write inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) > platform.MaxBatchWrites {
		return fmt.Errorf("commit %d writes: %w", len(b.ops), platform.ErrBatchTooLarge)
	}
	sess, err := b.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range b.ops {
			var opErr error
			switch {
			case op.delete:
				opErr = b.store.Delete(sc, op.path)
			case op.updates != nil:
				opErr = b.store.Update(sc, op.path, op.updates...)
			default:
				opErr = b.store.Set(sc, op.path, op.data, false)
			}
			if opErr != nil {
				return nil, opErr
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type subscription struct {
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	once    sync.Once
	done    chan struct{}
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

func toDocument(path, id string, raw bson.M) platform.Document {
	data := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == fieldID || k == fieldParent {
			continue
		}
		data[k] = normalize(v)
	}
	return platform.Document{ID: id, Path: path, Exists: true, Data: data}
}

// normalize converts driver types to the plain shapes used by document decoders.
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case primitive.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case primitive.D:
		return normalizeMap(val.Map())
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}
