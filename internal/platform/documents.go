package platform

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when updating a document that does not exist.
var ErrNotFound = errors.New("document not found")

// ErrBatchTooLarge is returned by Commit when a batch holds more than MaxBatchWrites writes.
var ErrBatchTooLarge = errors.New("batch exceeds the write limit")

// MaxBatchWrites is the most writes one WriteBatch may commit. Firestore rejects larger batches.
const MaxBatchWrites = 500

// Document is one materialized document. A missing document has Exists == false and nil Data.
type Document struct {
	ID     string
	Path   string
	Exists bool
	Data   map[string]any
}

// Op is a query filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpLess          Op = "<"
	OpGreater       Op = ">"
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents of one collection. Collection may be a nested path such as "posts/p1/comments".
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Limit      int
}

func Collection(path string) Query {
	return Query{Collection: path}
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Direction: dir})
	return q
}

func (q Query) LimitTo(n int) Query {
	q.Limit = n
	return q
}

// Update sets one top-level field. Value may be a plain value or one of the sentinels below.
type Update struct {
	Field string
	Value any
}

// ArrayUnionValue adds values to an array field, skipping ones already present.
type ArrayUnionValue struct {
	Values []any
}

// ArrayRemoveValue removes every occurrence of the values from an array field.
type ArrayRemoveValue struct {
	Values []any
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's write time.
var ServerTimestamp any = serverTimestamp{}

func ArrayUnion(values ...any) ArrayUnionValue {
	return ArrayUnionValue{Values: values}
}

func ArrayRemove(values ...any) ArrayRemoveValue {
	return ArrayRemoveValue{Values: values}
}

func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// DocumentHandler receives every snapshot of a watched document in emission order.
type DocumentHandler func(doc Document, err error)

// QueryHandler receives every full snapshot of a watched query in emission order.
type QueryHandler func(docs []Document, err error)

// Subscription is a live listener. After Stop returns no further handler call happens.
type Subscription interface {
	Stop()
}

// WriteBatch groups at most MaxBatchWrites writes that commit atomically.
type WriteBatch interface {
	Set(path string, data map[string]any)
	Update(path string, updates ...Update)
	Delete(path string)
	Commit(ctx context.Context) error
}

// DocumentStore is the remote document database.
type DocumentStore interface {
	// Get reads one document. A missing document is not an error.
	Get(ctx context.Context, path string) (Document, error)
	GetAll(ctx context.Context, q Query) ([]Document, error)
	WatchDocument(ctx context.Context, path string, fn DocumentHandler) (Subscription, error)
	WatchQuery(ctx context.Context, q Query, fn QueryHandler) (Subscription, error)
	Set(ctx context.Context, path string, data map[string]any, merge bool) error
	// Add creates a document with a generated id in collection and returns the id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, path string, updates ...Update) error
	Delete(ctx context.Context, path string) error
	Batch() WriteBatch
}

// Join builds a slash separated document or collection path.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// SplitPath returns the parent collection path and the last segment of a document path.
func SplitPath(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
