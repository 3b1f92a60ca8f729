// Package repository turns stored documents into typed records. Every read is a
// live subscription that re-delivers the full result on each change.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/logger"
)

// Mapper converts between a record and its stored document. FromDocument must not
// panic; it reports false for malformed input.
type Mapper[T any] interface {
	FromDocument(doc docstore.Document) (T, bool)
	ToDocument(item T) map[string]any
}

// Order requests ordering by Field. It takes effect only when both the field and
// a valid direction are set.
type Order struct {
	Field     string
	Direction docstore.Direction
}

// Unordered leaves the result in the store's natural order.
var Unordered = Order{}

// Repository is the generic access layer over one top-level collection.
type Repository[T any] struct {
	store  docstore.Store
	path   docstore.Path
	mapper Mapper[T]
	log    *logrus.Entry
}

func New[T any](store docstore.Store, collection string, mapper Mapper[T]) *Repository[T] {
	return &Repository[T]{
		store:  store,
		path:   docstore.Collection(collection),
		mapper: mapper,
		log:    logger.For("repository").WithField("collection", collection),
	}
}

// Collection returns the name of the backing collection.
func (r *Repository[T]) Collection() string {
	return r.path.Name
}

// Post writes item as a new document. An empty id lets the store assign one.
// The final document ID is returned.
func (r *Repository[T]) Post(ctx context.Context, item T, id string) (string, error) {
	return r.write(ctx, r.path, id, item)
}

// Update replaces the whole document id with item.
func (r *Repository[T]) Update(ctx context.Context, id string, item T) error {
	if id == "" {
		return errors.New("update: empty document id")
	}
	_, err := r.write(ctx, r.path, id, item)
	return err
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.path, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.path.Name, id, err)
	}
	return nil
}

// GetAll streams every well-formed document of the collection.
func (r *Repository[T]) GetAll(ctx context.Context, order Order) (*Subscription[[]T], error) {
	return r.watchList(ctx, r.path, order)
}

// Get streams one document. nil is delivered while the document is missing or malformed.
func (r *Repository[T]) Get(ctx context.Context, id string) (*Subscription[*T], error) {
	it, err := r.store.WatchDocument(ctx, r.path, id)
	if err != nil {
		return nil, fmt.Errorf("watch %s/%s: %w", r.path.Name, id, err)
	}
	return subscribe(ctx, it, r.path.Name, r.log, func(docs []docstore.Document) *T {
		for _, doc := range docs {
			if item, ok := r.fromDocument(doc); ok {
				return &item
			}
		}
		return nil
	}), nil
}

// GetSubCollection streams the subcollection name of document id.
func (r *Repository[T]) GetSubCollection(ctx context.Context, id, name string, order Order) (*Subscription[[]T], error) {
	return r.watchList(ctx, r.path.Sub(id, name), order)
}

// PostToSubCollection writes item into the subcollection name of document parentID.
func (r *Repository[T]) PostToSubCollection(ctx context.Context, parentID, name string, item T, id string) (string, error) {
	return r.write(ctx, r.path.Sub(parentID, name), id, item)
}

func (r *Repository[T]) UpdateInSubCollection(ctx context.Context, parentID, name, id string, item T) error {
	if id == "" {
		return errors.New("update: empty document id")
	}
	_, err := r.write(ctx, r.path.Sub(parentID, name), id, item)
	return err
}

func (r *Repository[T]) DeleteFromSubCollection(ctx context.Context, parentID, name, id string) error {
	p := r.path.Sub(parentID, name)
	if err := r.store.Delete(ctx, p, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", p, id, err)
	}
	return nil
}

// Find reads the collection once without subscribing.
func (r *Repository[T]) Find(ctx context.Context, order Order) ([]T, error) {
	docs, err := r.store.Find(ctx, r.query(r.path, order))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.path.Name, err)
	}
	return r.mapAll(docs), nil
}

// FindInSubCollection reads the subcollection name of document parentID once.
func (r *Repository[T]) FindInSubCollection(ctx context.Context, parentID, name string, order Order) ([]T, error) {
	p := r.path.Sub(parentID, name)
	docs, err := r.store.Find(ctx, r.query(p, order))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", p, err)
	}
	return r.mapAll(docs), nil
}

// FindOne reads one document once. docstore.ErrNotFound is returned for missing
// or malformed documents.
func (r *Repository[T]) FindOne(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.store.Get(ctx, r.path, id)
	if err != nil {
		return zero, fmt.Errorf("get %s/%s: %w", r.path.Name, id, err)
	}
	item, ok := r.fromDocument(doc)
	if !ok {
		return zero, fmt.Errorf("get %s/%s: %w", r.path.Name, id, docstore.ErrNotFound)
	}
	return item, nil
}

func (r *Repository[T]) write(ctx context.Context, p docstore.Path, id string, item T) (string, error) {
	newID, err := r.store.Set(ctx, p, id, r.mapper.ToDocument(item))
	if err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return newID, nil
}

func (r *Repository[T]) query(p docstore.Path, order Order) docstore.Query {
	q := docstore.Query{Path: p, OrderBy: order.Field, Direction: order.Direction}
	if !q.Ordered() {
		q.OrderBy, q.Direction = "", ""
	}
	return q
}

func (r *Repository[T]) watchList(ctx context.Context, p docstore.Path, order Order) (*Subscription[[]T], error) {
	it, err := r.store.WatchQuery(ctx, r.query(p, order))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", p, err)
	}
	return subscribe(ctx, it, p.Name, r.log, r.mapAll), nil
}

func (r *Repository[T]) mapAll(docs []docstore.Document) []T {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		if item, ok := r.fromDocument(doc); ok {
			items = append(items, item)
		}
	}
	return items
}

// fromDocument drops malformed documents and recovers from mapper panics.
func (r *Repository[T]) fromDocument(doc docstore.Document) (item T, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("id", doc.ID).Debugf("mapper panicked: %v", rec)
			ok = false
		}
	}()
	item, ok = r.mapper.FromDocument(doc)
	if !ok {
		r.log.WithField("id", doc.ID).Debug("skipping malformed document")
	}
	return item, ok
}
