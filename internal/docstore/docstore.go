// Package docstore is a thin document-database abstraction: named collections,
// nested subcollections, full-replacement writes and live queries that re-deliver
// the complete result set on every change.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no document has the requested ID.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrStopped is returned by SnapshotIterator.Next after Stop or context cancellation.
	ErrStopped = errors.New("docstore: iterator stopped")
)

// Direction is a sort direction for ordered queries.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts asc/ascending and desc/descending in any case.
// Anything else yields the empty direction, which disables ordering.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending
	case "desc", "descending":
		return Descending
	}
	return ""
}

// GeoPoint is the neutral geographic value. Drivers convert it to their native geo type.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Path addresses a collection. Parent is the slash-separated path of the owning
// document ("sightings/abc") or empty for a top-level collection.
type Path struct {
	Parent string
	Name   string
}

// Collection returns the path of a top-level collection.
func Collection(name string) Path {
	return Path{Name: name}
}

// Sub returns the path of the subcollection name under document docID of p.
func (p Path) Sub(docID, name string) Path {
	return Path{Parent: p.DocPath(docID), Name: name}
}

// DocPath returns the full slash-separated path of document id in p.
func (p Path) DocPath(id string) string {
	return p.String() + "/" + id
}

func (p Path) String() string {
	if p.Parent == "" {
		return p.Name
	}
	return p.Parent + "/" + p.Name
}

// Query selects every document of a collection, optionally ordered by one field.
type Query struct {
	Path      Path
	OrderBy   string
	Direction Direction
}

// Ordered reports whether both an order field and a direction were supplied.
// Ordering is never applied from only one of them.
func (q Query) Ordered() bool {
	return q.OrderBy != "" && (q.Direction == Ascending || q.Direction == Descending)
}

// Document is one stored record: the document ID and its field values.
// Field values are normalized by every driver to string, bool, int64, float64,
// time.Time, GeoPoint, []any and map[string]any.
type Document struct {
	ID   string
	Data map[string]any
}

// SnapshotIterator delivers the full current result of a live query. The first
// call to Next returns the initial result; each later call blocks until the
// underlying data changes. A watched single document yields zero or one element.
type SnapshotIterator interface {
	Next() ([]Document, error)
	Stop()
}

// Store is implemented by every document-database driver.
type Store interface {
	// Set writes data as the complete document id, replacing any previous
	// content. An empty id asks the store to assign one; the final id is returned.
	Set(ctx context.Context, p Path, id string, data map[string]any) (string, error)
	Delete(ctx context.Context, p Path, id string) error
	Get(ctx context.Context, p Path, id string) (Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	WatchQuery(ctx context.Context, q Query) (SnapshotIterator, error)
	WatchDocument(ctx context.Context, p Path, id string) (SnapshotIterator, error)
	Close(ctx context.Context) error
}
