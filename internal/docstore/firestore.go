package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore maps paths onto native Firestore collections and subcollections.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) collection(p Path) *firestore.CollectionRef {
	if p.Parent == "" {
		return s.client.Collection(p.Name)
	}
	return s.client.Doc(p.Parent).Collection(p.Name)
}

func (s *FirestoreStore) Set(ctx context.Context, p Path, id string, data map[string]any) (string, error) {
	col := s.collection(p)
	var ref *firestore.DocumentRef
	if id == "" {
		ref = col.NewDoc()
	} else {
		ref = col.Doc(id)
	}
	if _, err := ref.Set(ctx, toFirestore(data)); err != nil {
		return "", fmt.Errorf("set %s/%s: %w", p, ref.ID, err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, p Path, id string) error {
	if _, err := s.collection(p).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", p, id, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, p Path, id string) (Document, error) {
	snap, err := s.collection(p).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", p, id, err)
	}
	return fromSnapshot(snap), nil
}

func (s *FirestoreStore) query(q Query) firestore.Query {
	fq := s.collection(q.Path).Query
	if q.Ordered() {
		dir := firestore.Asc
		if q.Direction == Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq
}

func (s *FirestoreStore) Find(ctx context.Context, q Query) ([]Document, error) {
	snaps, err := s.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Path, err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromSnapshot(snap))
	}
	return docs, nil
}

func (s *FirestoreStore) WatchQuery(ctx context.Context, q Query) (SnapshotIterator, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.query(q).Snapshots(ctx)
	return &firestoreWatch{
		ctx:    ctx,
		cancel: cancel,
		next: func() ([]Document, error) {
			qs, err := it.Next()
			if err != nil {
				return nil, err
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				return nil, err
			}
			docs := make([]Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, fromSnapshot(snap))
			}
			return docs, nil
		},
		stop: it.Stop,
	}, nil
}

func (s *FirestoreStore) WatchDocument(ctx context.Context, p Path, id string) (SnapshotIterator, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.collection(p).Doc(id).Snapshots(ctx)
	return &firestoreWatch{
		ctx:    ctx,
		cancel: cancel,
		next: func() ([]Document, error) {
			snap, err := it.Next()
			if err != nil {
				return nil, err
			}
			if !snap.Exists() {
				return []Document{}, nil
			}
			return []Document{fromSnapshot(snap)}, nil
		},
		stop: it.Stop,
	}, nil
}

func (s *FirestoreStore) Close(context.Context) error {
	return s.client.Close()
}

// firestoreWatch serializes Next and Stop, which the Firestore iterators do not
// allow to run concurrently. Cancelling the context unblocks a pending Next first.
type firestoreWatch struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	next   func() ([]Document, error)
	stop   func()
	once   sync.Once
}

func (w *firestoreWatch) Next() ([]Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return nil, ErrStopped
	}
	docs, err := w.next()
	if err != nil {
		if w.ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
			return nil, ErrStopped
		}
		return nil, err
	}
	return docs, nil
}

func (w *firestoreWatch) Stop() {
	w.once.Do(func() {
		w.cancel()
		w.mu.Lock()
		defer w.mu.Unlock()
		w.stop()
	})
}

func fromSnapshot(snap *firestore.DocumentSnapshot) Document {
	data := snap.Data()
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = fromFirestoreValue(v)
	}
	return Document{ID: snap.Ref.ID, Data: out}
}

func fromFirestoreValue(v any) any {
	switch x := v.(type) {
	case *latlng.LatLng:
		if x == nil {
			return nil
		}
		return GeoPoint{Latitude: x.GetLatitude(), Longitude: x.GetLongitude()}
	case time.Time:
		return x.UTC()
	case *firestore.DocumentRef:
		if x == nil {
			return nil
		}
		return x.Path
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromFirestoreValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = fromFirestoreValue(item)
		}
		return out
	}
	return v
}

func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	switch x := v.(type) {
	case GeoPoint:
		return &latlng.LatLng{Latitude: x.Latitude, Longitude: x.Longitude}
	case *GeoPoint:
		if x == nil {
			return nil
		}
		return &latlng.LatLng{Latitude: x.Latitude, Longitude: x.Longitude}
	case map[string]any:
		return toFirestore(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = toFirestoreValue(item)
		}
		return out
	}
	return v
}
