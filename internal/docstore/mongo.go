package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// parentField links a flattened subcollection document to its owning document path.
// Top-level documents carry an empty parent.
const parentField = "_parent"

// MongoStore stores every collection, including subcollections, as a MongoDB
// collection named after the last path segment. Live queries require a replica set
// because they are driven by change streams.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll(p Path) *mongo.Collection {
	return s.db.Collection(p.Name)
}

func parentFilter(p Path) bson.M {
	return bson.M{parentField: p.Parent}
}

func (s *MongoStore) Set(ctx context.Context, p Path, id string, data map[string]any) (string, error) {
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	doc := toBSON(data)
	doc["_id"] = id
	doc[parentField] = p.Parent

	filter := bson.M{"_id": id, parentField: p.Parent}
	_, err := s.coll(p).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("set %s/%s: %w", p, id, err)
	}
	return id, nil
}

func (s *MongoStore) Delete(ctx context.Context, p Path, id string) error {
	_, err := s.coll(p).DeleteOne(ctx, bson.M{"_id": id, parentField: p.Parent})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", p, id, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, p Path, id string) (Document, error) {
	var raw bson.M
	err := s.coll(p).FindOne(ctx, bson.M{"_id": id, parentField: p.Parent}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", p, id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]Document, error) {
	opts := options.Find()
	if q.Ordered() {
		order := 1
		if q.Direction == Descending {
			order = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: order}, {Key: "_id", Value: 1}})
	}

	cursor, err := s.coll(q.Path).Find(ctx, parentFilter(q.Path), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Path, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Path, err)
	}
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}

func (s *MongoStore) WatchQuery(ctx context.Context, q Query) (SnapshotIterator, error) {
	// Any change in the backing collection re-runs the query; documents of other
	// parents only cost a redundant read.
	return s.watch(ctx, q.Path, mongo.Pipeline{}, func(ctx context.Context) ([]Document, error) {
		return s.Find(ctx, q)
	})
}

func (s *MongoStore) WatchDocument(ctx context.Context, p Path, id string) (SnapshotIterator, error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": id}}}}
	return s.watch(ctx, p, pipeline, func(ctx context.Context) ([]Document, error) {
		doc, err := s.Get(ctx, p, id)
		if errors.Is(err, ErrNotFound) {
			return []Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	})
}

func (s *MongoStore) watch(ctx context.Context, p Path, pipeline mongo.Pipeline, load func(context.Context) ([]Document, error)) (SnapshotIterator, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.coll(p).Watch(ctx, pipeline)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", p, err)
	}
	return &mongoWatch{ctx: ctx, cancel: cancel, stream: stream, load: load}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type mongoWatch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	load    func(context.Context) ([]Document, error)
	mu      sync.Mutex // held while the stream is in use
	stream  *mongo.ChangeStream
	started bool
	once    sync.Once
}

func (w *mongoWatch) Next() ([]Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return nil, ErrStopped
	}
	if w.started {
		if !w.stream.Next(w.ctx) {
			if w.ctx.Err() != nil {
				return nil, ErrStopped
			}
			if err := w.stream.Err(); err != nil {
				return nil, fmt.Errorf("change stream: %w", err)
			}
			return nil, ErrStopped
		}
	}
	w.started = true

	docs, err := w.load(w.ctx)
	if err != nil && w.ctx.Err() != nil {
		return nil, ErrStopped
	}
	return docs, err
}

func (w *mongoWatch) Stop() {
	w.once.Do(func() {
		w.cancel()
		w.mu.Lock()
		defer w.mu.Unlock()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = w.stream.Close(closeCtx)
	})
}

// toBSON converts neutral values to their stored form. GeoPoints become GeoJSON points.
func toBSON(data map[string]any) bson.M {
	out := make(bson.M, len(data))
	for k, v := range data {
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v any) any {
	switch x := v.(type) {
	case GeoPoint:
		return bson.M{"type": "Point", "coordinates": bson.A{x.Longitude, x.Latitude}}
	case *GeoPoint:
		if x == nil {
			return nil
		}
		return toBSONValue(*x)
	case map[string]any:
		return toBSON(x)
	case []any:
		out := make(bson.A, len(x))
		for i, item := range x {
			out[i] = toBSONValue(item)
		}
		return out
	case time.Time:
		return x.UTC()
	}
	return v
}

func fromBSON(raw bson.M) Document {
	id := ""
	switch v := raw["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	}
	data := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" || k == parentField {
			continue
		}
		data[k] = normalizeBSON(v)
	}
	return Document{ID: id, Data: data}
}

func normalizeBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeBSON(item)
		}
		return out
	case bson.M:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	case primitive.D:
		return normalizeMap(x.Map())
	}
	return v
}

func normalizeMap(m map[string]any) any {
	if gp, ok := geoJSONPoint(m); ok {
		return gp
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeBSON(v)
	}
	return out
}

func geoJSONPoint(m map[string]any) (GeoPoint, bool) {
	if t, _ := m["type"].(string); t != "Point" || len(m) != 2 {
		return GeoPoint{}, false
	}
	var coords []any
	switch c := m["coordinates"].(type) {
	case primitive.A:
		coords = c
	case []any:
		coords = c
	default:
		return GeoPoint{}, false
	}
	if len(coords) != 2 {
		return GeoPoint{}, false
	}
	lng, ok1 := asFloat(coords[0])
	lat, ok2 := asFloat(coords[1])
	if !ok1 || !ok2 {
		return GeoPoint{}, false
	}
	return GeoPoint{Latitude: lat, Longitude: lng}, true
}
