package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Every write notifies the live queries
// watching the touched collection.
type MemoryStore struct {
	mu       sync.RWMutex
	cols     map[string]map[string]map[string]any
	watchers map[string]map[*memoryWatch]struct{}
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cols:     make(map[string]map[string]map[string]any),
		watchers: make(map[string]map[*memoryWatch]struct{}),
	}
}

func (m *MemoryStore) Set(ctx context.Context, p Path, id string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	key := p.String()

	m.mu.Lock()
	col, ok := m.cols[key]
	if !ok {
		col = make(map[string]map[string]any)
		m.cols[key] = col
	}
	col[id] = cloneMap(data)
	m.mu.Unlock()

	m.notify(key)
	return id, nil
}

func (m *MemoryStore) Delete(ctx context.Context, p Path, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := p.String()

	m.mu.Lock()
	if col, ok := m.cols[key]; ok {
		delete(col, id)
	}
	m.mu.Unlock()

	m.notify(key)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, p Path, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.cols[p.String()][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: cloneMap(data)}, nil
}

func (m *MemoryStore) Find(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	col := m.cols[q.Path.String()]
	docs := make([]Document, 0, len(col))
	for id, data := range col {
		docs = append(docs, Document{ID: id, Data: cloneMap(data)})
	}
	m.mu.RUnlock()

	sortDocuments(docs, q)
	return docs, nil
}

func (m *MemoryStore) WatchQuery(ctx context.Context, q Query) (SnapshotIterator, error) {
	return m.watch(ctx, q.Path.String(), func(ctx context.Context) ([]Document, error) {
		return m.Find(ctx, q)
	})
}

func (m *MemoryStore) WatchDocument(ctx context.Context, p Path, id string) (SnapshotIterator, error) {
	return m.watch(ctx, p.String(), func(ctx context.Context) ([]Document, error) {
		doc, err := m.Get(ctx, p, id)
		if err == ErrNotFound {
			return []Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	})
}

func (m *MemoryStore) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	var all []*memoryWatch
	for _, set := range m.watchers {
		for w := range set {
			all = append(all, w)
		}
	}
	m.mu.Unlock()

	for _, w := range all {
		w.Stop()
	}
	return nil
}

func (m *MemoryStore) watch(ctx context.Context, key string, load func(context.Context) ([]Document, error)) (SnapshotIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &memoryWatch{
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}, 1),
		load:    load,
	}
	w.detach = func() { m.removeWatch(key, w) }
	// The first Next returns the initial result without waiting.
	w.changed <- struct{}{}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return nil, ErrStopped
	}
	set, ok := m.watchers[key]
	if !ok {
		set = make(map[*memoryWatch]struct{})
		m.watchers[key] = set
	}
	set[w] = struct{}{}
	m.mu.Unlock()
	return w, nil
}

func (m *MemoryStore) removeWatch(key string, w *memoryWatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.watchers[key]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(m.watchers, key)
		}
	}
}

func (m *MemoryStore) notify(key string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for w := range m.watchers[key] {
		// A pending signal already covers this change.
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

type memoryWatch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	changed chan struct{}
	load    func(context.Context) ([]Document, error)
	detach  func()
	once    sync.Once
}

func (w *memoryWatch) Next() ([]Document, error) {
	select {
	case <-w.ctx.Done():
		return nil, ErrStopped
	case <-w.changed:
	}
	docs, err := w.load(w.ctx)
	if err != nil && w.ctx.Err() != nil {
		return nil, ErrStopped
	}
	return docs, err
}

func (w *memoryWatch) Stop() {
	w.once.Do(func() {
		w.cancel()
		w.detach()
	})
}

func sortDocuments(docs []Document, q Query) {
	sort.SliceStable(docs, func(i, j int) bool {
		if q.Ordered() {
			c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if c != 0 {
				if q.Direction == Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})
}

// compareValues orders missing values first, then numbers, strings, booleans and
// timestamps. Values of different kinds compare by kind rank.
func compareValues(a, b any) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	if fa, ok := asFloat(a); ok {
		fb, _ := asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return 0
}

func valueRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, int32, int64, float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	}
	return 5
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case *GeoPoint:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}
