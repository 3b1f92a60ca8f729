package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	p := Collection("sightings")

	id, err := s.Set(ctx, p, "", map[string]any{"title": "orb", "upvotes": 3, "tags": []string{"a"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, p, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "orb", doc.Data["title"])
	assert.Equal(t, int64(3), doc.Data["upvotes"])
	assert.Equal(t, []any{"a"}, doc.Data["tags"])

	_, err = s.Set(ctx, p, id, map[string]any{"title": "disc"})
	require.NoError(t, err)
	doc, err = s.Get(ctx, p, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "disc"}, doc.Data)

	require.NoError(t, s.Delete(ctx, p, id))
	_, err = s.Get(ctx, p, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	p := Collection("users")

	data := map[string]any{"username": "ann"}
	_, err := s.Set(ctx, p, "u1", data)
	require.NoError(t, err)
	data["username"] = "changed"

	doc, err := s.Get(ctx, p, "u1")
	require.NoError(t, err)
	doc.Data["username"] = "mutated"

	again, err := s.Get(ctx, p, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ann", again.Data["username"])
}

func TestMemoryStore_FindOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	p := Collection("sightings")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, _ = s.Set(ctx, p, "a", map[string]any{"postDate": base})
	_, _ = s.Set(ctx, p, "b", map[string]any{"postDate": base.Add(time.Hour)})
	_, _ = s.Set(ctx, p, "c", map[string]any{})

	docs, err := s.Find(ctx, Query{Path: p, OrderBy: "postDate", Direction: Descending})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(docs))

	docs, err = s.Find(ctx, Query{Path: p, OrderBy: "postDate", Direction: Ascending})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(docs))

	// Field without direction is not ordered by the field.
	docs, err = s.Find(ctx, Query{Path: p, OrderBy: "postDate"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(docs))
}

func TestMemoryStore_SubcollectionsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	sightings := Collection("sightings")

	_, _ = s.Set(ctx, sightings.Sub("s1", "sightingComments"), "c1", map[string]any{"content": "one"})
	_, _ = s.Set(ctx, sightings.Sub("s2", "sightingComments"), "c2", map[string]any{"content": "two"})

	docs, err := s.Find(ctx, Query{Path: sightings.Sub("s1", "sightingComments")})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(docs))
	assert.Equal(t, "sightings/s1/sightingComments", sightings.Sub("s1", "sightingComments").String())
}

func TestMemoryStore_WatchQueryDeliversChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	p := Collection("discussions")

	it, err := s.WatchQuery(ctx, Query{Path: p})
	require.NoError(t, err)
	defer it.Stop()

	docs, err := it.Next()
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = s.Set(ctx, p, "d1", map[string]any{"title": "hello"})
	require.NoError(t, err)

	docs, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids(docs))
}

func TestMemoryStore_WatchDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	p := Collection("users")

	it, err := s.WatchDocument(ctx, p, "u1")
	require.NoError(t, err)
	defer it.Stop()

	docs, err := it.Next()
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, _ = s.Set(ctx, p, "u1", map[string]any{"username": "ann"})
	docs, err = it.Next()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ann", docs[0].Data["username"])
}

func TestMemoryStore_StopUnblocksNext(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	it, err := s.WatchQuery(context.Background(), Query{Path: Collection("x")})
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := it.Next()
		done <- err
	}()
	it.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Stop")
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Ascending, ParseDirection("ASC"))
	assert.Equal(t, Descending, ParseDirection(" descending "))
	assert.Equal(t, Direction(""), ParseDirection("sideways"))
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
