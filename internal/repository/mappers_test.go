package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// roundTrip stores item through the in-memory driver and maps it back.
func roundTrip[T any](t *testing.T, m Mapper[T], item T) T {
	t.Helper()
	store := docstore.NewMemoryStore()
	p := docstore.Collection("roundtrip")
	id, err := store.Set(context.Background(), p, "doc-1", m.ToDocument(item))
	require.NoError(t, err)
	doc, err := store.Get(context.Background(), p, id)
	require.NoError(t, err)
	out, ok := m.FromDocument(doc)
	require.True(t, ok)
	return out
}

func TestMappers_RoundTrip(t *testing.T) {
	t.Parallel()
	when := time.Date(2024, 3, 9, 21, 15, 0, 0, time.UTC)

	user := models.User{
		ID: "doc-1", Username: "skywatcher", Email: "sky@example.com",
		ProfileImageURL: strPtr("https://cdn.example/me.png"), ProfileDescription: strPtr("hi"),
		ReportedSightings: []string{"s1", "s2"}, Comments: []string{"c1"},
	}
	assert.Equal(t, user, roundTrip[models.User](t, UserMapper{}, user))

	sighting := models.Sighting{
		ID: "doc-1", UserID: "u1", Username: "skywatcher", Title: "Triangle over the lake",
		PostDate: timePtr(when), SightingDate: timePtr(when.Add(-time.Hour)),
		Location:  models.Location{Latitude: 59.33, Longitude: 18.06},
		MediaURLs: []string{"https://cdn.example/a.jpg"}, Description: strPtr("three lights"),
		CommentCount: 2, Upvotes: 5, Downvotes: 1,
	}
	assert.Equal(t, sighting, roundTrip[models.Sighting](t, SightingMapper{}, sighting))

	comment := models.SightingComment{
		ID: "doc-1", UserID: "u2", Username: "ann", SightingID: "s1",
		ParentCommentID: strPtr("c0"), Content: "saw it too", Timestamp: timePtr(when), Upvotes: 1,
	}
	assert.Equal(t, comment, roundTrip[models.SightingComment](t, SightingCommentMapper{}, comment))

	discussion := models.Discussion{
		ID: "doc-1", UserID: "u1", Username: "skywatcher", Title: "Best cameras?",
		PostDate: timePtr(when), Description: strPtr("for night shots"), CommentCount: 4,
	}
	assert.Equal(t, discussion, roundTrip[models.Discussion](t, DiscussionMapper{}, discussion))

	reply := models.DiscussionComment{
		ID: "doc-1", UserID: "u3", Username: "bo", DiscussionID: "d1",
		Content: "any with a big sensor", Timestamp: timePtr(when), Downvotes: 2,
	}
	assert.Equal(t, reply, roundTrip[models.DiscussionComment](t, DiscussionCommentMapper{}, reply))
}

func TestMappers_MissingFieldsDefault(t *testing.T) {
	t.Parallel()
	s, ok := SightingMapper{}.FromDocument(docstore.Document{ID: "s1", Data: map[string]any{}})
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, models.Location{}, s.Location)
	assert.Equal(t, []string{}, s.MediaURLs)
	assert.Nil(t, s.PostDate)
	assert.Nil(t, s.Description)
	assert.Zero(t, s.CommentCount)

	u, ok := UserMapper{}.FromDocument(docstore.Document{ID: "u1", Data: nil})
	require.True(t, ok)
	assert.Equal(t, []string{}, u.ReportedSightings)
	assert.Nil(t, u.ProfileImageURL)
}

func TestMappers_MalformedIsAbsent(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		doc  docstore.Document
	}{
		{"empty id", docstore.Document{ID: "", Data: map[string]any{"title": "x"}}},
		{"title not a string", docstore.Document{ID: "a", Data: map[string]any{"title": int64(3)}}},
		{"postDate not a time", docstore.Document{ID: "a", Data: map[string]any{"postDate": "yesterday"}}},
		{"location not a geo point", docstore.Document{ID: "a", Data: map[string]any{"location": "here"}}},
		{"mediaUrls mixed", docstore.Document{ID: "a", Data: map[string]any{"mediaUrls": []any{"u", true}}}},
		{"upvotes fractional", docstore.Document{ID: "a", Data: map[string]any{"upvotes": 1.25}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := SightingMapper{}.FromDocument(tc.doc)
				assert.False(t, ok)
			})
		})
	}

	_, ok := UserMapper{}.FromDocument(docstore.Document{ID: "u", Data: map[string]any{"comments": "c1"}})
	assert.False(t, ok)
	_, ok = DiscussionCommentMapper{}.FromDocument(docstore.Document{ID: "c", Data: map[string]any{"parentCommentId": 9}})
	assert.False(t, ok)
}

func TestSightingMapper_OptionalFieldsOmitted(t *testing.T) {
	t.Parallel()
	doc := SightingMapper{}.ToDocument(models.Sighting{Title: "t"})
	assert.NotContains(t, doc, "postDate")
	assert.NotContains(t, doc, "description")
	assert.Equal(t, []any{}, doc["mediaUrls"])
	assert.Equal(t, docstore.GeoPoint{}, doc["location"])
}
