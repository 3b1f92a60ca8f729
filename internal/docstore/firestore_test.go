package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/latlng"
)

func TestFirestoreValues_GeoPointRoundTrip(t *testing.T) {
	t.Parallel()
	in := map[string]any{
		"location": GeoPoint{Latitude: 10.5, Longitude: -3.25},
		"tags":     []any{"a", map[string]any{"p": &GeoPoint{Latitude: 1, Longitude: 2}}},
	}

	stored := toFirestore(in)
	ll, ok := stored["location"].(*latlng.LatLng)
	require.True(t, ok)
	assert.Equal(t, 10.5, ll.GetLatitude())
	assert.Equal(t, -3.25, ll.GetLongitude())

	back := fromFirestoreValue(stored["location"])
	assert.Equal(t, GeoPoint{Latitude: 10.5, Longitude: -3.25}, back)

	tags := fromFirestoreValue(stored["tags"]).([]any)
	assert.Equal(t, map[string]any{"p": GeoPoint{Latitude: 1, Longitude: 2}}, tags[1])
}

func TestFirestoreValues_TimeIsUTC(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("X", 3600)
	when := time.Date(2024, 6, 1, 10, 0, 0, 0, loc)
	got := fromFirestoreValue(when).(time.Time)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, when.Equal(got))
}
