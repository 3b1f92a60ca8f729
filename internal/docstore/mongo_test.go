package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBSON_GeoPointBecomesGeoJSON(t *testing.T) {
	t.Parallel()
	out := toBSON(map[string]any{
		"location": GeoPoint{Latitude: 52.1, Longitude: 4.3},
		"nested":   map[string]any{"at": &GeoPoint{Latitude: 1, Longitude: 2}},
	})

	assert.Equal(t, bson.M{"type": "Point", "coordinates": bson.A{4.3, 52.1}}, out["location"])
	assert.Equal(t, bson.M{"at": bson.M{"type": "Point", "coordinates": bson.A{2.0, 1.0}}}, out["nested"])
}

func TestFromBSON_Normalizes(t *testing.T) {
	t.Parallel()
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := fromBSON(bson.M{
		"_id":       "abc",
		parentField: "sightings/s1",
		"postDate":  primitive.NewDateTimeFromTime(when),
		"upvotes":   int32(7),
		"mediaUrls": primitive.A{"u1", "u2"},
		"location":  bson.M{"type": "Point", "coordinates": primitive.A{4.3, 52.1}},
		"meta":      primitive.D{{Key: "k", Value: int32(1)}},
	})

	assert.Equal(t, "abc", doc.ID)
	assert.NotContains(t, doc.Data, parentField)
	assert.Equal(t, when, doc.Data["postDate"])
	assert.Equal(t, int64(7), doc.Data["upvotes"])
	assert.Equal(t, []any{"u1", "u2"}, doc.Data["mediaUrls"])
	assert.Equal(t, GeoPoint{Latitude: 52.1, Longitude: 4.3}, doc.Data["location"])
	assert.Equal(t, map[string]any{"k": int64(1)}, doc.Data["meta"])
}

func TestFromBSON_ObjectIDKey(t *testing.T) {
	t.Parallel()
	oid := primitive.NewObjectID()
	doc := fromBSON(bson.M{"_id": oid})
	assert.Equal(t, oid.Hex(), doc.ID)
}

func TestGeoJSONPoint_RejectsOtherShapes(t *testing.T) {
	t.Parallel()
	_, ok := geoJSONPoint(map[string]any{"type": "Polygon", "coordinates": []any{1.0, 2.0}})
	assert.False(t, ok)
	_, ok = geoJSONPoint(map[string]any{"type": "Point", "coordinates": []any{"x", 2.0}})
	assert.False(t, ok)
}
