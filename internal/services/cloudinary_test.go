package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "sightings-media/1700000000000_a", PublicID("sightings-media/1700000000000_a.jpg"))
	assert.Equal(t, "sightings-media/clip", PublicID("sightings-media/clip"))
	assert.Equal(t, "sightings-media/x.tar", PublicID("sightings-media/x.tar.gz"))
}

func TestNewCloudinaryService(t *testing.T) {
	t.Parallel()
	svc, err := NewCloudinaryService("demo", "key", "secret")
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
