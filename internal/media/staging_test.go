package media

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaging_PutResolveRemove(t *testing.T) {
	t.Parallel()
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	uri, err := staging.Put("../../evil/photo.JPG", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, StagedScheme))
	assert.True(t, strings.HasSuffix(uri, "/photo.JPG"))
	assert.True(t, IsImage(uri))

	src, err := staging.Resolve(uri)
	require.NoError(t, err)
	assert.Equal(t, "photo.JPG", src.Name())
	rc, err := src.Open()
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "pixels", string(body))

	staging.Remove(uri)
	_, err = staging.Resolve(uri)
	assert.ErrorIs(t, err, ErrNotStaged)
}

func TestStaging_ResolveAllFailsOnUnknown(t *testing.T) {
	t.Parallel()
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)
	uri, err := staging.Put("clip.mp4", strings.NewReader("frames"))
	require.NoError(t, err)

	srcs, err := staging.ResolveAll([]string{uri})
	require.NoError(t, err)
	assert.Len(t, srcs, 1)

	_, err = staging.ResolveAll([]string{uri, "staged://nope/x.jpg"})
	assert.ErrorIs(t, err, ErrNotStaged)
}

func TestStaging_RejectsEmptyName(t *testing.T) {
	t.Parallel()
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)
	_, err = staging.Put("  ", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestStaging_SweepDropsExpired(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	staging, err := NewStaging(dir)
	require.NoError(t, err)

	uri, err := staging.Put("photo.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)

	staging.sweep(time.Now())
	_, err = staging.Resolve(uri)
	require.NoError(t, err)

	staging.sweep(time.Now().Add(StagingTTL + time.Minute))
	_, err = staging.Resolve(uri)
	assert.ErrorIs(t, err, ErrNotStaged)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
