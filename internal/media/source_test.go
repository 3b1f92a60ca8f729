package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImage(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"photo.jpg":       true,
		"PHOTO.JPEG":      true,
		"dir/shot.Png":    true,
		"clip.mp4":        false,
		"image.gif":       false,
		"noextension":     false,
		"archive.jpg.zip": false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsImage(name), name)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	images, videos := Split([]string{"a.jpg", "b.mov", "c.png", "d.mp4"})
	assert.Equal(t, []string{"a.jpg", "c.png"}, images)
	assert.Equal(t, []string{"b.mov", "d.mp4"}, videos)

	images, videos = Split(nil)
	assert.Empty(t, images)
	assert.Empty(t, videos)
}

func TestLocalFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ufo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0o600))

	f := LocalFile(path)
	assert.Equal(t, "ufo.jpg", f.Name())

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))
}
