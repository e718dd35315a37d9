package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndRemove(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMedia(dir, "/media/")
	require.NoError(t, err)

	url, err := m.Put(BucketProducts, "u1", ".png", []byte("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/products/u1/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"))

	full := filepath.Join(dir, strings.TrimPrefix(url, "/media/"))
	b, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))

	require.NoError(t, m.Remove(url))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	require.NoError(t, m.Remove(url))
	require.NoError(t, m.Remove(""))
}

func TestRemoveRejectsForeignURLs(t *testing.T) {
	m, err := NewMedia(t.TempDir(), "/media")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Remove("https://cdn.example.com/x.png"), ErrOutsideStore)
	assert.ErrorIs(t, m.Remove("/media/../etc/passwd"), ErrOutsideStore)
}

func TestPutNamesAreUnique(t *testing.T) {
	m, err := NewMedia(t.TempDir(), "/media")
	require.NoError(t, err)
	a, _ := m.Put(BucketAvatars, "u1", ".jpg", []byte("a"))
	b, _ := m.Put(BucketAvatars, "u1", ".jpg", []byte("b"))
	assert.NotEqual(t, a, b)
}
