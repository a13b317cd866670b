package filecache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	mu    sync.Mutex
	files map[string][]byte
	opens int
}

func (m *memSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++

	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memLastAccess struct {
	mu    sync.Mutex
	calls [][]string
}

func (m *memLastAccess) UpdateFileLastAccess(_ context.Context, parts []string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, parts)
	return nil
}

func TestGet_MissStreamsAndCachesLocally(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("a"), chunkSize*3+17)
	src := &memSource{files: map[string][]byte{"paper/1.20/build.jar": content}}

	c, err := New(Config{CacheDir: dir}, src, nil, zerolog.Nop())
	require.NoError(t, err)

	r, err := c.Get(context.Background(), "paper/1.20/build.jar", int64(len(content)))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), c.Size())
}

func TestGet_HitServesFromLocalDisk(t *testing.T) {
	dir := t.TempDir()
	content := []byte("small file contents")
	src := &memSource{files: map[string][]byte{"velocity/3.3/build.jar": content}}

	c, err := New(Config{CacheDir: dir}, src, nil, zerolog.Nop())
	require.NoError(t, err)

	r1, err := c.Get(context.Background(), "velocity/3.3/build.jar", int64(len(content)))
	require.NoError(t, err)
	_, err = io.ReadAll(r1)
	require.NoError(t, err)

	r2, err := c.Get(context.Background(), "velocity/3.3/build.jar", int64(len(content)))
	require.NoError(t, err)
	got, err := io.ReadAll(r2)
	require.NoError(t, err)

	assert.Equal(t, content, got)
	assert.Equal(t, 1, src.opens, "second Get must be served from local disk, not the source")
}

func TestMakeSpaceForFile_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("x"), 100)
	src := &memSource{files: map[string][]byte{
		"a.jar": content,
		"b.jar": content,
		"c.jar": content,
	}}

	c, err := New(Config{CacheDir: dir, MaxBytes: 250}, src, nil, zerolog.Nop())
	require.NoError(t, err)

	for _, path := range []string{"a.jar", "b.jar"} {
		r, err := c.Get(context.Background(), path, 100)
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		require.NoError(t, err)
	}

	r, err := c.Get(context.Background(), "c.jar", 100)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.NoError(t, err)

	c.mu.RLock()
	_, aStillCached := c.entries["a.jar"]
	_, cCached := c.entries["c.jar"]
	c.mu.RUnlock()

	assert.False(t, aStillCached, "oldest entry should have been evicted")
	assert.True(t, cCached)
}

func TestMakeSpaceForFile_TooLargeFails(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{files: map[string][]byte{"huge.jar": {1}}}

	c, err := New(Config{CacheDir: dir, MaxBytes: 10}, src, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "huge.jar", 100)
	assert.Error(t, err)
}

func TestProcess_FlushesLastAccessOnce(t *testing.T) {
	dir := t.TempDir()
	content := []byte("contents")
	src := &memSource{files: map[string][]byte{"fabric/loader.jar": content}}
	store := &memLastAccess{}

	c, err := New(Config{CacheDir: dir}, src, store, zerolog.Nop())
	require.NoError(t, err)

	r, err := c.Get(context.Background(), "fabric/loader.jar", int64(len(content)))
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.NoError(t, err)

	require.NoError(t, c.Process(context.Background()))
	require.NoError(t, c.Process(context.Background()))

	assert.Len(t, store.calls, 1, "second Process call should see lastAccessWritten already set")
	assert.Equal(t, []string{"fabric", "loader.jar"}, store.calls[0])
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"paper", "1.20", "build.jar"}, splitPath("paper/1.20/build.jar"))
	assert.Equal(t, []string{"build.jar"}, splitPath("build.jar"))
}
