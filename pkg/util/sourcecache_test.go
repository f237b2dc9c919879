package util

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSourceCache_ReadReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "Button.figma.tsx", "figma.connect(Button, 'https://figma.com')")

	cache := NewSourceCache(&SourceCacheConfig{Logger: NewDiscardLogger()})
	defer cache.Close()

	first, err := cache.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "figma.connect(Button, 'https://figma.com')", string(first))

	first[0] = 'X'

	second, err := cache.Read(path)
	require.NoError(t, err)
	assert.Equal(t, byte('f'), second[0], "mutating a returned slice must not leak into the cache")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.FilesCached)
}

func TestSourceCache_EmptyFile(t *testing.T) {
	path := writeSource(t, t.TempDir(), "empty.ts", "")

	cache := NewSourceCache(nil)
	defer cache.Close()

	data, err := cache.Read(path)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestSourceCache_DetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "a.ts", "const a = 1")

	cache := NewSourceCache(nil)
	defer cache.Close()

	_, err := cache.Read(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("const a = 22"), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	data, err := cache.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "const a = 22", string(data))
}

func TestSourceCache_Invalidate(t *testing.T) {
	path := writeSource(t, t.TempDir(), "a.ts", "export {}")

	cache := NewSourceCache(nil)
	defer cache.Close()

	_, err := cache.Read(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate(path)
	cache.Invalidate(filepath.Join(t.TempDir(), "unknown.ts"))

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, int64(1), cache.Stats().Invalidations)
}

func TestSourceCache_MaxFilesServesUncached(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.ts", "a")
	b := writeSource(t, dir, "b.ts", "b")

	cache := NewSourceCache(&SourceCacheConfig{MaxFiles: 1})
	defer cache.Close()

	_, err := cache.Read(a)
	require.NoError(t, err)

	data, err := cache.Read(b)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, int64(1), cache.Stats().Uncached)
}

func TestSourceCache_MissingFile(t *testing.T) {
	cache := NewSourceCache(nil)
	defer cache.Close()

	_, err := cache.Read(filepath.Join(t.TempDir(), "missing.tsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat")
}

func TestSourceCache_ConcurrentReads(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shared.tsx", "export const Button = () => <button />")

	cache := NewSourceCache(nil)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := cache.Read(path)
			assert.NoError(t, err)
			assert.Equal(t, "export const Button = () => <button />", string(data))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("figma.connect()"))
	b := ContentHash([]byte("figma.connect()"))
	c := ContentHash([]byte("figma.connect(x)"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLogLevel(in))
		})
	}
}
