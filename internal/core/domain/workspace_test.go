package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileInfo_Version(t *testing.T) {
	mod := time.Unix(1700000000, 42)
	info := FileInfo{Path: "/a.txt", Size: 128, ModTime: mod}

	v := info.Version()
	assert.Equal(t, mod.UnixNano(), v.ModifiedAtNanos)
	assert.Equal(t, int64(128), v.SizeBytes)

	t.Run("touch changes the version", func(t *testing.T) {
		touched := info
		touched.ModTime = mod.Add(time.Nanosecond)
		assert.NotEqual(t, v, touched.Version())
	})

	t.Run("size change alone changes the version", func(t *testing.T) {
		grown := info
		grown.Size = 129
		assert.NotEqual(t, v, grown.Version())
	})
}

func TestSearchOptions_Normalize(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		got := SearchOptions{}.Normalize()
		assert.Equal(t, SearchModeHybrid, got.Mode)
		assert.Equal(t, DefaultTopK, got.TopK)
		assert.Equal(t, DefaultSnippetLength, got.SnippetLength)
	})

	t.Run("clamps vector weight into the unit interval", func(t *testing.T) {
		assert.Equal(t, 0.0, SearchOptions{VectorWeight: -0.5}.Normalize().VectorWeight)
		assert.Equal(t, 1.0, SearchOptions{VectorWeight: 1.5}.Normalize().VectorWeight)
		assert.Equal(t, 0.3, SearchOptions{VectorWeight: 0.3}.Normalize().VectorWeight)
	})

	t.Run("explicit values survive", func(t *testing.T) {
		got := SearchOptions{Mode: SearchModeBM25, TopK: 9, SnippetLength: 50}.Normalize()
		assert.Equal(t, SearchModeBM25, got.Mode)
		assert.Equal(t, 9, got.TopK)
		assert.Equal(t, 50, got.SnippetLength)
	})
}
