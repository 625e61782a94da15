package pipeline

import (
	"testing"
	"unicode/utf8"

	"github.com/siherrmann/knowledgestore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWindows(t *testing.T) {
	t.Run("Splits text into fixed windows without overlap", func(t *testing.T) {
		windows, err := SplitWindows("abcdefghijklmn", model.ChunkConfig{MaxChunkSize: 4, Overlap: 0})
		require.NoError(t, err)
		require.Len(t, windows, 4)

		assert.Equal(t, "abcd", windows[0].Content)
		assert.Equal(t, "efgh", windows[1].Content)
		assert.Equal(t, "ijkl", windows[2].Content)
		assert.Equal(t, "mn", windows[3].Content)

		assert.Equal(t, 0, windows[0].Start)
		assert.Equal(t, 4, windows[0].End)
		assert.Equal(t, 12, windows[3].Start)
		assert.Equal(t, 14, windows[3].End)
	})

	t.Run("Overlapping windows start at multiples of the step size", func(t *testing.T) {
		windows, err := SplitWindows("abcdefghij", model.ChunkConfig{MaxChunkSize: 4, Overlap: 2})
		require.NoError(t, err)
		require.Len(t, windows, 5)

		for i, window := range windows {
			assert.Equal(t, i, window.Index)
			assert.Equal(t, i*2, window.Start)
		}
		assert.Equal(t, "abcd", windows[0].Content)
		assert.Equal(t, "cdef", windows[1].Content)
		assert.Equal(t, "ij", windows[4].Content)
	})

	t.Run("Same input always produces the same windows", func(t *testing.T) {
		text := "The quick brown fox jumps over the lazy dog."
		config := model.ChunkConfig{MaxChunkSize: 10, Overlap: 3}

		first, err := SplitWindows(text, config)
		require.NoError(t, err)
		second, err := SplitWindows(text, config)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Empty text produces no windows", func(t *testing.T) {
		windows, err := SplitWindows("", model.DefaultChunkConfig())
		require.NoError(t, err)
		assert.Empty(t, windows)
	})

	t.Run("Text shorter than window size produces a single window", func(t *testing.T) {
		windows, err := SplitWindows("short", model.DefaultChunkConfig())
		require.NoError(t, err)
		require.Len(t, windows, 1)
		assert.Equal(t, "short", windows[0].Content)
		assert.Equal(t, 0, windows[0].Start)
		assert.Equal(t, 5, windows[0].End)
	})

	t.Run("Windows never split multi-byte runes", func(t *testing.T) {
		windows, err := SplitWindows("ééééééé", model.ChunkConfig{MaxChunkSize: 5, Overlap: 0})
		require.NoError(t, err)
		require.Len(t, windows, 4)

		assert.Equal(t, "éé", windows[0].Content)
		assert.Equal(t, "éé", windows[1].Content)
		assert.Equal(t, "éé", windows[2].Content)
		assert.Equal(t, "é", windows[3].Content)
		for _, window := range windows {
			assert.True(t, utf8.ValidString(window.Content))
		}
	})

	t.Run("Covers every rune of non-ASCII text", func(t *testing.T) {
		text := "日本語のテスト"
		windows, err := SplitWindows(text, model.ChunkConfig{MaxChunkSize: 4, Overlap: 0})
		require.NoError(t, err)

		var rebuilt string
		for _, window := range windows {
			assert.True(t, utf8.ValidString(window.Content))
			assert.Equal(t, text[window.Start:window.End], window.Content)
			rebuilt += window.Content
		}
		assert.Equal(t, text, rebuilt)
	})

	t.Run("Window narrower than a rune takes the whole rune", func(t *testing.T) {
		windows, err := SplitWindows("éé", model.ChunkConfig{MaxChunkSize: 1, Overlap: 0})
		require.NoError(t, err)
		require.Len(t, windows, 2)
		assert.Equal(t, "é", windows[0].Content)
		assert.Equal(t, "é", windows[1].Content)
	})

	t.Run("Overlap equal to window size is rejected", func(t *testing.T) {
		_, err := SplitWindows("abcdef", model.ChunkConfig{MaxChunkSize: 4, Overlap: 4})
		assert.Error(t, err)
	})

	t.Run("Non positive window size is rejected", func(t *testing.T) {
		_, err := SplitWindows("abcdef", model.ChunkConfig{MaxChunkSize: 0, Overlap: 0})
		assert.Error(t, err)
	})
}
