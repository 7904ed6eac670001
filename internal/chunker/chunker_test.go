package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightqa/insightqa/internal/domain"
)

func TestChunk_ShortTextSingleSpan(t *testing.T) {
	spans, err := Chunk("hello world", 800, 150)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "hello world", spans[0])
}

func TestChunk_EmptyText(t *testing.T) {
	spans, err := Chunk("", 800, 150)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestChunk_BoundsAndOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 500) // 5000 runes
	spans, err := Chunk(text, 800, 150)
	require.NoError(t, err)
	require.Greater(t, len(spans), 1)

	for i, span := range spans {
		assert.LessOrEqual(t, len([]rune(span)), 800, "span %d exceeds max length", i)
	}
	for i := 1; i < len(spans); i++ {
		prev := []rune(spans[i-1])
		cur := []rune(spans[i])
		assert.Equal(t, string(prev[len(prev)-150:]), string(cur[:150]),
			"spans %d and %d do not share the overlap", i-1, i)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 300)
	first, err := Chunk(text, 800, 150)
	require.NoError(t, err)
	second, err := Chunk(text, 800, 150)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunk_ReconstructRoundTrip(t *testing.T) {
	texts := []string{
		strings.Repeat("lorem ipsum dolor sit amet ", 200),
		strings.Repeat("héllo wörld ünïcode ", 150),
		strings.Repeat("x", 801),
		strings.Repeat("x", 1600),
	}
	for _, text := range texts {
		spans, err := Chunk(text, 800, 150)
		require.NoError(t, err)
		assert.Equal(t, text, Reconstruct(spans, 150))
	}
}

func TestChunk_RuneBoundaries(t *testing.T) {
	// Multi-byte runes must never be split mid-sequence.
	text := strings.Repeat("日本語のテキスト", 200)
	spans, err := Chunk(text, 100, 20)
	require.NoError(t, err)
	var total int
	for _, span := range spans {
		assert.True(t, len(span) > 0)
		total += len([]rune(span))
	}
	assert.Equal(t, text, Reconstruct(spans, 20))
	_ = total
}

func TestChunk_InvalidParameters(t *testing.T) {
	cases := []struct {
		name    string
		maxLen  int
		overlap int
	}{
		{"zero maxLen", 0, 0},
		{"negative maxLen", -1, 0},
		{"negative overlap", 800, -1},
		{"overlap equals maxLen", 800, 800},
		{"overlap exceeds maxLen", 800, 900},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Chunk("some text", tc.maxLen, tc.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidParameters)
		})
	}
}

func TestChunkWithConfig_Defaults(t *testing.T) {
	text := strings.Repeat("a", 2000)
	spans, err := ChunkWithConfig(text, Config{})
	require.NoError(t, err)
	expected, err := Chunk(text, DefaultMaxLen, DefaultOverlap)
	require.NoError(t, err)
	assert.Equal(t, expected, spans)
}
