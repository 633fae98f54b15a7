package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildText(paragraphs, sentences int) string {
	var b strings.Builder
	for p := 0; p < paragraphs; p++ {
		if p > 0 {
			b.WriteString("\n\n")
		}
		for s := 0; s < sentences; s++ {
			if s > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "الفقرة %d الجملة %d تشرح سياسة الاجازات السنوية للموظفين.", p, s)
		}
	}
	return b.String()
}

// coverage asserts every chunk is an ordered substring and that together they cover all non-space runes
func coverage(t *testing.T, text string, chunks []string) {
	t.Helper()
	runes := []rune(text)
	covered := make([]bool, len(runes))
	from := 0
	for _, c := range chunks {
		idx := strings.Index(text[from:], c)
		require.GreaterOrEqual(t, idx, 0, "chunk not found in order: %q", c)
		start := utf8.RuneCountInString(text[:from+idx])
		for i := start; i < start+utf8.RuneCountInString(c); i++ {
			covered[i] = true
		}
		from += idx
	}
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			require.True(t, covered[i], "rune %d (%q) not covered", i, r)
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("", 800, 120))
	assert.Empty(t, ChunkText("  \n\n \t", 800, 120))
	assert.Empty(t, ChunkText("text", 0, 0))
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("  سياسة العمل عن بعد  ", 800, 120)
	assert.Equal(t, []string{"سياسة العمل عن بعد"}, chunks)
}

func TestChunkText_SizeBound(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		overlap   int
	}{
		{"small", 20, 5},
		{"medium", 50, 10},
		{"no overlap", 30, 0},
		{"default", 800, 120},
	}
	text := buildText(12, 8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(text, tt.maxTokens, tt.overlap)
			require.NotEmpty(t, chunks)
			limit := (tt.maxTokens + tt.overlap) * CharsPerToken
			for _, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), limit)
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tt.maxTokens*CharsPerToken)
				assert.Equal(t, strings.TrimSpace(c), c)
				assert.NotEmpty(t, c)
			}
			coverage(t, text, chunks)
		})
	}
}

func TestChunkText_PrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("كلمة ", 30)
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	chunks := ChunkText(text, 40, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(para), chunks[0])
	assert.Equal(t, strings.TrimSpace(para), chunks[1])
}

func TestChunkText_Overlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 25, 5)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		assert.Contains(t, cur, prev[len(prev)-1], "chunk %d should repeat the tail of chunk %d", i, i-1)
		assert.NotEqual(t, prev[0], cur[0])
	}
	coverage(t, text, chunks)
}

func TestChunkText_HardSplitWithoutSeparators(t *testing.T) {
	text := strings.Repeat("ا", 100)
	chunks := ChunkText(text, 5, 0)
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.Equal(t, 20, utf8.RuneCountInString(c))
	}
}
