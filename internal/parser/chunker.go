package parser

import (
	"strings"
	"unicode/utf8"
)

// CharsPerToken is the crude token to character ratio used for chunk sizes.
const CharsPerToken = 4

// separators ordered from paragraph to character level
var separators = []string{"\n\n", "\n", ". ", "؟ ", "? ", "! ", " ", ""}

// ChunkText splits text into overlapping chunks of at most maxTokens*4 characters.
// Splitting descends through separators until every unit fits the size limit.
func ChunkText(text string, maxTokens, overlapTokens int) []string {
	if strings.TrimSpace(text) == "" || maxTokens <= 0 {
		return nil
	}
	size := maxTokens * CharsPerToken
	overlap := max(overlapTokens, 0) * CharsPerToken
	if overlap >= size {
		overlap = size / 2
	}

	s := &splitter{size: size, overlap: overlap}
	return s.split(text, separators)
}

type splitter struct {
	size    int
	overlap int
}

func (s *splitter) split(text string, seps []string) []string {
	sep, rest := pickSeparator(text, seps)

	// separators stay attached to the preceding piece so no text is lost
	pieces := strings.SplitAfter(text, sep)

	var chunks, fitting []string
	for _, p := range pieces {
		if runeLen(p) <= s.size {
			fitting = append(fitting, p)
			continue
		}
		if len(fitting) > 0 {
			chunks = append(chunks, s.merge(fitting)...)
			fitting = nil
		}
		chunks = append(chunks, s.split(p, rest)...)
	}
	if len(fitting) > 0 {
		chunks = append(chunks, s.merge(fitting)...)
	}
	return chunks
}

// pickSeparator returns the first separator present in text and the ones after it
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily packs pieces up to the size limit, carrying up to overlap
// characters of trailing pieces into the next chunk.
func (s *splitter) merge(pieces []string) []string {
	var chunks, window []string
	total := 0

	for _, p := range pieces {
		pLen := runeLen(p)
		if total+pLen > s.size && len(window) > 0 {
			if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
				chunks = append(chunks, c)
			}
			for len(window) > 0 && (total > s.overlap || total+pLen > s.size) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		total += pLen
		window = append(window, p)
	}

	if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
