package rag

import (
	"sort"
	"strings"
	"unicode"

	"hr-rag/internal/models"
	"hr-rag/internal/parser"
)

// keywords normalized the same way as messages, longest first so that
// "hii" is consumed before "hi"
var smallTalkKeywords = func() []string {
	out := make([]string, len(models.SmallTalkKeywords))
	for i, kw := range models.SmallTalkKeywords {
		out[i] = strings.ToLower(parser.Normalize(kw))
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// IsSmallTalk reports whether msg is nothing but greetings, punctuation and emoji.
func IsSmallTalk(msg string) bool {
	m := strings.ToLower(parser.Normalize(msg))
	found := false
	for _, kw := range smallTalkKeywords {
		if strings.Contains(m, kw) {
			found = true
			m = strings.ReplaceAll(m, kw, " ")
		}
	}
	if !found {
		return false
	}
	for _, r := range m {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r) && r != '\u200d' && r != '\ufe0f' {
			return false
		}
	}
	return true
}
