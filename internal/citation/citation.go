package citation

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"hr-rag/internal/models"
)

var blockRe = regexp.MustCompile(models.CitationsRegex)

type block struct {
	Items []models.Citation `json:"items"`
}

// Extract splits the final model text into the visible answer and the citations
// of its trailing block. A missing or malformed block yields no citations.
func Extract(text string) (string, []models.Citation) {
	loc := blockRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), []models.Citation{}
	}

	answer := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	var b block
	if err := json.Unmarshal([]byte(strings.TrimSpace(text[loc[2]:loc[3]])), &b); err != nil {
		log.Warn().Err(err).Msg("malformed citations block")
		return answer, []models.Citation{}
	}
	return answer, Dedup(b.Items)
}

// Dedup drops repeated citations, keeping first occurrence order
func Dedup(items []models.Citation) []models.Citation {
	seen := make(map[models.CitationKey]struct{}, len(items))
	out := make([]models.Citation, 0, len(items))
	for _, c := range items {
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Format renders the citations block appended to a final answer.
func Format(items []models.Citation) string {
	if items == nil {
		items = []models.Citation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	data := `{"items":[]}`
	if err := enc.Encode(block{Items: items}); err == nil {
		data = strings.TrimSuffix(buf.String(), "\n")
	}
	return models.CitationsOpenTag + data + models.CitationsCloseTag
}

// Strip removes every citations block from text
func Strip(text string) string {
	return strings.TrimSpace(blockRe.ReplaceAllString(text, ""))
}
