package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"hr-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// extractor returns the raw text of one file
type extractor func(path string) (string, error)

var extractors = map[string]extractor{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".pptx": extractPPTX,
	".xlsx": extractXLSX,
	".odt":  extractWithCat,
	".rtf":  extractWithCat,
	".txt":  extractText,
	".md":   extractMarkdown,
}

// Supported reports whether the file extension is in the allow-list
func Supported(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtractText returns the raw text of a supported file.
func ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}
	return fn(path)
}

// LoadDocuments walks root recursively and returns one Document per supported file,
// tagged with the given corpus. A missing root yields no documents.
// Extraction failures are logged and produce a document with empty text.
func LoadDocuments(ctx context.Context, root string, corpus models.Corpus) ([]models.Document, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("root", root).Str("corpus", string(corpus)).Msg("corpus folder not found")
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	var docs []models.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}

		text, err := ExtractText(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to extract text")
			text = ""
		}
		log.Debug().Str("path", path).Int("chars", len([]rune(text))).Msg("extracted document")

		docs = append(docs, models.Document{
			Text:       text,
			SourcePath: path,
			DocTitle:   docTitle(path),
			Corpus:     corpus,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// docTitle is the file name without its extension
func docTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
