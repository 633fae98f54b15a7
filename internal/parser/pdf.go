package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const (
	minValidRunes  = 80
	minArabicRunes = 60
	pageTimeout    = 10 * time.Second
)

var errPageTimeout = errors.New("page extraction timed out")

// extractPDF keeps the primary text when it looks like real Arabic, otherwise
// it switches to the secondary extractor when that one does better.
func extractPDF(path string) (string, error) {
	primary, err := extractPDFPrimary(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("primary pdf extraction failed")
		primary = ""
	}
	if looksValid(primary) {
		return strings.TrimSpace(primary), nil
	}

	secondary, err := extractPDFSecondary(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("secondary pdf extraction failed")
	} else if looksValid(secondary) || utf8.RuneCountInString(secondary) > utf8.RuneCountInString(primary) {
		return strings.TrimSpace(secondary), nil
	}

	// best available, possibly low quality
	return strings.TrimSpace(primary), nil
}

// looksValid reports whether text is long enough, mostly Arabic script and free of replacement glyphs
func looksValid(text string) bool {
	if utf8.RuneCountInString(text) < minValidRunes {
		return false
	}
	if strings.ContainsRune(text, utf8.RuneError) {
		return false
	}
	arabic := 0
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			arabic++
		}
	}
	return arabic > minArabicRunes
}

func extractPDFPrimary(path string) (string, error) {
	f, reader, err := lpdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := protectExtract(func() (string, error) { return page.GetPlainText(nil) })
		if err != nil {
			log.Debug().Err(err).Str("path", path).Int("page", i).Msg("skipping pdf page")
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

func extractPDFSecondary(path string) (string, error) {
	reader, err := dpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := protectExtract(func() (string, error) { return page.GetPlainText(nil) })
		if err != nil {
			log.Debug().Err(err).Str("path", path).Int("page", i).Msg("skipping pdf page")
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// protectExtract bounds a page extraction in time and turns panics from malformed streams into errors
func protectExtract(fn func() (string, error)) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("pdf page panic: %v", r)}
			}
		}()
		content, err := fn()
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", errPageTimeout
	}
}
