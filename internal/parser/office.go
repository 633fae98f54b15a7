package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lu4p/cat"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// extractDOCX joins paragraph text in document order, one paragraph per line.
func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("docx reader failed, falling back to cat")
		return extractWithCat(path)
	}
	defer r.Close()

	return parseDocumentXML(r.Editable().GetContent())
}

// parseDocumentXML concatenates every <w:t> of a paragraph in document order,
// including runs nested in hyperlinks, smart tags, insertions and fields.
func parseDocumentXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		lines  []string
		b      strings.Builder
		depth  int
		runs   int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "r":
				runs++
			case "t":
				inText = depth > 0
			case "tab":
				if runs > 0 {
					b.WriteString("\t")
				}
			case "br", "cr":
				if runs > 0 {
					b.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				runs = max(runs-1, 0)
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					lines = append(lines, b.String())
					b.Reset()
				}
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// extractPPTX reads slide text runs, one slide per paragraph.
func extractPPTX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.SliceStable(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var parts []string
	for _, f := range slides {
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(slideText(data)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// slideNumber reads N from ppt/slides/slideN.xml
func slideNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml"))
	if err != nil {
		return math.MaxInt
	}
	return n
}

// slideText collects every <a:t> run, breaking lines at <a:p> boundaries
func slideText(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
			inText = false
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}

// extractXLSX renders sheets as tab separated rows. excelize is tried first, tealeg/xlsx second.
func extractXLSX(path string) (string, error) {
	text, err := extractXLSXExcelize(path)
	if err == nil {
		return text, nil
	}
	log.Debug().Err(err).Str("path", path).Msg("excelize failed, trying xlsx")
	return extractXLSXTealeg(path)
}

func extractXLSXExcelize(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		writeSheet(&b, sheet, rows)
	}
	return strings.TrimSpace(b.String()), nil
}

func extractXLSXTealeg(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&b, sheet.Name, rows)
	}
	return strings.TrimSpace(b.String()), nil
}

func writeSheet(b *strings.Builder, name string, rows [][]string) {
	b.WriteString(name)
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// extractWithCat handles .odt, .rtf and is the last resort for .docx
func extractWithCat(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return strings.TrimSpace(text), nil
}
