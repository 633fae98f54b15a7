package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractText reads a plain text file. A UTF-16 BOM switches the decoding,
// anything undecodable is dropped.
func extractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return decodePermissive(f)
}

func decodePermissive(r io.Reader) (string, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(dec)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	// the UTF-8 decoder substitutes U+FFFD for invalid bytes
	return strings.ReplaceAll(strings.ToValidUTF8(string(data), ""), "\uFFFD", ""), nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// extractMarkdown returns the readable text of a markdown file with the markup removed.
// Top level blocks are separated by a blank line.
func extractMarkdown(path string) (string, error) {
	raw, err := extractText(path)
	if err != nil {
		return "", err
	}
	return markdownToText([]byte(raw)), nil
}

func markdownToText(src []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var b bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(node.Value)
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}

		if n.Type() == ast.TypeBlock {
			sep := "\n"
			if n.Parent() != nil && n.Parent().Kind() == ast.KindDocument {
				sep = "\n\n"
			}
			b.Truncate(len(bytes.TrimRight(b.Bytes(), "\n")))
			b.WriteString(sep)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
