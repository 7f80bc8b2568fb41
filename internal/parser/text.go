package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
)

// TextParser handles plain text files. Every non-blank line is a paragraph.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &doctree.Document{Title: titleFor(filename)}
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		doc.Paragraphs = append(doc.Paragraphs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
