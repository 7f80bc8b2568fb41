package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/docfill/internal/docx"
	"github.com/dgallion1/docfill/internal/doctree"
)

// DOCXParser handles .docx files as read-only sources.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	f, err := docx.Parse(data, filename)
	if err != nil {
		return nil, err
	}
	return f.Document(), nil
}
