package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docfill/internal/doctree"
)

// CSVParser handles CSV files. The whole file becomes one table; a
// two-column sheet reads as key/value rows.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{Title: titleFor(filename)}
	if len(records) == 0 {
		return doc, nil
	}
	doc.Tables = append(doc.Tables, doctree.NewTable(records...))
	return doc, nil
}
