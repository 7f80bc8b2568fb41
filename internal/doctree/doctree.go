package doctree

import "strings"

// Document is the editable view of an office document: ordered paragraphs
// and ordered tables. Backends (docx, html, csv) build it; the fill engine
// mutates cell text in place.
type Document struct {
	Title      string
	Paragraphs []string
	Tables     []*Table
}

// Table is an ordered sequence of rows.
type Table struct {
	Rows []*Row
}

// Row is an ordered sequence of cells. A cell's position in Cells is its
// stable index within the row.
type Row struct {
	Cells []*Cell
}

// Cell holds mutable text. Changed reports whether SetText was called since
// the cell was created, so backends only write back what was touched.
type Cell struct {
	text    string
	changed bool
}

// NewCell returns an unchanged cell holding text.
func NewCell(text string) *Cell {
	return &Cell{text: text}
}

func (c *Cell) Text() string { return c.text }

// SetText replaces the cell text and marks the cell changed.
func (c *Cell) SetText(text string) {
	c.text = text
	c.changed = true
}

func (c *Cell) Changed() bool { return c.changed }

// IsBlank reports whether the cell's trimmed text is empty.
func (c *Cell) IsBlank() bool {
	return strings.TrimSpace(c.text) == ""
}

// NewTable builds a table from rows of cell texts.
func NewTable(rows ...[]string) *Table {
	t := &Table{}
	for _, texts := range rows {
		row := &Row{}
		for _, s := range texts {
			row.Cells = append(row.Cells, NewCell(s))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Texts returns the cell texts of the table, row by row.
func (t *Table) Texts() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		texts := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			texts = append(texts, c.Text())
		}
		out = append(out, texts)
	}
	return out
}

// Changed counts cells whose text was set.
func (d *Document) Changed() int {
	n := 0
	for _, t := range d.Tables {
		for _, row := range t.Rows {
			for _, c := range row.Cells {
				if c.Changed() {
					n++
				}
			}
		}
	}
	return n
}
