// Package docx is the document-access layer for .docx files. It exposes a
// parsed file as a doctree.Document and writes edited cells back into the
// underlying go-docx structures on save.
package docx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	godocx "github.com/fumiama/go-docx"
)

// File is an opened .docx document.
type File struct {
	name  string
	raw   *godocx.Docx
	tree  *doctree.Document
	cells map[*doctree.Cell]*godocx.WTableCell
}

// Open reads and parses the .docx file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	return Parse(data, path)
}

// Parse parses .docx bytes. go-docx reads template parts lazily from the
// zip, so data must not be modified while the File is in use.
func Parse(data []byte, name string) (*File, error) {
	raw, err := godocx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	base := filepath.Base(name)
	f := &File{
		name:  name,
		raw:   raw,
		tree:  &doctree.Document{Title: strings.TrimSuffix(base, filepath.Ext(base))},
		cells: make(map[*doctree.Cell]*godocx.WTableCell),
	}
	for _, item := range raw.Document.Body.Items {
		switch it := item.(type) {
		case *godocx.Paragraph:
			if text := paragraphText(it); strings.TrimSpace(text) != "" {
				f.tree.Paragraphs = append(f.tree.Paragraphs, text)
			}
		case *godocx.Table:
			f.tree.Tables = append(f.tree.Tables, f.table(it))
		}
	}
	return f, nil
}

// table maps a go-docx table to rows of cells. A vertical-merge
// continuation cell is the same *doctree.Cell as the cell above it in the
// same grid column, so reads see the merged text and writes land in the
// top cell of the merge.
func (f *File) table(t *godocx.Table) *doctree.Table {
	out := &doctree.Table{}
	above := make(map[int]*doctree.Cell)
	for _, wr := range t.TableRows {
		row := &doctree.Row{}
		col := 0
		for _, wc := range wr.TableCells {
			c, ok := above[col]
			if !ok || !continuesMerge(wc) {
				c = doctree.NewCell(cellText(wc))
				f.cells[c] = wc
			}
			above[col] = c
			row.Cells = append(row.Cells, c)
			col += gridSpan(wc)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func continuesMerge(wc *godocx.WTableCell) bool {
	p := wc.TableCellProperties
	return p != nil && p.VMerge != nil && p.VMerge.Val != "restart"
}

func gridSpan(wc *godocx.WTableCell) int {
	if p := wc.TableCellProperties; p != nil && p.GridSpan != nil && p.GridSpan.Val > 1 {
		return p.GridSpan.Val
	}
	return 1
}

// Name returns the path or name the file was opened with.
func (f *File) Name() string { return f.name }

// Document returns the editable view. Cell edits are applied on WriteTo.
func (f *File) Document() *doctree.Document { return f.tree }

// WriteTo applies changed cells and serializes the document.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	for c, wc := range f.cells {
		if c.Changed() {
			setCellText(wc, c.Text())
		}
	}
	cw := &countingWriter{w: w}
	if _, err := f.raw.WriteTo(cw); err != nil {
		return cw.n, fmt.Errorf("write docx: %w", err)
	}
	return cw.n, nil
}

// Save writes the document to path through a temp file in the same
// directory and an atomic rename, so a partially written file is never
// visible under path.
func (f *File) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docfill-*.docx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if _, err := f.WriteTo(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// setCellText replaces the cell content with a single paragraph holding
// text. The first paragraph's properties and first run's formatting are
// kept so the value matches the template's font.
func setCellText(wc *godocx.WTableCell, text string) {
	var props *godocx.ParagraphProperties
	var runProps *godocx.RunProperties
	if len(wc.Paragraphs) > 0 {
		first := wc.Paragraphs[0]
		props = first.Properties
		for _, child := range first.Children {
			if run, ok := child.(*godocx.Run); ok && run.RunProperties != nil {
				runProps = run.RunProperties
				break
			}
		}
	}

	wc.Paragraphs = nil
	p := wc.AddParagraph()
	p.Properties = props
	run := p.AddText(text)
	if runProps != nil {
		run.RunProperties = runProps
	}
}

func cellText(wc *godocx.WTableCell) string {
	parts := make([]string, 0, len(wc.Paragraphs))
	for _, p := range wc.Paragraphs {
		parts = append(parts, paragraphText(p))
	}
	return strings.Join(parts, "\n")
}

func paragraphText(p *godocx.Paragraph) string {
	var buf strings.Builder
	for _, child := range p.Children {
		switch o := child.(type) {
		case *godocx.Run:
			runText(&buf, o)
		case *godocx.Hyperlink:
			runText(&buf, &o.Run)
		}
	}
	return buf.String()
}

func runText(buf *strings.Builder, run *godocx.Run) {
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *godocx.Text:
			buf.WriteString(t.Text)
		case *godocx.Tab:
			buf.WriteByte('\t')
		case *godocx.BarterRabbet:
			buf.WriteByte('\n')
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
